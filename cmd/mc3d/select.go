package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mc3d/mc3d-source/internal/family"
	"github.com/mc3d/mc3d-source/internal/ledger"
)

var (
	selectMC3DFile        string
	selectDeprecatedFiles []string
	selectFamiliesOutput  string
	selectNewDataOutput   string
	selectUniquesGroup    string
	selectKeepCODHydrogen bool
)

var selectCmd = &cobra.Command{
	Use:   "select <families-file>",
	Short: "Select the golden representative of every new family",
	Long: `Diff a family partition (as written by uniq) against the previous
curation cycle's golden records and select the golden representative of
every genuinely new family.

Families claimed by a prior stable id are reported as migrated; prior
ids whose family is entirely deprecated are retired; anything else that
lost its family anchoring is reported as orphaned. Golden selection
prefers databases in the fixed order cod > icsd > mpds.

Stoichiometric COD structures containing hydrogen are excluded from
golden selection: their hydrogen positions are typically unrefined.

Example:
  mc3d select uniques.json \
       --mc3d-file mc3d.json \
       --deprecated-file deprecated-cod.json \
       --uniques-group global/structure/unique`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		var families [][]string
		data, err := os.ReadFile(args[0])
		if err != nil {
			fatalf("failed to read families: %v", err)
		}
		if err := json.Unmarshal(data, &families); err != nil {
			fatalf("failed to parse families %s: %v", args[0], err)
		}

		deprecated := ledger.Ledger{}
		for _, path := range selectDeprecatedFiles {
			loaded, err := ledger.Load(path)
			if err != nil {
				fatalf("%v", err)
			}
			merged, overlap, err := deprecated.Merge(loaded)
			if err != nil {
				fatalf("deprecation ledgers disagree on %v", overlap)
			}
			deprecated = merged
		}

		prior := family.Records{}
		if selectMC3DFile != "" {
			prior, err = family.LoadRecords(selectMC3DFile)
			if err != nil {
				fatalf("%v", err)
			}
		}

		excludable := map[string]struct{}{}
		if !selectKeepCODHydrogen {
			sources, err := st.CODHydrogenSources(ctx)
			if err != nil {
				fatalf("failed to load COD hydrogen sources: %v", err)
			}
			for _, src := range sources {
				excludable[src] = struct{}{}
			}
		}

		res, err := family.Resolve(families, deprecated, prior, excludable)
		if err != nil {
			fatalf("%v", err)
		}

		// Enrich the golden records from the store and persist the
		// selection on the golden structures themselves.
		goldenSources := make([]string, 0, len(res.Golden))
		for src := range res.Golden {
			goldenSources = append(goldenSources, src)
		}
		sort.Strings(goldenSources)

		stored, err := st.GetStructuresBySources(ctx, goldenSources)
		if err != nil {
			fatalf("failed to load golden structures: %v", err)
		}

		duplicates := map[string][]string{}
		var goldenUUIDs []string
		for _, src := range goldenSources {
			record := res.Golden[src]
			structure, ok := stored[src]
			if !ok {
				fmt.Fprintf(os.Stderr, "%s golden structure %s not in store, record left unenriched\n", yellow("Warning:"), src)
				continue
			}
			record.Golden.ReducedFormula = structure.Formula
			record.Golden.SpglibSpaceGroup = structure.Spacegroup
			record.Golden.UUID = structure.UUID
			res.Golden[src] = record

			var rest []string
			for _, member := range record.DuplicateFamily {
				if member != src {
					rest = append(rest, member)
				}
			}
			duplicates[structure.UUID] = rest
			goldenUUIDs = append(goldenUUIDs, structure.UUID)
		}

		if err := st.FinalizeGoldenBatch(ctx, duplicates, selectUniquesGroup, goldenUUIDs); err != nil {
			fatalf("failed to finalize golden selection: %v", err)
		}

		selected, err := json.MarshalIndent(res.NewFamilies, "", "  ")
		if err != nil {
			fatalf("failed to encode selected families: %v", err)
		}
		if err := os.WriteFile(selectFamiliesOutput, append(selected, '\n'), 0644); err != nil {
			fatalf("failed to write %s: %v", selectFamiliesOutput, err)
		}
		if err := res.Golden.Save(selectNewDataOutput); err != nil {
			fatalf("%v", err)
		}

		fmt.Printf("\n%s Selected %d golden structures\n\n", green("✓"), len(res.Golden))
		fmt.Printf("  New families: %d %s\n", len(res.NewFamilies), gray("→ "+selectFamiliesOutput))
		fmt.Printf("  Migrated:     %d\n", len(res.Migrated))
		fmt.Printf("  Deprecated:   %d\n", len(res.Deprecated))
		if len(res.Orphaned) > 0 {
			fmt.Printf("  Orphaned:     %s\n", red(fmt.Sprintf("%d", len(res.Orphaned))))
			orphans := make([]string, 0, len(res.Orphaned))
			for stableID := range res.Orphaned {
				orphans = append(orphans, stableID)
			}
			sort.Strings(orphans)
			for _, stableID := range orphans {
				fmt.Printf("    %s %s %s\n", stableID, gray("golden"), res.Orphaned[stableID])
			}
		}
		fmt.Println()
	},
}

func init() {
	selectCmd.Flags().StringVar(&selectMC3DFile, "mc3d-file", "", "golden records of the previous curation cycle")
	selectCmd.Flags().StringSliceVar(&selectDeprecatedFiles, "deprecated-file", nil, "deprecation ledger files (repeatable)")
	selectCmd.Flags().StringVar(&selectFamiliesOutput, "selected-output", "selected-families.json", "output file for the new families")
	selectCmd.Flags().StringVar(&selectNewDataOutput, "new-data-output", "new-mc3d-data.json", "output file for the new golden records")
	selectCmd.Flags().StringVar(&selectUniquesGroup, "uniques-group", "", "group receiving the golden structures")
	selectCmd.Flags().BoolVar(&selectKeepCODHydrogen, "keep-cod-hydrogen", false, "do not exclude hydrogen-bearing COD families")
	rootCmd.AddCommand(selectCmd)
}
