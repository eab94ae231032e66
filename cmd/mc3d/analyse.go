package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mc3d/mc3d-source/internal/ledger"
	"github.com/mc3d/mc3d-source/internal/matcher"
	"github.com/mc3d/mc3d-source/internal/source"
	"github.com/mc3d/mc3d-source/internal/store/sqlite"
	"github.com/mc3d/mc3d-source/internal/types"
)

var (
	analyseLedgerFile      string
	analyseMatcherSettings string
	analyseOverwrite       bool
)

var analyseCmd = &cobra.Command{
	Use:   "analyse",
	Short: "Analyse database versions and extend the deprecation ledger",
	Long: `Analyse how the source databases changed between versions and record
sources that are no longer trusted in the deprecation ledger.

Each subcommand detects one deprecation reason:

  id-removed         ids that disappeared from the new database version
  structure-updated  records whose geometry changed between versions
  incorrect-formula  structures flagged with a formula mismatch`,
}

var analyseIDRemovedCmd = &cobra.Command{
	Use:   "id-removed <old-raw-group> <new-raw-group>",
	Short: "Deprecate ids removed from the new database version",
	Long: `Compare two raw-CIF groups and deprecate every record of the old
version whose id no longer exists in the new one.

Entries already in the ledger are reported and kept; the pass is safe
to rerun.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		oldCIFs, err := st.GetRawCIFsByGroup(ctx, args[0])
		if err != nil {
			fatalf("failed to load %s: %v", args[0], err)
		}
		newCIFs, err := st.GetRawCIFsByGroup(ctx, args[1])
		if err != nil {
			fatalf("failed to load %s: %v", args[1], err)
		}

		current := make(map[string]struct{}, len(newCIFs))
		for _, cif := range newCIFs {
			current[cif.DBName+"|"+cif.ID] = struct{}{}
		}

		additions := ledger.Ledger{}
		for _, cif := range oldCIFs {
			if _, ok := current[cif.DBName+"|"+cif.ID]; ok {
				continue
			}
			key, err := rawCIFSource(cif)
			if err != nil {
				fatalf("%v", err)
			}
			additions[key] = source.DeprecationIDRemoved
		}

		existing, err := ledger.Load(analyseLedgerFile)
		if err != nil {
			fatalf("%v", err)
		}
		merged, overlap, err := existing.Merge(additions)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %d sources were already deprecated: %v\n", yellow("Warning:"), len(overlap), overlap)
		}
		if err := merged.Save(analyseLedgerFile); err != nil {
			fatalf("%v", err)
		}

		fmt.Printf("\n%s %d removed ids recorded in %s\n\n", green("✓"), len(additions), cyan(analyseLedgerFile))
	},
}

var analyseStructureUpdatedCmd = &cobra.Command{
	Use:   "structure-updated <old-group> <new-group>",
	Short: "Deprecate records whose geometry changed between versions",
	Long: `Compare the curated structures of two database versions and deprecate
every old record whose geometry no longer matches its successor.

An updated structure must not already be in the ledger: that would mean
the record was deprecated and reworked in the same cycle, which the
pipeline cannot represent. On overlap the pass aborts without writing.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		settings, err := loadMatcherSettings(analyseMatcherSettings)
		if err != nil {
			fatalf("%v", err)
		}
		m := matcher.New(settings)

		old, err := st.GetStructuresByGroups(ctx, []string{args[0]}, sqlite.StructureFilter{})
		if err != nil {
			fatalf("failed to load %s: %v", args[0], err)
		}
		updated, err := st.GetStructuresByGroups(ctx, []string{args[1]}, sqlite.StructureFilter{})
		if err != nil {
			fatalf("failed to load %s: %v", args[1], err)
		}

		successors := make(map[string]*types.Structure, len(updated))
		for _, structure := range updated {
			successors[structure.Source.Database+"|"+structure.Source.ID] = structure
		}

		additions := ledger.Ledger{}
		for _, structure := range old {
			successor, ok := successors[structure.Source.Database+"|"+structure.Source.ID]
			if !ok {
				continue
			}
			if structure.Geometry == nil || successor.Geometry == nil {
				continue
			}
			same, err := m.Fit(structure.Geometry, successor.Geometry)
			if err != nil {
				fatalf("failed to compare %s: %v", structure.Source, err)
			}
			if !same {
				additions[structure.Source.String()] = source.DeprecationStructureUpdated
			}
		}

		existing, err := ledger.Load(analyseLedgerFile)
		if err != nil {
			fatalf("%v", err)
		}
		merged, overlap, err := existing.Merge(additions)
		if err != nil {
			fatalf("updated sources already deprecated, refusing to write: %v", overlap)
		}
		if err := merged.Save(analyseLedgerFile); err != nil {
			fatalf("%v", err)
		}

		fmt.Printf("\n%s %d updated structures recorded in %s\n\n", green("✓"), len(additions), cyan(analyseLedgerFile))
	},
}

var analyseIncorrectFormulaCmd = &cobra.Command{
	Use:   "incorrect-formula",
	Short: "Deprecate structures flagged with a formula mismatch",
	Long: `Deprecate every structure the cleaning pipeline flagged with a formula
mismatch.

A flagged structure may already be deprecated for another reason; pass
--overwrite to replace those entries, otherwise the pass aborts.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		sources, err := st.IncorrectFormulaSources(ctx)
		if err != nil {
			fatalf("failed to load flagged sources: %v", err)
		}

		additions := ledger.Ledger{}
		for _, src := range sources {
			additions[src] = source.DeprecationIncorrectFormula
		}

		existing, err := ledger.Load(analyseLedgerFile)
		if err != nil {
			fatalf("%v", err)
		}
		merged, overlap, err := existing.Merge(additions)
		if err != nil && !analyseOverwrite {
			fatalf("sources already deprecated (rerun with --overwrite to replace): %v", overlap)
		}
		if err := merged.Save(analyseLedgerFile); err != nil {
			fatalf("%v", err)
		}

		fmt.Printf("\n%s %d flagged structures recorded in %s\n\n", green("✓"), len(additions), cyan(analyseLedgerFile))
	},
}

// rawCIFSource returns the canonical source string of a raw CIF record.
func rawCIFSource(cif *types.RawCIF) (string, error) {
	database, err := source.DatabaseFromName(cif.DBName)
	if err != nil {
		return "", fmt.Errorf("raw CIF %s: %w", cif.UUID, err)
	}
	return source.Source{Database: database, Version: cif.Version, ID: cif.ID}.String(), nil
}

func init() {
	analyseCmd.PersistentFlags().StringVar(&analyseLedgerFile, "ledger", "deprecated.json", "deprecation ledger file to extend")
	analyseStructureUpdatedCmd.Flags().StringVar(&analyseMatcherSettings, "matcher-settings", "", "YAML file with structure-matcher tolerances")
	analyseIncorrectFormulaCmd.Flags().BoolVar(&analyseOverwrite, "overwrite", false, "replace entries already in the ledger")
	analyseCmd.AddCommand(analyseIDRemovedCmd)
	analyseCmd.AddCommand(analyseStructureUpdatedCmd)
	analyseCmd.AddCommand(analyseIncorrectFormulaCmd)
	rootCmd.AddCommand(analyseCmd)
}
