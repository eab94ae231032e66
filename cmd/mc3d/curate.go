package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mc3d/mc3d-source/internal/curation"
)

var (
	curateRawGroup     string
	curateCuratedGroup string
)

var curateCmd = &cobra.Command{
	Use:   "curate <database>",
	Short: "Derive structure extras from cleaning results",
	Long: `Walk the cleaning results of a database's raw-CIF group, write the
derived extras (canonical source, CIF space group, partial-occupancy
and formula flags) onto each parsed structure and collect the curated
structures into the curated group.

Structures with partial occupancies or a formula mismatch are recorded
but left out of the curated group. The whole pass commits atomically.

Example:
  mc3d curate cod`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		database := args[0]

		rawGroup := curateRawGroup
		if rawGroup == "" {
			rawGroup = fmt.Sprintf("%s/cif/raw", database)
		}
		curatedGroup := curateCuratedGroup
		if curatedGroup == "" {
			curatedGroup = fmt.Sprintf("%s/structure/curated", database)
		}

		stats, err := curation.Curate(context.Background(), curation.CurateConfig{
			Store:        st,
			RawGroup:     rawGroup,
			CuratedGroup: curatedGroup,
		})
		if err != nil {
			fatalf("%v", err)
		}

		fmt.Printf("\n%s Curated %s\n\n", green("✓"), cyan(rawGroup))
		fmt.Printf("  Processed: %d\n", stats.Processed)
		fmt.Printf("  Curated:   %d %s\n", stats.Curated, gray("→ "+curatedGroup))
		if stats.Flagged > 0 {
			fmt.Printf("  Flagged:   %d %s\n", stats.Flagged, gray("(formula mismatch)"))
		}
		if stats.Failed > 0 {
			fmt.Printf("  Failed:    %s\n", yellow(fmt.Sprintf("%d (cleaning errors)", stats.Failed)))
		}
		fmt.Println()
	},
}

func init() {
	curateCmd.Flags().StringVar(&curateRawGroup, "raw-group", "", "raw-CIF group to curate (default {database}/cif/raw)")
	curateCmd.Flags().StringVar(&curateCuratedGroup, "curated-group", "", "group receiving curated structures (default {database}/structure/curated)")
	rootCmd.AddCommand(curateCmd)
}
