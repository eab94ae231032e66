package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mc3d/mc3d-source/internal/curation"
	"github.com/mc3d/mc3d-source/internal/matcher"
)

var (
	updateOldGroup        string
	updateNewGroup        string
	updateTargetGroup     string
	updateMatcherSettings string
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Merge a new database version into the current selection",
	Long: `Merge the curated structures of a new database version into a target
group. Records present in both versions keep the old structure when the
geometries still match and take the new one when they changed; records
without a predecessor are added as-is.

Records already in the target group are skipped, so an interrupted pass
can be rerun.

Example:
  mc3d update --old cod/structure/curated/v1 \
              --new cod/structure/curated/v2 \
              --target cod/structure/current`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		settings, err := loadMatcherSettings(updateMatcherSettings)
		if err != nil {
			fatalf("%v", err)
		}

		stats, err := curation.Update(context.Background(), curation.UpdateConfig{
			Store:       st,
			Matcher:     matcher.New(settings),
			OldGroup:    updateOldGroup,
			NewGroup:    updateNewGroup,
			TargetGroup: updateTargetGroup,
		})
		if err != nil {
			fatalf("%v", err)
		}

		fmt.Printf("\n%s Updated %s\n\n", green("✓"), cyan(updateTargetGroup))
		fmt.Printf("  Kept:    %d %s\n", stats.Kept, gray("(geometry unchanged)"))
		fmt.Printf("  Updated: %d %s\n", stats.Updated, gray("(geometry changed)"))
		fmt.Printf("  Added:   %d %s\n", stats.Added, gray("(new records)"))
		if stats.Skipped > 0 {
			fmt.Printf("  Skipped: %d %s\n", stats.Skipped, gray("(already merged)"))
		}
		fmt.Println()
	},
}

// loadMatcherSettings returns the matcher settings from a YAML file, or
// the defaults when no file is given.
func loadMatcherSettings(path string) (matcher.Settings, error) {
	if path == "" {
		return matcher.DefaultSettings(), nil
	}
	return matcher.LoadSettings(path)
}

func init() {
	updateCmd.Flags().StringVar(&updateOldGroup, "old", "", "curated group of the previous database version")
	updateCmd.Flags().StringVar(&updateNewGroup, "new", "", "curated group of the new database version")
	updateCmd.Flags().StringVar(&updateTargetGroup, "target", "", "group receiving the merged selection")
	updateCmd.Flags().StringVar(&updateMatcherSettings, "matcher-settings", "", "YAML file with structure-matcher tolerances")
	_ = updateCmd.MarkFlagRequired("old")
	_ = updateCmd.MarkFlagRequired("new")
	_ = updateCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(updateCmd)
}
