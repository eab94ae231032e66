package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mc3d/mc3d-source/internal/importer"
)

var (
	importGroup     string
	importBatchSize int
	importRate      float64
	importDryRun    bool
)

var importCmd = &cobra.Command{
	Use:   "import <database> <dump-file>",
	Short: "Import raw CIF records from a database dump",
	Long: `Import raw CIF records from a JSON-lines database dump into the
structure store and collect them in the database's raw-CIF group.

Records already present (same database, version and id) are skipped, so
an interrupted import can simply be rerun.

Example:
  mc3d import cod cod-2024.jsonl
  mc3d import icsd icsd-2024.jsonl --batch-size 500 --rate 2`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		database, dumpPath := args[0], args[1]

		group := importGroup
		if group == "" {
			group = fmt.Sprintf("%s/cif/raw", database)
		}

		reader, err := importer.NewFileReader(dumpPath)
		if err != nil {
			fatalf("%v", err)
		}
		defer reader.Close()

		im, err := importer.New(importer.Config{
			Store:            st,
			Group:            group,
			BatchSize:        importBatchSize,
			BatchesPerSecond: importRate,
			DryRun:           importDryRun,
		})
		if err != nil {
			fatalf("%v", err)
		}

		stats, err := im.Run(context.Background(), reader)
		if err != nil {
			fatalf("import failed after %d records: %v", stats.Read, err)
		}

		fmt.Printf("\n%s Imported %s into %s\n\n", green("✓"), cyan(database), cyan(group))
		fmt.Printf("  Read:     %d\n", stats.Read)
		fmt.Printf("  Imported: %d\n", stats.Imported)
		if stats.Skipped > 0 {
			fmt.Printf("  Skipped:  %d %s\n", stats.Skipped, gray("(already stored)"))
		}
		if importDryRun {
			fmt.Printf("\n  %s\n", yellow("Dry run: nothing was written"))
		}
		fmt.Println()
	},
}

func init() {
	importCmd.Flags().StringVar(&importGroup, "group", "", "raw-CIF group label (default {database}/cif/raw)")
	importCmd.Flags().IntVar(&importBatchSize, "batch-size", 1000, "records per store batch")
	importCmd.Flags().Float64Var(&importRate, "rate", 0, "maximum batches per second (0 = unthrottled)")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "count records without writing")
	rootCmd.AddCommand(importCmd)
}
