// mc3d is the command-line interface of the MC3D source curation
// pipeline: importing raw CIF records, curating parsed structures,
// clustering them into uniqueness families and selecting the golden
// representative of every family.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mc3d/mc3d-source/internal/store"
)

var (
	dbPath string
	st     store.Storage
)

var rootCmd = &cobra.Command{
	Use:   "mc3d",
	Short: "Curate unique crystal structures across external databases",
	Long: `mc3d maintains the MC3D source database: crystal structures imported
from external databases (COD, ICSD, MPDS), curated, clustered into
uniqueness families and reduced to one golden representative per
family.

The typical curation cycle is:

  mc3d import cod cod-dump.jsonl      # load raw CIF records
  mc3d curate cod                     # derive structure extras
  mc3d uniq cod/structure/curated     # cluster into families
  mc3d select uniques.json            # pick golden representatives`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "help", "completion", "version":
			return nil
		}
		cfg := store.DefaultConfig()
		if dbPath != "" {
			cfg.Path = dbPath
		}
		opened, err := store.NewStorage(context.Background(), cfg)
		if err != nil {
			return fmt.Errorf("failed to open structure store: %w", err)
		}
		st = opened
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if st != nil {
			_ = st.Close()
		}
	},
}

var (
	green  = color.New(color.FgGreen).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed, color.Bold).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

// fatalf prints an error and exits. Command Run functions use it for
// unrecoverable failures.
func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s %s\n", red("Error:"), fmt.Sprintf(format, args...))
	os.Exit(1)
}

func main() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the structure store (default .mc3d/mc3d.db)")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
