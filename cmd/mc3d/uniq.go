package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mc3d/mc3d-source/internal/bucket"
	"github.com/mc3d/mc3d-source/internal/cluster"
	"github.com/mc3d/mc3d-source/internal/matcher"
	"github.com/mc3d/mc3d-source/internal/scheduler"
	"github.com/mc3d/mc3d-source/internal/store/sqlite"
)

var (
	uniqOutputFile      string
	uniqMethod          string
	uniqSortBySpg       bool
	uniqMatcherSettings string
	uniqParallelize     int
	uniqChunkSize       int
	uniqCheckpoint      string
	uniqContains        []string
	uniqSkip            []string
	uniqSymmetryCmd     string
)

var uniqCmd = &cobra.Command{
	Use:   "uniq <source-group>...",
	Short: "Cluster curated structures into uniqueness families",
	Long: `Cluster the structures of one or more source groups into uniqueness
families. Structures are first bucketed by reduced formula (and space
group, with --sort-by-spg); each bucket is then clustered independently
on a worker pool.

Results are checkpointed per chunk of buckets, so an interrupted run
resumes where it left off without repeating any comparison. The family
partition is written as a JSON list of source-string lists.

Methods:
  first     match against the first member of each family (cheapest)
  seb       full pairwise matrix, connected components (order-invariant)
  pymatgen  delegate grouping to the structure matcher (cross-check)

Example:
  mc3d uniq cod/structure/curated icsd/structure/curated \
       --sort-by-spg -o uniques.json --parallelize 10 --chunk-size 50`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		strategy, err := cluster.ParseStrategy(uniqMethod)
		if err != nil {
			fatalf("%v", err)
		}
		settings, err := loadMatcherSettings(uniqMatcherSettings)
		if err != nil {
			fatalf("%v", err)
		}

		filter := sqlite.StructureFilter{
			Contains:                uniqContains,
			Skip:                    uniqSkip,
			ExcludeIncorrectFormula: true,
		}
		structures, err := st.GetStructuresByGroups(ctx, args, filter)
		if err != nil {
			fatalf("failed to load structures: %v", err)
		}
		if len(structures) == 0 {
			fatalf("no structures in %s match the filter", strings.Join(args, ", "))
		}
		fmt.Printf("%s %d structures from %s\n", cyan("Loaded"), len(structures), strings.Join(args, ", "))

		var detector matcher.SymmetryDetector
		if uniqSymmetryCmd != "" {
			detector = &matcher.CommandDetector{Command: strings.Fields(uniqSymmetryCmd)}
		}

		buckets, recordErrs := bucket.Partition(ctx, structures, uniqSortBySpg, detector)
		for _, recordErr := range recordErrs {
			fmt.Fprintf(os.Stderr, "%s %v\n", yellow("Warning:"), recordErr)
		}
		fmt.Printf("%s %d buckets", cyan("Partitioned into"), len(buckets))
		if len(recordErrs) > 0 {
			fmt.Printf(" %s", yellow(fmt.Sprintf("(%d structures dropped)", len(recordErrs))))
		}
		fmt.Println()

		checkpointPath := uniqCheckpoint
		if checkpointPath == "" {
			checkpointPath = uniqOutputFile + ".checkpoint"
		}

		sched, err := scheduler.New(scheduler.Config{
			Strategy:       strategy,
			Matcher:        matcher.New(settings),
			Workers:        uniqParallelize,
			ChunkSize:      uniqChunkSize,
			CheckpointPath: checkpointPath,
			OnProgress: func(p scheduler.Progress) {
				fmt.Printf("  %s %s (%d structures)\n", gray("→"), p.Bucket, p.Size)
			},
		})
		if err != nil {
			fatalf("%v", err)
		}

		checkpoint, err := sched.Run(ctx, buckets)
		if err != nil {
			fatalf("clustering failed: %v", err)
		}

		families := checkpoint.Flatten()
		data, err := json.MarshalIndent(families, "", "  ")
		if err != nil {
			fatalf("failed to encode families: %v", err)
		}
		if err := os.WriteFile(uniqOutputFile, append(data, '\n'), 0644); err != nil {
			fatalf("failed to write %s: %v", uniqOutputFile, err)
		}

		fmt.Printf("\n%s %d families written to %s\n\n", green("✓"), len(families), cyan(uniqOutputFile))
	},
}

func init() {
	uniqCmd.Flags().StringVarP(&uniqOutputFile, "output-file", "o", "uniques.json", "family partition output file")
	uniqCmd.Flags().StringVar(&uniqMethod, "method", "first", "clustering method: first, seb or pymatgen")
	uniqCmd.Flags().BoolVar(&uniqSortBySpg, "sort-by-spg", false, "bucket by space group in addition to formula")
	uniqCmd.Flags().StringVar(&uniqMatcherSettings, "matcher-settings", "", "YAML file with structure-matcher tolerances")
	uniqCmd.Flags().IntVar(&uniqParallelize, "parallelize", scheduler.DefaultWorkers, "worker pool size")
	uniqCmd.Flags().IntVar(&uniqChunkSize, "chunk-size", 0, "buckets per checkpoint write (0 = one chunk)")
	uniqCmd.Flags().StringVar(&uniqCheckpoint, "checkpoint", "", "checkpoint file (default {output-file}.checkpoint)")
	uniqCmd.Flags().StringSliceVarP(&uniqContains, "contains", "c", nil, "only structures containing these elements")
	uniqCmd.Flags().StringSliceVarP(&uniqSkip, "skip", "S", nil, "drop structures containing these elements")
	uniqCmd.Flags().StringVar(&uniqSymmetryCmd, "symmetry-command", "", "external command detecting space groups (for --sort-by-spg)")
	rootCmd.AddCommand(uniqCmd)
}
