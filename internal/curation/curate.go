// Package curation derives structure extras from cleaning results and
// maintains the curated structure group across database versions.
package curation

import (
	"context"
	"fmt"

	"github.com/mc3d/mc3d-source/internal/source"
	"github.com/mc3d/mc3d-source/internal/store"
	"github.com/mc3d/mc3d-source/internal/store/sqlite"
)

// Cleaning-workflow exit statuses with a defined meaning. Zero is
// success; anything else not listed here is a hard cleaning failure.
const (
	ExitCleaned         = 0
	ExitMissingElements = 430
	ExitDifferentComp   = 431
	ExitCheckFailed     = 432
)

// incorrectFormulaByExit maps non-fatal cleaning statuses to the
// incorrect_formula flag carried on the structure.
var incorrectFormulaByExit = map[int]string{
	ExitMissingElements: "missing_elements",
	ExitDifferentComp:   "different_comp",
	ExitCheckFailed:     "check_failed",
}

// CurateConfig configures a curate pass.
type CurateConfig struct {
	Store store.Storage

	// RawGroup is the raw-CIF group to curate, conventionally
	// "{database}/cif/raw".
	RawGroup string

	// CuratedGroup receives the structures that pass curation,
	// conventionally "{database}/structure/curated".
	CuratedGroup string
}

// CurateStats summarizes a curate pass.
type CurateStats struct {
	Processed int
	Curated   int
	Flagged   int
	Failed    int
}

// Curate walks the cleaning results of a raw-CIF group, writes the
// derived extras onto each parsed structure and collects the curated
// ones into the curated group. The whole pass commits atomically.
func Curate(ctx context.Context, cfg CurateConfig) (*CurateStats, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("curate requires a store")
	}

	joins, err := cfg.Store.GetCleanJoinsByGroup(ctx, cfg.RawGroup)
	if err != nil {
		return nil, fmt.Errorf("failed to load clean results for %s: %w", cfg.RawGroup, err)
	}

	stats := &CurateStats{}
	updates := make(map[string]sqlite.CurationUpdate, len(joins))
	var curated []string

	for _, join := range joins {
		stats.Processed++

		flag, known := incorrectFormulaByExit[join.ExitStatus]
		if join.ExitStatus != ExitCleaned && !known {
			stats.Failed++
			continue
		}

		database, err := source.DatabaseFromName(join.CIF.DBName)
		if err != nil {
			return nil, fmt.Errorf("failed to curate %s: %w", join.CIF.UUID, err)
		}

		update := sqlite.CurationUpdate{
			Source: source.Source{
				Database: database,
				Version:  join.CIF.Version,
				ID:       join.CIF.ID,
			},
			PartialOccupancies: join.Structure.PartialOccupancies,
			IncorrectFormula:   flag,
		}
		// Carry the CIF space group onto the structure only when the
		// file declared exactly one.
		if len(join.CIF.SpacegroupNumbers) == 1 {
			update.CIFSpacegroup = join.CIF.SpacegroupNumbers[0]
		}

		updates[join.Structure.UUID] = update

		if flag != "" {
			stats.Flagged++
			continue
		}
		if join.Structure.PartialOccupancies {
			continue
		}
		curated = append(curated, join.Structure.UUID)
		stats.Curated++
	}

	if err := cfg.Store.ApplyCurationBatch(ctx, updates, cfg.CuratedGroup, curated); err != nil {
		return nil, fmt.Errorf("failed to apply curation batch: %w", err)
	}
	return stats, nil
}
