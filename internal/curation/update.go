package curation

import (
	"context"
	"fmt"

	"github.com/mc3d/mc3d-source/internal/matcher"
	"github.com/mc3d/mc3d-source/internal/store"
	"github.com/mc3d/mc3d-source/internal/store/sqlite"
	"github.com/mc3d/mc3d-source/internal/types"
)

// UpdateConfig configures an update pass between two database versions.
type UpdateConfig struct {
	Store   store.Storage
	Matcher matcher.Matcher

	// OldGroup holds the curated structures of the previous database
	// version, NewGroup those of the new version. TargetGroup receives
	// the merged selection.
	OldGroup    string
	NewGroup    string
	TargetGroup string
}

// UpdateStats summarizes an update pass.
type UpdateStats struct {
	// Kept counts new records whose geometry still matches the previous
	// version, resolved in favor of the old structure.
	Kept int

	// Updated counts records whose geometry changed between versions.
	Updated int

	// Added counts records new in this version.
	Added int

	// Skipped counts records already present in the target group.
	Skipped int
}

// Update merges a new database version into the target group. Records
// that exist in both versions keep the old structure when the
// geometries still match and take the new one when they differ; records
// without a predecessor are added as-is. Records whose bare id is
// already in the target group are skipped, so an interrupted pass can
// be rerun.
func Update(ctx context.Context, cfg UpdateConfig) (*UpdateStats, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("update requires a store")
	}
	if cfg.Matcher == nil {
		return nil, fmt.Errorf("update requires a matcher")
	}

	old, err := cfg.Store.GetStructuresByGroups(ctx, []string{cfg.OldGroup}, sqlite.StructureFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load old structures: %w", err)
	}
	incoming, err := cfg.Store.GetStructuresByGroups(ctx, []string{cfg.NewGroup}, sqlite.StructureFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load new structures: %w", err)
	}
	target, err := cfg.Store.GetStructuresByGroups(ctx, []string{cfg.TargetGroup}, sqlite.StructureFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load target structures: %w", err)
	}

	// Versions change between imports, so predecessors are matched on
	// the bare (database, id) pair.
	bareID := func(s *types.Structure) string {
		return s.Source.Database + "|" + s.Source.ID
	}

	oldByID := make(map[string]*types.Structure, len(old))
	for _, s := range old {
		oldByID[bareID(s)] = s
	}
	done := make(map[string]struct{}, len(target))
	for _, s := range target {
		done[bareID(s)] = struct{}{}
	}

	stats := &UpdateStats{}
	var selected []string

	for _, s := range incoming {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, ok := done[bareID(s)]; ok {
			stats.Skipped++
			continue
		}

		prev, ok := oldByID[bareID(s)]
		if !ok {
			selected = append(selected, s.UUID)
			stats.Added++
			continue
		}

		if prev.Geometry == nil || s.Geometry == nil {
			selected = append(selected, s.UUID)
			stats.Updated++
			continue
		}
		same, err := cfg.Matcher.Fit(prev.Geometry, s.Geometry)
		if err != nil {
			return nil, fmt.Errorf("failed to compare %s against %s: %w", prev.Source, s.Source, err)
		}
		if same {
			selected = append(selected, prev.UUID)
			stats.Kept++
		} else {
			selected = append(selected, s.UUID)
			stats.Updated++
		}
	}

	if _, err := cfg.Store.GetOrCreateGroup(ctx, cfg.TargetGroup); err != nil {
		return nil, fmt.Errorf("failed to create target group: %w", err)
	}
	if err := cfg.Store.AddToGroup(ctx, cfg.TargetGroup, selected); err != nil {
		return nil, fmt.Errorf("failed to extend target group: %w", err)
	}
	return stats, nil
}
