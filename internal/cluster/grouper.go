package cluster

import (
	"fmt"

	"github.com/mc3d/mc3d-source/internal/matcher"
	"github.com/mc3d/mc3d-source/internal/types"
)

// clusterGrouper hands the whole bucket to the matcher's bulk grouping.
func clusterGrouper(entries []Entry, m matcher.Matcher) ([][]string, error) {
	geoms := make([]*types.Geometry, len(entries))
	for i, entry := range entries {
		geoms[i] = entry.Geometry
	}

	groups, err := m.GroupStructures(geoms)
	if err != nil {
		return nil, fmt.Errorf("grouping structures: %w", err)
	}

	partition := make([][]string, len(groups))
	for gi, group := range groups {
		partition[gi] = make([]string, len(group))
		for i, index := range group {
			if index < 0 || index >= len(entries) {
				return nil, fmt.Errorf("grouping returned invalid index %d for %d structures", index, len(entries))
			}
			partition[gi][i] = entries[index].Source
		}
	}
	return partition, nil
}
