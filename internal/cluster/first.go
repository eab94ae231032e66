package cluster

import (
	"context"
	"fmt"

	"github.com/mc3d/mc3d-source/internal/matcher"
	"github.com/mc3d/mc3d-source/internal/types"
)

type family struct {
	reference *types.Geometry
	sources   []string
}

// clusterFirst joins each structure to the first existing family whose
// reference geometry it fits, scanning families in discovery order.
func clusterFirst(ctx context.Context, entries []Entry, m matcher.Matcher) ([][]string, error) {
	var families []*family

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		placed := false
		for _, fam := range families {
			fit, err := m.Fit(entry.Geometry, fam.reference)
			if err != nil {
				return nil, fmt.Errorf("matching %s: %w", entry.Source, err)
			}
			if fit {
				fam.sources = append(fam.sources, entry.Source)
				placed = true
				break
			}
		}
		if !placed {
			families = append(families, &family{reference: entry.Geometry, sources: []string{entry.Source}})
		}
	}

	partition := make([][]string, len(families))
	for i, fam := range families {
		partition[i] = fam.sources
	}
	return partition, nil
}
