// Package bucket partitions candidate structures into independent
// buckets keyed by chemical formula and, optionally, space group. Each
// bucket is later clustered on its own; structures in different buckets
// are never compared.
package bucket

import (
	"context"
	"fmt"

	"github.com/mc3d/mc3d-source/internal/cluster"
	"github.com/mc3d/mc3d-source/internal/matcher"
	"github.com/mc3d/mc3d-source/internal/types"
)

// RecordError is a per-structure failure during bucketing. Bucketing
// collects these and carries on; a single bad geometry must not abort
// the whole pass.
type RecordError struct {
	Source string
	Err    error
}

func (e RecordError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

// Partition buckets structures by Hill-compact formula, suffixed with
// "|{spacegroup}" when bySpacegroup is set. Structures without a
// precomputed space-group number are sent through the symmetry detector
// at the fixed tolerance matcher.DefaultSymprec.
//
// Note: when bucketing by space group, two true duplicates whose
// independently-estimated space-group numbers disagree land in
// different buckets and are never compared. Comparing a run against one
// without the space-group suffix is the only way to spot this.
//
// The returned buckets partition the input minus the errored entries;
// insertion order within a bucket follows the input order.
func Partition(ctx context.Context, structures []*types.Structure, bySpacegroup bool, det matcher.SymmetryDetector) (map[string][]cluster.Entry, []RecordError) {
	buckets := make(map[string][]cluster.Entry)
	var errs []RecordError

	for _, structure := range structures {
		sourceString := structure.Source.String()
		key := structure.Formula

		if bySpacegroup {
			number := structure.CIFSpacegroup
			if number == 0 {
				if det == nil {
					errs = append(errs, RecordError{Source: sourceString, Err: fmt.Errorf("no space group recorded and no symmetry detector configured")})
					continue
				}
				detected, err := det.SpacegroupNumber(ctx, structure.Geometry, matcher.DefaultSymprec)
				if err != nil {
					errs = append(errs, RecordError{Source: sourceString, Err: fmt.Errorf("symmetry detection: %w", err)})
					continue
				}
				number = detected
			}
			key = fmt.Sprintf("%s|%d", key, number)
		}

		buckets[key] = append(buckets[key], cluster.Entry{Source: sourceString, Geometry: structure.Geometry})
	}
	return buckets, errs
}
