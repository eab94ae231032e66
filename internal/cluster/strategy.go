// Package cluster partitions the structures of one bucket into
// uniqueness families using a pairwise similarity oracle.
package cluster

import (
	"context"
	"fmt"

	"github.com/mc3d/mc3d-source/internal/matcher"
	"github.com/mc3d/mc3d-source/internal/types"
)

// Entry is one structure to be clustered: its source string and the
// geometry handed to the oracle.
type Entry struct {
	Source   string
	Geometry *types.Geometry
}

// Strategy selects the clustering algorithm.
type Strategy int

const (
	// StrategyFirst incrementally matches each structure against the
	// first member of every existing family, in insertion order. It is
	// the cheapest strategy but its result can depend on input order
	// when similarity is not exactly transitive.
	StrategyFirst Strategy = iota

	// StrategyGraph computes the full pairwise match matrix and takes
	// the connected components. Order-invariant, O(n^2) oracle calls.
	StrategyGraph

	// StrategyGrouper delegates to the matcher's own bulk grouping.
	// Used as a cross-check against the other two.
	StrategyGrouper
)

// ParseStrategy maps the CLI method names to strategies. The names
// "first", "seb" and "pymatgen" are kept from earlier curation cycles.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "first":
		return StrategyFirst, nil
	case "seb":
		return StrategyGraph, nil
	case "pymatgen":
		return StrategyGrouper, nil
	}
	return 0, fmt.Errorf("unknown clustering method %q (want first, seb or pymatgen)", name)
}

// String returns the CLI name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyFirst:
		return "first"
	case StrategyGraph:
		return "seb"
	case StrategyGrouper:
		return "pymatgen"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// Cluster partitions entries into families of source strings. The empty
// input yields an empty partition and a single entry yields one
// singleton family; neither invokes the oracle.
func (s Strategy) Cluster(ctx context.Context, entries []Entry, m matcher.Matcher) ([][]string, error) {
	switch len(entries) {
	case 0:
		return nil, nil
	case 1:
		return [][]string{{entries[0].Source}}, nil
	}

	switch s {
	case StrategyFirst:
		return clusterFirst(ctx, entries, m)
	case StrategyGraph:
		return clusterGraph(ctx, entries, m)
	case StrategyGrouper:
		return clusterGrouper(entries, m)
	}
	return nil, fmt.Errorf("unknown strategy %d", int(s))
}
