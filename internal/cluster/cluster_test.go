package cluster

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/mc3d/mc3d-source/internal/matcher"
	"github.com/mc3d/mc3d-source/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMatcher reports fits from an explicit pair table, keyed on the
// single species label each test geometry carries.
type fakeMatcher struct {
	pairs map[string]bool
	calls int
	err   error
}

var _ matcher.Matcher = (*fakeMatcher)(nil)

func pairKey(a, b *types.Geometry) string {
	x, y := a.Species[0], b.Species[0]
	if x > y {
		x, y = y, x
	}
	return x + "~" + y
}

func (f *fakeMatcher) Fit(a, b *types.Geometry) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.pairs[pairKey(a, b)], nil
}

func (f *fakeMatcher) GroupStructures(geoms []*types.Geometry) ([][]int, error) {
	var groups [][]int
	for i, geom := range geoms {
		placed := false
		for gi, group := range groups {
			fit, err := f.Fit(geoms[group[0]], geom)
			if err != nil {
				return nil, err
			}
			if fit {
				groups[gi] = append(groups[gi], i)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []int{i})
		}
	}
	return groups, nil
}

func entry(label string) Entry {
	return Entry{
		Source:   label,
		Geometry: &types.Geometry{Species: []string{label}, Positions: [][3]float64{{0, 0, 0}}},
	}
}

func entries(labels ...string) []Entry {
	out := make([]Entry, len(labels))
	for i, label := range labels {
		out[i] = entry(label)
	}
	return out
}

func matching(pairs ...string) *fakeMatcher {
	table := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		table[p] = true
	}
	return &fakeMatcher{pairs: table}
}

// sortedPartition canonicalizes a partition for comparison: members
// sorted within families, families sorted by first member.
func sortedPartition(partition [][]string) [][]string {
	out := make([][]string, len(partition))
	for i, fam := range partition {
		out[i] = append([]string(nil), fam...)
		sort.Strings(out[i])
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

func TestParseStrategy(t *testing.T) {
	for name, want := range map[string]Strategy{
		"first":    StrategyFirst,
		"seb":      StrategyGraph,
		"pymatgen": StrategyGrouper,
	} {
		got, err := ParseStrategy(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, name, got.String())
	}

	_, err := ParseStrategy("best")
	assert.Error(t, err)
}

func TestEmptyAndSingletonSkipOracle(t *testing.T) {
	ctx := context.Background()

	for _, strategy := range []Strategy{StrategyFirst, StrategyGraph, StrategyGrouper} {
		m := matching()

		partition, err := strategy.Cluster(ctx, nil, m)
		require.NoError(t, err)
		assert.Empty(t, partition, "strategy %s", strategy)

		partition, err = strategy.Cluster(ctx, entries("a"), m)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"a"}}, partition, "strategy %s", strategy)

		assert.Zero(t, m.calls, "strategy %s must not call the oracle", strategy)
	}
}

func TestFirstReferenceBasic(t *testing.T) {
	m := matching("a~b")

	partition, err := StrategyFirst.Cluster(context.Background(), entries("a", "b", "c"), m)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, partition)
}

// A~B and B~C match but A and C do not: the first-reference strategy
// only ever compares against family references, so C starts a new
// family, while the graph strategy joins all three through the A-B-C
// path. Both outcomes are by design.
func TestFirstReferenceOrderDependence(t *testing.T) {
	ctx := context.Background()

	first, err := StrategyFirst.Cluster(ctx, entries("a", "b", "c"), matching("a~b", "b~c"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, first)

	// Starting from b instead, both a and c fit the reference b.
	reordered, err := StrategyFirst.Cluster(ctx, entries("b", "a", "c"), matching("a~b", "b~c"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"b", "a", "c"}}, reordered)

	graph, err := StrategyGraph.Cluster(ctx, entries("a", "b", "c"), matching("a~b", "b~c"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b", "c"}}, sortedPartition(graph))
}

func TestGraphOrderInvariant(t *testing.T) {
	ctx := context.Background()
	orders := [][]string{
		{"a", "b", "c", "d"},
		{"d", "c", "b", "a"},
		{"b", "d", "a", "c"},
	}

	want := [][]string{{"a", "b", "c"}, {"d"}}

	for _, order := range orders {
		partition, err := StrategyGraph.Cluster(ctx, entries(order...), matching("a~b", "b~c"))
		require.NoError(t, err)
		assert.Equal(t, want, sortedPartition(partition), "order %v", order)
	}
}

func TestGraphCallCount(t *testing.T) {
	m := matching("a~b")

	_, err := StrategyGraph.Cluster(context.Background(), entries("a", "b", "c", "d"), m)
	require.NoError(t, err)
	assert.Equal(t, 6, m.calls, "graph strategy makes n*(n-1)/2 oracle calls")
}

func TestGrouperDelegates(t *testing.T) {
	partition, err := StrategyGrouper.Cluster(context.Background(), entries("a", "b", "c"), matching("a~b"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, sortedPartition(partition))
}

func TestOracleErrorAborts(t *testing.T) {
	broken := &fakeMatcher{err: fmt.Errorf("malformed geometry")}

	for _, strategy := range []Strategy{StrategyFirst, StrategyGraph, StrategyGrouper} {
		_, err := strategy.Cluster(context.Background(), entries("a", "b"), broken)
		assert.Error(t, err, "strategy %s", strategy)
	}
}

func TestClusterHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := StrategyGraph.Cluster(ctx, entries("a", "b"), matching())
	assert.ErrorIs(t, err, context.Canceled)
}
