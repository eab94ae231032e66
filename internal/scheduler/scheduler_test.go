package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mc3d/mc3d-source/internal/cluster"
	"github.com/mc3d/mc3d-source/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubMatcher fits geometries whose species labels share a prefix group
// in the pairs table, and counts oracle calls across workers.
type stubMatcher struct {
	pairs map[string]bool
	calls atomic.Int64
	fail  string // label whose comparisons error out
}

func (m *stubMatcher) Fit(a, b *types.Geometry) (bool, error) {
	m.calls.Add(1)
	x, y := a.Species[0], b.Species[0]
	if x == m.fail || y == m.fail {
		return false, fmt.Errorf("malformed geometry %s", m.fail)
	}
	if x > y {
		x, y = y, x
	}
	return m.pairs[x+"~"+y], nil
}

func (m *stubMatcher) GroupStructures(geoms []*types.Geometry) ([][]int, error) {
	return nil, fmt.Errorf("not used")
}

func entry(label string) cluster.Entry {
	return cluster.Entry{
		Source:   label,
		Geometry: &types.Geometry{Species: []string{label}, Positions: [][3]float64{{0, 0, 0}}},
	}
}

func testBuckets() map[string][]cluster.Entry {
	return map[string][]cluster.Entry{
		"FeO|225":  {entry("cod|1|100"), entry("cod|1|101"), entry("icsd|1|1")},
		"NaCl|225": {entry("mpds|1|1"), entry("mpds|1|2")},
		"SiO2|154": {entry("cod|1|500")},
	}
}

func testMatcher() *stubMatcher {
	return &stubMatcher{pairs: map[string]bool{
		"cod|1|100~cod|1|101": true,
		"cod|1|101~icsd|1|1":  true,
		"cod|1|100~icsd|1|1":  true,
	}}
}

func checkFamilies(t *testing.T, checkpoint Checkpoint) {
	t.Helper()
	families := checkpoint.Flatten()
	require.Len(t, families, 4)

	bySize := map[int]int{}
	for _, family := range families {
		bySize[len(family)]++
	}
	assert.Equal(t, map[int]int{3: 1, 1: 3}, bySize)
}

func TestRunClustersAllBuckets(t *testing.T) {
	s, err := New(Config{Strategy: cluster.StrategyGraph, Matcher: testMatcher(), Workers: 2})
	require.NoError(t, err)

	checkpoint, err := s.Run(context.Background(), testBuckets())
	require.NoError(t, err)
	require.Len(t, checkpoint, 3)
	checkFamilies(t, checkpoint)

	// The singleton bucket is folded in without scheduling.
	assert.Equal(t, [][]string{{"cod|1|500"}}, checkpoint["SiO2|154"])
}

func TestRunResumesFromCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	m := testMatcher()

	s, err := New(Config{Strategy: cluster.StrategyGraph, Matcher: m, CheckpointPath: path})
	require.NoError(t, err)

	first, err := s.Run(context.Background(), testBuckets())
	require.NoError(t, err)
	callsAfterFirst := m.calls.Load()
	assert.Positive(t, callsAfterFirst)

	// Rerun with the completed checkpoint present: zero oracle calls,
	// identical output.
	second, err := s.Run(context.Background(), testBuckets())
	require.NoError(t, err)
	assert.Equal(t, callsAfterFirst, m.calls.Load(), "resume must not call the oracle")
	assert.Equal(t, first, second)
}

func TestRunChunkedPersistsBetweenChunks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")

	var order []string
	var mu sync.Mutex

	s, err := New(Config{
		Strategy:       cluster.StrategyGraph,
		Matcher:        testMatcher(),
		Workers:        1,
		ChunkSize:      1,
		CheckpointPath: path,
		OnProgress: func(p Progress) {
			mu.Lock()
			order = append(order, p.Bucket)
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	checkpoint, err := s.Run(context.Background(), testBuckets())
	require.NoError(t, err)
	checkFamilies(t, checkpoint)

	// Both multi-structure buckets went through the pool, largest
	// first; the singleton never did.
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"FeO|225", "NaCl|225"}, order)

	// The persisted file matches the returned mapping.
	saved, err := LoadCheckpoint(path)
	require.NoError(t, err)
	assert.Equal(t, checkpoint, saved)
}

func TestRunFailingBucketAbortsChunkWithoutPersisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	m := testMatcher()
	m.fail = "mpds|1|2"

	s, err := New(Config{Strategy: cluster.StrategyGraph, Matcher: m, CheckpointPath: path})
	require.NoError(t, err)

	_, err = s.Run(context.Background(), testBuckets())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NaCl|225")

	// Nothing was persisted: the failure aborted the only chunk.
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "checkpoint must not exist after a failed chunk")
}

func TestCheckpointSaveIsAtomicJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	checkpoint := Checkpoint{"FeO|225": {{"cod|1|100", "icsd|1|1"}}}

	require.NoError(t, checkpoint.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var parsed map[string][][]string
	require.NoError(t, json.Unmarshal(data, &parsed))

	loaded, err := LoadCheckpoint(path)
	require.NoError(t, err)
	assert.Equal(t, checkpoint, loaded)

	// No stray temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoadCheckpointMissingFile(t *testing.T) {
	checkpoint, err := LoadCheckpoint(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Empty(t, checkpoint)
}

func TestLoadCheckpointRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := LoadCheckpoint(path)
	assert.Error(t, err)
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Strategy: cluster.StrategyGraph})
	assert.Error(t, err, "matcher is required")

	_, err = New(Config{Strategy: cluster.StrategyGraph, Matcher: testMatcher(), ChunkSize: -1})
	assert.Error(t, err)
}
