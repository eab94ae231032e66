package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mc3d/mc3d-source/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeDisjoint(t *testing.T) {
	a := Ledger{"cod|1|100": source.DeprecationIDRemoved, "cod|1|101": source.DeprecationIDRemoved}
	b := Ledger{"icsd|1|1": source.DeprecationStructureUpdated}

	merged, overlap, err := a.Merge(b)
	require.NoError(t, err)
	assert.Empty(t, overlap)
	assert.Len(t, merged, len(a)+len(b))
	assert.Equal(t, source.DeprecationStructureUpdated, merged["icsd|1|1"])
}

func TestMergeOverlapReportsConflict(t *testing.T) {
	a := Ledger{"cod|1|100": source.DeprecationIDRemoved}
	b := Ledger{"cod|1|100": source.DeprecationStructureUpdated, "mpds|1|1": source.DeprecationIDRemoved}

	merged, overlap, err := a.Merge(b)
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, []string{"cod|1|100"}, overlap)
	// The union is still produced for callers that choose to overwrite;
	// the new entry wins.
	assert.Equal(t, source.DeprecationStructureUpdated, merged["cod|1|100"])
	assert.Len(t, merged, 2)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deprecation.json")
	ledger := Ledger{
		"cod|57.4|1010064": source.DeprecationIDRemoved,
		"mpds|1.0|S377":    source.DeprecationIncorrectFormula,
	}

	require.NoError(t, ledger.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ledger, loaded)
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	ledger, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Empty(t, ledger)
}

func TestLoadRejectsBadEntries(t *testing.T) {
	dir := t.TempDir()

	badReason := filepath.Join(dir, "reason.json")
	require.NoError(t, os.WriteFile(badReason, []byte(`{"cod|1|100": "retired"}`), 0644))
	_, err := Load(badReason)
	assert.Error(t, err)

	badKey := filepath.Join(dir, "key.json")
	require.NoError(t, os.WriteFile(badKey, []byte(`{"cod|100": "id_removed"}`), 0644))
	_, err = Load(badKey)
	require.Error(t, err)
	assert.True(t, errors.Is(err, source.ErrFormat))
}

func TestConflictLeavesFileUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deprecation.json")
	existing := Ledger{"cod|1|100": source.DeprecationIDRemoved}
	require.NoError(t, existing.Save(path))

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// The caller observes the conflict and does not save.
	loaded, err := Load(path)
	require.NoError(t, err)
	_, _, err = loaded.Merge(Ledger{"cod|1|100": source.DeprecationStructureUpdated})
	require.ErrorIs(t, err, ErrConflict)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
