package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mc3d/mc3d-source/internal/types"
)

func TestRawCIFSource(t *testing.T) {
	src, err := rawCIFSource(&types.RawCIF{
		DBName:  "Crystallography Open Database",
		Version: "2024.1",
		ID:      "1000044",
	})
	require.NoError(t, err)
	assert.Equal(t, "cod|2024.1|1000044", src)

	_, err = rawCIFSource(&types.RawCIF{DBName: "Some Other Database", ID: "1"})
	assert.Error(t, err)
}

func TestLoadMatcherSettingsDefaults(t *testing.T) {
	settings, err := loadMatcherSettings("")
	require.NoError(t, err)
	assert.Equal(t, 0.2, settings.Ltol)

	dir := t.TempDir()
	path := filepath.Join(dir, "matcher.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ltol: 0.4\n"), 0o644))

	settings, err = loadMatcherSettings(path)
	require.NoError(t, err)
	assert.Equal(t, 0.4, settings.Ltol)
	assert.Equal(t, 5.0, settings.AngleTol, "keys absent from the file keep their defaults")
}
