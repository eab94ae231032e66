package matcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mc3d/mc3d-source/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cubicGeometry(a float64, species ...string) *types.Geometry {
	positions := make([][3]float64, len(species))
	for i := range positions {
		positions[i] = [3]float64{float64(i) * 0.5, 0, 0}
	}
	return &types.Geometry{
		Lattice:   [3][3]float64{{a, 0, 0}, {0, a, 0}, {0, 0, a}},
		Species:   species,
		Positions: positions,
	}
}

func TestFitIdenticalStructures(t *testing.T) {
	m := New(DefaultSettings())

	a := cubicGeometry(4.2, "Na", "Cl")
	b := cubicGeometry(4.2, "Na", "Cl")

	fit, err := m.Fit(a, b)
	require.NoError(t, err)
	assert.True(t, fit)
}

func TestFitWithinLengthTolerance(t *testing.T) {
	settings := DefaultSettings()
	settings.Scale = false
	m := New(settings)

	fit, err := m.Fit(cubicGeometry(4.0, "Fe", "O"), cubicGeometry(4.5, "Fe", "O"))
	require.NoError(t, err)
	assert.True(t, fit, "12%% length difference should be inside ltol=0.2")

	fit, err = m.Fit(cubicGeometry(4.0, "Fe", "O"), cubicGeometry(6.0, "Fe", "O"))
	require.NoError(t, err)
	assert.False(t, fit, "50%% length difference should be outside ltol=0.2")
}

func TestFitRejectsDifferentComposition(t *testing.T) {
	m := New(DefaultSettings())

	fit, err := m.Fit(cubicGeometry(4.2, "Na", "Cl"), cubicGeometry(4.2, "K", "Cl"))
	require.NoError(t, err)
	assert.False(t, fit)
}

func TestFitScalesVolume(t *testing.T) {
	// A uniformly expanded cell matches only when volume scaling is on.
	a := cubicGeometry(4.2, "Na", "Cl")
	b := cubicGeometry(5.5, "Na", "Cl")

	fit, err := New(DefaultSettings()).Fit(a, b)
	require.NoError(t, err)
	assert.True(t, fit)

	settings := DefaultSettings()
	settings.Scale = false
	fit, err = New(settings).Fit(a, b)
	require.NoError(t, err)
	assert.False(t, fit)
}

func TestFitErrorsOnMalformedGeometry(t *testing.T) {
	m := New(DefaultSettings())

	_, err := m.Fit(nil, cubicGeometry(4.2, "Na"))
	assert.Error(t, err)

	broken := cubicGeometry(4.2, "Na", "Cl")
	broken.Positions = broken.Positions[:1]
	_, err = m.Fit(broken, cubicGeometry(4.2, "Na", "Cl"))
	assert.Error(t, err)
}

func TestGroupStructures(t *testing.T) {
	m := New(DefaultSettings())

	geoms := []*types.Geometry{
		cubicGeometry(4.2, "Na", "Cl"),
		cubicGeometry(5.6, "K", "Br"),
		cubicGeometry(4.25, "Na", "Cl"),
	}

	groups, err := m.GroupStructures(geoms)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, []int{0, 2}, groups[0])
	assert.Equal(t, []int{1}, groups[1])
}

func TestLoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matcher.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ltol: 0.4\nangle_tol: 10\n"), 0644))

	settings, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, 0.4, settings.Ltol)
	assert.Equal(t, 10.0, settings.AngleTol)
	// Unset keys keep defaults.
	assert.Equal(t, 0.3, settings.Stol)
	assert.True(t, settings.Scale)
}

func TestLoadSettingsMissingFile(t *testing.T) {
	_, err := LoadSettings(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
