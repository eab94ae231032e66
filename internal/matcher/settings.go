// Package matcher wraps the geometric structure-matching capability
// behind small interfaces, so the clustering engine never depends on a
// concrete matching algorithm.
package matcher

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings configures the tolerance of the structure matcher. The zero
// value is not useful; start from DefaultSettings.
type Settings struct {
	// Ltol is the fractional length tolerance.
	Ltol float64 `yaml:"ltol"`

	// Stol is the site tolerance, in units of the average free length
	// per atom.
	Stol float64 `yaml:"stol"`

	// AngleTol is the angle tolerance in degrees.
	AngleTol float64 `yaml:"angle_tol"`

	// PrimitiveCell reduces structures to their primitive cell before
	// matching. Off here: curated structures are already primitivized.
	PrimitiveCell bool `yaml:"primitive_cell"`

	// Scale rescales structures to equal volume before matching.
	Scale bool `yaml:"scale"`

	AttemptSupercell bool `yaml:"attempt_supercell"`
}

// DefaultSettings returns the matcher defaults used across curation
// cycles.
func DefaultSettings() Settings {
	return Settings{
		Ltol:             0.2,
		Stol:             0.3,
		AngleTol:         5,
		PrimitiveCell:    false,
		Scale:            true,
		AttemptSupercell: false,
	}
}

// LoadSettings reads matcher settings from a YAML file. Keys absent from
// the file keep their default values.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("reading matcher settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("parsing matcher settings: %w", err)
	}
	return settings, nil
}
