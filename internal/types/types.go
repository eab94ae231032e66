// Package types holds the data model shared across the curation
// pipeline: geometries, structure records and raw CIF records.
package types

import "github.com/mc3d/mc3d-source/internal/source"

// Geometry is the structural representation handed to the similarity
// oracle. The clustering engine never inspects it beyond passing it
// around; only the matcher interprets its contents.
type Geometry struct {
	// Lattice holds the three cell vectors in Angstrom, row-major.
	Lattice [3][3]float64 `json:"lattice"`

	// Species holds one chemical symbol per site.
	Species []string `json:"species"`

	// Positions holds fractional site coordinates, one per species.
	Positions [][3]float64 `json:"positions"`
}

// NumSites returns the number of atomic sites.
func (g *Geometry) NumSites() int {
	return len(g.Species)
}

// Structure is a parsed, curated structure record. Records are created
// by the store and are read-only within the clustering engine.
type Structure struct {
	UUID   string        `json:"uuid"`
	Source source.Source `json:"source"`

	// Formula is the Hill-compact reduced chemical formula.
	Formula string `json:"formula"`

	// ChemicalSystem is the sorted element list in "-El-El-" form,
	// used for element include/exclude filters.
	ChemicalSystem string `json:"chemical_system"`

	// CIFSpacegroup is the space-group number recorded on the cleaned
	// CIF, zero when the CIF was ambiguous. When zero, the bucketing
	// stage falls back to symmetry detection.
	CIFSpacegroup int `json:"cif_spacegroup,omitempty"`

	// Spacegroup is the spglib-detected space-group number, zero when
	// not yet detected.
	Spacegroup int `json:"spacegroup,omitempty"`

	PartialOccupancies bool `json:"partial_occupancies"`

	// IncorrectFormula is non-empty when the cleaning pipeline flagged
	// a formula mismatch; such structures are excluded from clustering.
	IncorrectFormula string `json:"incorrect_formula,omitempty"`

	Geometry *Geometry `json:"geometry,omitempty"`

	// Duplicates lists the source strings of this structure's family
	// minus itself. Set only on golden structures.
	Duplicates []string `json:"duplicates,omitempty"`
}

// RawCIF is an as-imported CIF record, before cleaning and parsing.
type RawCIF struct {
	UUID    string `json:"uuid"`
	DBName  string `json:"db_name"`
	Version string `json:"version"`
	ID      string `json:"id"`

	// SpacegroupNumbers lists the space-group numbers declared in the
	// CIF file. A single unambiguous entry is carried onto the parsed
	// structure during curation.
	SpacegroupNumbers []int `json:"spacegroup_numbers,omitempty"`
}

// CleanResult links a raw CIF to the structure parsed from it, together
// with the exit status of the cleaning workflow.
type CleanResult struct {
	CIFUUID       string `json:"cif_uuid"`
	StructureUUID string `json:"structure_uuid"`
	ExitStatus    int    `json:"exit_status"`
}
