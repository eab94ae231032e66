package family

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mc3d/mc3d-source/internal/source"
)

// GoldenStructure describes the chosen representative of a family.
type GoldenStructure struct {
	Source source.Source `json:"source"`

	ReducedFormula   string `json:"reduced_formula,omitempty"`
	SpglibSpaceGroup int    `json:"spglib_space_group,omitempty"`

	// UUID references the representative's record in the structure
	// store.
	UUID string `json:"uuid,omitempty"`
}

// Record is one golden-family record: the full duplicate family plus
// its representative.
type Record struct {
	DuplicateFamily []string        `json:"duplicate_family"`
	Golden          GoldenStructure `json:"golden_structure"`
}

// Records maps stable MC3D ids (or, for freshly selected families, the
// golden source string) to their record.
type Records map[string]Record

// LoadRecords reads a golden-record file.
func LoadRecords(path string) (Records, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading golden records: %w", err)
	}
	records := Records{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing golden records %s: %w", path, err)
	}
	return records, nil
}

// Save writes the records with stable formatting.
func (r Records) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding golden records: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing golden records: %w", err)
	}
	return nil
}

// GoldenSources returns the set of golden source strings across all
// records.
func (r Records) GoldenSources() map[string]struct{} {
	golden := make(map[string]struct{}, len(r))
	for _, record := range r {
		golden[record.Golden.Source.String()] = struct{}{}
	}
	return golden
}
