package source

import "fmt"

// DeprecationReason classifies why a source is no longer trusted.
type DeprecationReason string

const (
	// DeprecationIDRemoved means the ID has been removed from the
	// source database.
	DeprecationIDRemoved DeprecationReason = "id_removed"

	// DeprecationStructureUpdated means a newer version of the source
	// database carries a different structure for the same ID.
	DeprecationStructureUpdated DeprecationReason = "structure_updated"

	// DeprecationIncorrectFormula means the structure had a formula
	// mismatch between the cleaned CIF and the parsed structure.
	DeprecationIncorrectFormula DeprecationReason = "incorrect_formula"
)

// Valid reports whether the reason is one of the known deprecation
// reasons.
func (r DeprecationReason) Valid() bool {
	switch r {
	case DeprecationIDRemoved, DeprecationStructureUpdated, DeprecationIncorrectFormula:
		return true
	}
	return false
}

// ParseDeprecationReason validates a raw reason string.
func ParseDeprecationReason(raw string) (DeprecationReason, error) {
	reason := DeprecationReason(raw)
	if !reason.Valid() {
		return "", fmt.Errorf("unknown deprecation reason %q", raw)
	}
	return reason, nil
}
