// Package ledger maintains the deprecation ledger: a mapping from
// source string to the reason the source is no longer trusted. The
// ledger is append-only across curation cycles; overlapping keys on a
// merge are a reportable conflict, never a silent overwrite.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mc3d/mc3d-source/internal/source"
)

// ErrConflict indicates a merge whose key sets overlap.
var ErrConflict = errors.New("ledger keys overlap")

// Ledger maps source strings to deprecation reasons.
type Ledger map[string]source.DeprecationReason

// Load reads a ledger file. A missing file yields an empty ledger.
func Load(path string) (Ledger, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Ledger{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}

	raw := map[string]string{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing ledger %s: %w", path, err)
	}

	ledger := make(Ledger, len(raw))
	for key, value := range raw {
		if _, err := source.Parse(key); err != nil {
			return nil, fmt.Errorf("ledger key: %w", err)
		}
		reason, err := source.ParseDeprecationReason(value)
		if err != nil {
			return nil, fmt.Errorf("ledger entry %s: %w", key, err)
		}
		ledger[key] = reason
	}
	return ledger, nil
}

// Save writes the ledger atomically with sorted keys.
func (l Ledger) Save(path string) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp ledger: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp ledger: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing ledger: %w", err)
	}
	return nil
}

// Overlap returns the sorted keys present in both ledgers.
func (l Ledger) Overlap(other Ledger) []string {
	var overlap []string
	for key := range other {
		if _, ok := l[key]; ok {
			overlap = append(overlap, key)
		}
	}
	sort.Strings(overlap)
	return overlap
}

// Merge returns the union of l and additions. When the key sets
// overlap, the union (with additions winning) is still returned
// together with the overlapping keys and ErrConflict; the caller
// decides whether to abort or overwrite.
func (l Ledger) Merge(additions Ledger) (Ledger, []string, error) {
	merged := make(Ledger, len(l)+len(additions))
	for key, reason := range l {
		merged[key] = reason
	}
	for key, reason := range additions {
		merged[key] = reason
	}

	overlap := l.Overlap(additions)
	if len(overlap) > 0 {
		return merged, overlap, fmt.Errorf("%w: %d keys", ErrConflict, len(overlap))
	}
	return merged, nil, nil
}
