package scheduler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Checkpoint maps each completed bucket key to its family partition.
// It only ever grows during a run; on restart, buckets already present
// are skipped without re-validation.
type Checkpoint map[string][][]string

// LoadCheckpoint reads a checkpoint file. A missing file yields an
// empty checkpoint, not an error.
func LoadCheckpoint(path string) (Checkpoint, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Checkpoint{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint: %w", err)
	}

	checkpoint := Checkpoint{}
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("parsing checkpoint %s: %w", path, err)
	}
	return checkpoint, nil
}

// Save persists the checkpoint atomically: the JSON is written to a
// temp file in the same directory and renamed over the target, so a
// reader never observes a partially written file.
func (c Checkpoint) Save(path string) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp checkpoint: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp checkpoint: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing checkpoint: %w", err)
	}
	return nil
}

// Flatten merges the per-bucket partitions into one flat family list.
// Bucket keys are visited in sorted order so the output is stable.
func (c Checkpoint) Flatten() [][]string {
	keys := make([]string, 0, len(c))
	for key := range c {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var families [][]string
	for _, key := range keys {
		families = append(families, c[key]...)
	}
	return families
}
