package importer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mc3d/mc3d-source/internal/types"
)

// fileRecord is one line of a JSON-lines database dump.
type fileRecord struct {
	UUID              string `json:"uuid"`
	DBName            string `json:"db_name"`
	Version           string `json:"version"`
	ID                string `json:"id"`
	SpacegroupNumbers []int  `json:"spacegroup_numbers"`
}

// FileReader reads raw CIF records from a JSON-lines dump file, one
// record per line. Blank lines are skipped.
type FileReader struct {
	file    *os.File
	scanner *bufio.Scanner
	line    int
}

// NewFileReader opens a JSON-lines dump file.
func NewFileReader(path string) (*FileReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dump file: %w", err)
	}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &FileReader{file: file, scanner: scanner}, nil
}

// Next returns the next record, or io.EOF at the end of the file.
func (r *FileReader) Next() (*types.RawCIF, error) {
	for r.scanner.Scan() {
		r.line++
		raw := r.scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec fileRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("failed to parse line %d: %w", r.line, err)
		}
		if rec.DBName == "" || rec.ID == "" {
			return nil, fmt.Errorf("line %d: record missing db_name or id", r.line)
		}
		return &types.RawCIF{
			UUID:              rec.UUID,
			DBName:            rec.DBName,
			Version:           rec.Version,
			ID:                rec.ID,
			SpacegroupNumbers: rec.SpacegroupNumbers,
		}, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Close closes the underlying file.
func (r *FileReader) Close() error {
	return r.file.Close()
}
