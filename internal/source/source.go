// Package source defines the canonical identity of a structure record
// imported from an external crystallography database.
//
// Every record is identified by the triple (database, version, id). The
// string form "database|version|id" is the universal join key across the
// curation pipeline: ledger files, checkpoint files, family lists and
// golden records all refer to structures by this string and nothing else.
package source

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFormat indicates a source string that does not have exactly three
// pipe-separated fields.
var ErrFormat = errors.New("malformed source string")

// ErrUnknownDatabase indicates a raw record whose database could not be
// resolved, neither directly nor via the legacy db_name mapping.
var ErrUnknownDatabase = errors.New("unknown database")

// dbNameMapping translates the legacy `db_name` attribute found on raw
// CIF records to the canonical database key used on parsed structures.
var dbNameMapping = map[string]string{
	"Crystallography Open Database":       "cod",
	"Icsd":                                "icsd",
	"Materials Platform for Data Science": "mpds",
}

// Source identifies one record in an external database.
type Source struct {
	Database string `json:"database"`
	Version  string `json:"version"`
	ID       string `json:"id"`
}

// String returns the canonical "database|version|id" form.
func (s Source) String() string {
	return strings.Join([]string{s.Database, s.Version, s.ID}, "|")
}

// Parse parses a canonical source string. It is the exact inverse of
// String: Parse(s.String()) == s for every valid Source.
func Parse(raw string) (Source, error) {
	fields := strings.Split(raw, "|")
	if len(fields) != 3 {
		return Source{}, fmt.Errorf("%w: %q has %d fields, want 3", ErrFormat, raw, len(fields))
	}
	return Source{Database: fields[0], Version: fields[1], ID: fields[2]}, nil
}

// FromRecord resolves a Source from a heterogeneous raw record. Parsed
// structures carry a `database` key directly; raw CIF records carry the
// full legacy database name under `db_name` instead.
func FromRecord(record map[string]string) (Source, error) {
	database, ok := record["database"]
	if !ok {
		dbName, ok := record["db_name"]
		if !ok {
			return Source{}, fmt.Errorf("%w: record has neither `database` nor `db_name`", ErrUnknownDatabase)
		}
		database, ok = dbNameMapping[dbName]
		if !ok {
			return Source{}, fmt.Errorf("%w: unmapped db_name %q", ErrUnknownDatabase, dbName)
		}
	}
	return Source{Database: database, Version: record["version"], ID: record["id"]}, nil
}

// DatabaseFromName translates a legacy full database name to its
// canonical key.
func DatabaseFromName(dbName string) (string, error) {
	database, ok := dbNameMapping[dbName]
	if !ok {
		return "", fmt.Errorf("%w: unmapped db_name %q", ErrUnknownDatabase, dbName)
	}
	return database, nil
}
