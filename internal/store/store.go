// Package store defines the interface to the persistent structure
// store that holds raw CIF records, parsed structures, their curation
// extras and group memberships.
package store

import (
	"context"

	"github.com/mc3d/mc3d-source/internal/store/sqlite"
	"github.com/mc3d/mc3d-source/internal/types"
)

// Storage is the persistent structure store. Workers read from it;
// mutating passes go through the transactional batch methods so a
// finalize pass is visible either completely or not at all.
type Storage interface {
	// Raw CIF records
	CreateRawCIFs(ctx context.Context, cifs []*types.RawCIF) (int, error)
	ImportRawCIFs(ctx context.Context, cifs []*types.RawCIF, group string) (int, error)
	GetRawCIFsByGroup(ctx context.Context, group string) ([]*types.RawCIF, error)

	// Parsed structures
	CreateStructures(ctx context.Context, structures []*types.Structure) error
	GetStructuresByGroups(ctx context.Context, groups []string, filter sqlite.StructureFilter) ([]*types.Structure, error)
	GetStructuresBySources(ctx context.Context, sources []string) (map[string]*types.Structure, error)
	UpdateStructureCuration(ctx context.Context, uuid string, update sqlite.CurationUpdate) error
	SetDuplicates(ctx context.Context, uuid string, duplicates []string) error

	// IncorrectFormulaSources returns the source strings of all
	// structures flagged with a formula mismatch.
	IncorrectFormulaSources(ctx context.Context) ([]string, error)

	// CODHydrogenSources returns the source strings of stoichiometric
	// COD structures containing hydrogen; their families are excluded
	// from golden selection.
	CODHydrogenSources(ctx context.Context) ([]string, error)

	// Clean results
	CreateCleanResults(ctx context.Context, results []*types.CleanResult) error
	GetCleanJoinsByGroup(ctx context.Context, group string) ([]*sqlite.CleanJoin, error)

	// Groups
	GetOrCreateGroup(ctx context.Context, label string) (created bool, err error)
	GroupExists(ctx context.Context, label string) (bool, error)
	AddToGroup(ctx context.Context, label string, uuids []string) error

	// Transactional batch passes. Each runs in a single transaction:
	// either the whole batch of mutations becomes visible or none of
	// it does.

	// ApplyCurationBatch writes curation extras per structure UUID and
	// adds the curated UUIDs to the curated group.
	ApplyCurationBatch(ctx context.Context, updates map[string]sqlite.CurationUpdate, curatedGroup string, curatedUUIDs []string) error

	// FinalizeGoldenBatch writes each golden structure's duplicate
	// list and adds the golden UUIDs to the uniques group.
	FinalizeGoldenBatch(ctx context.Context, duplicates map[string][]string, group string, uuids []string) error

	Close() error
}

// Config holds store configuration.
type Config struct {
	// Path is the SQLite database file path.
	// Default: ".mc3d/mc3d.db". ":memory:" creates an in-memory
	// database, useful for tests.
	Path string
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{Path: ".mc3d/mc3d.db"}
}

// NewStorage opens the SQLite storage backend.
func NewStorage(ctx context.Context, cfg *Config) (Storage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Path == "" {
		cfg.Path = ".mc3d/mc3d.db"
	}
	return sqlite.New(cfg.Path)
}
