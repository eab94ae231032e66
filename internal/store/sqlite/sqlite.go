// Package sqlite implements the structure store on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/mc3d/mc3d-source/internal/source"
	"github.com/mc3d/mc3d-source/internal/types"
)

// StructureFilter narrows structure queries.
type StructureFilter struct {
	// Contains lists elements every returned structure must contain.
	Contains []string

	// Skip lists elements no returned structure may contain.
	Skip []string

	// ExcludeIncorrectFormula drops structures flagged with a formula
	// mismatch. Clustering always sets this.
	ExcludeIncorrectFormula bool
}

// CurationUpdate carries the extras the curate pass writes onto a
// parsed structure.
type CurationUpdate struct {
	Source             source.Source
	CIFSpacegroup      int
	PartialOccupancies bool
	IncorrectFormula   string
}

// CleanJoin links one cleaning-workflow result to its raw CIF and the
// structure parsed from it.
type CleanJoin struct {
	ExitStatus int
	CIF        *types.RawCIF
	Structure  *types.Structure
}

// dbtx covers both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store implements the structure store on a SQLite database.
type Store struct {
	db *sql.DB
	q  dbtx // the active query target: the pool, or a transaction
}

// New opens (and if necessary creates) the database at path.
func New(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		dsn = "file:" + path + "?_pragma=journal_mode(wal)&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// Every pool connection would otherwise get its own empty
		// in-memory database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	store := &Store{db: db}
	store.q = db
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// withTx runs fn on a transactional copy of the store.
func (s *Store) withTx(ctx context.Context, fn func(*Store) error) error {
	if s.db == nil {
		return fmt.Errorf("nested transactions are not supported")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txStore := &Store{q: tx}
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%v (rollback also failed: %w)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
