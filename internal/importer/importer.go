// Package importer loads raw CIF records from an external database
// dump into the structure store, in rate-limited batches.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/mc3d/mc3d-source/internal/store"
	"github.com/mc3d/mc3d-source/internal/types"
)

// Reader yields raw CIF records from an external database. Next
// returns io.EOF when the dump is exhausted.
type Reader interface {
	Next() (*types.RawCIF, error)
	Close() error
}

// Config configures an import run.
type Config struct {
	Store store.Storage

	// Group is the raw-CIF group label, conventionally
	// "{database}/cif/raw".
	Group string

	// BatchSize is the number of records per store batch.
	// Default: 1000.
	BatchSize int

	// BatchesPerSecond throttles batch submission. Zero disables
	// throttling.
	BatchesPerSecond float64

	// DryRun counts what would be imported without writing.
	DryRun bool
}

// Stats summarizes an import run.
type Stats struct {
	Read     int
	Imported int
	Skipped  int
}

// Importer runs batched imports against the store.
type Importer struct {
	cfg     Config
	limiter *rate.Limiter
}

// New returns an Importer, applying defaults to the config.
func New(cfg Config) (*Importer, error) {
	if cfg.Store == nil && !cfg.DryRun {
		return nil, fmt.Errorf("importer requires a store")
	}
	if cfg.Group == "" && !cfg.DryRun {
		return nil, fmt.Errorf("importer requires a group label")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.BatchesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.BatchesPerSecond), 1)
	}
	return &Importer{cfg: cfg, limiter: limiter}, nil
}

// Run drains the reader into the store. Records without a UUID get one
// assigned.
func (im *Importer) Run(ctx context.Context, reader Reader) (*Stats, error) {
	stats := &Stats{}
	batch := make([]*types.RawCIF, 0, im.cfg.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := im.limiter.Wait(ctx); err != nil {
			return err
		}
		if !im.cfg.DryRun {
			inserted, err := im.cfg.Store.ImportRawCIFs(ctx, batch, im.cfg.Group)
			if err != nil {
				return fmt.Errorf("importing batch: %w", err)
			}
			stats.Imported += inserted
			stats.Skipped += len(batch) - inserted
		} else {
			stats.Imported += len(batch)
		}
		batch = batch[:0]
		return nil
	}

	for {
		record, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("reading record: %w", err)
		}
		stats.Read++

		if record.UUID == "" {
			record.UUID = uuid.New().String()
		}

		batch = append(batch, record)
		if len(batch) >= im.cfg.BatchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := flush(); err != nil {
		return stats, err
	}
	return stats, nil
}
