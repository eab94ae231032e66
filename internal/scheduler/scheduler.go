// Package scheduler runs the uniqueness analysis over all buckets:
// a fixed-size worker pool clusters buckets independently, results are
// merged chunk by chunk into a checkpoint that is persisted between
// chunks, and a crashed run resumes from the last persisted chunk.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mc3d/mc3d-source/internal/cluster"
	"github.com/mc3d/mc3d-source/internal/matcher"
)

// Progress is a liveness signal emitted when a worker starts a bucket.
type Progress struct {
	Bucket string
	Size   int
}

// Config configures a clustering run.
type Config struct {
	Strategy cluster.Strategy
	Matcher  matcher.Matcher

	// Workers is the worker pool size. Default: 5.
	Workers int

	// ChunkSize bounds how many buckets are processed between
	// checkpoint writes. Zero means a single chunk.
	ChunkSize int

	// CheckpointPath is the checkpoint file. Empty disables
	// persistence; the run then always starts from scratch.
	CheckpointPath string

	// OnProgress, when set, is invoked from the coordinator for every
	// drained progress signal. It must not block for long; signals are
	// dropped rather than stalling workers when the channel is full.
	OnProgress func(Progress)
}

// DefaultWorkers is the default worker pool size.
const DefaultWorkers = 5

// Scheduler coordinates one clustering run.
type Scheduler struct {
	cfg Config
}

// New returns a Scheduler, applying defaults to the config.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Matcher == nil {
		return nil, fmt.Errorf("scheduler requires a matcher")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.ChunkSize < 0 {
		return nil, fmt.Errorf("chunk size must be >= 0, got %d", cfg.ChunkSize)
	}
	return &Scheduler{cfg: cfg}, nil
}

type bucketResult struct {
	key      string
	families [][]string
}

// Run clusters every bucket and returns the completed checkpoint
// mapping. Buckets already present in the checkpoint file are skipped
// entirely. The chunk is the consistency boundary: results of a chunk
// are persisted only once the whole chunk succeeded, and a failing
// bucket aborts its chunk without persisting any of it.
func (s *Scheduler) Run(ctx context.Context, buckets map[string][]cluster.Entry) (Checkpoint, error) {
	result := Checkpoint{}

	if s.cfg.CheckpointPath != "" {
		loaded, err := LoadCheckpoint(s.cfg.CheckpointPath)
		if err != nil {
			return nil, err
		}
		result = loaded
	}

	if len(result) == 0 {
		// Fresh run: buckets with a single structure need no analysis.
		for key, entries := range buckets {
			if len(entries) == 1 {
				result[key] = [][]string{{entries[0].Source}}
			}
		}
	}

	// Remaining work, largest buckets first so the stragglers start
	// early.
	pending := make([]string, 0, len(buckets))
	for key := range buckets {
		if _, done := result[key]; !done {
			pending = append(pending, key)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if len(buckets[pending[i]]) != len(buckets[pending[j]]) {
			return len(buckets[pending[i]]) > len(buckets[pending[j]])
		}
		return pending[i] < pending[j]
	})

	chunkSize := s.cfg.ChunkSize
	if chunkSize == 0 {
		chunkSize = len(pending)
	}

	for start := 0; start < len(pending); start += chunkSize {
		end := start + chunkSize
		if end > len(pending) {
			end = len(pending)
		}

		results, err := s.runChunk(ctx, pending[start:end], buckets)
		if err != nil {
			return nil, err
		}
		for _, res := range results {
			result[res.key] = res.families
		}

		if s.cfg.CheckpointPath != "" {
			if err := result.Save(s.cfg.CheckpointPath); err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}

// runChunk clusters one chunk of buckets on the worker pool. Progress
// signals flow through a bounded channel drained by the coordinator;
// workers never block on it.
func (s *Scheduler) runChunk(ctx context.Context, keys []string, buckets map[string][]cluster.Entry) ([]bucketResult, error) {
	progressCh := make(chan Progress, 4*s.cfg.Workers)

	var drained sync.WaitGroup
	drained.Add(1)
	go func() {
		defer drained.Done()
		for signal := range progressCh {
			if s.cfg.OnProgress != nil {
				s.cfg.OnProgress(signal)
			}
		}
	}()

	results := make([]bucketResult, len(keys))

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(s.cfg.Workers)

	for i, key := range keys {
		group.Go(func() error {
			entries := buckets[key]

			select {
			case progressCh <- Progress{Bucket: key, Size: len(entries)}:
			default:
				// Coordinator is behind; drop the signal rather than
				// stall the worker.
			}

			families, err := s.cfg.Strategy.Cluster(gctx, entries, s.cfg.Matcher)
			if err != nil {
				return fmt.Errorf("clustering bucket %s: %w", key, err)
			}
			results[i] = bucketResult{key: key, families: families}
			return nil
		})
	}

	err := group.Wait()
	close(progressCh)
	drained.Wait()

	if err != nil {
		return nil, err
	}
	return results, nil
}
