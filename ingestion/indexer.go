package ingestion

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/answerit/ai"
	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/storage"
)

// Indexer makes stored snippets visible to semantic search. Each
// submitted snippet is embedded on a worker pool and written back with
// Indexed=true. Per-job failures are logged and counted, never returned
// to the writer; an unindexed row simply stays invisible to search until
// a later pass picks it up.
type Indexer struct {
	repo     storage.SnippetRepository
	embedder ai.Embedder
	pool     *ants.Pool
	wg       sync.WaitGroup
	closed   atomic.Bool
	failures atomic.Int64
	logger   *slog.Logger
}

// Option configures an Indexer.
type Option func(*Indexer) error

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(ix *Indexer) error {
		if size < 1 {
			size = 1
		}

		if ix.pool != nil {
			ix.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		ix.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) error {
		if logger == nil {
			logger = slog.Default()
		}
		ix.logger = logger
		return nil
	}
}

// NewIndexer creates a new asynchronous snippet indexer.
func NewIndexer(repo storage.SnippetRepository, embedder ai.Embedder, opts ...Option) (*Indexer, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	ix := &Indexer{
		repo:     repo,
		embedder: embedder,
		pool:     pool,
		logger:   slog.Default().With("component", "indexer"),
	}

	for _, opt := range opts {
		if err := opt(ix); err != nil {
			pool.Release()
			return nil, err
		}
	}

	return ix, nil
}

// Submit schedules the snippets for embedding. It returns once the jobs
// are queued; the write that stored the rows has already returned to its
// caller, so indexing outcomes are only observable through probes.
func (ix *Indexer) Submit(ctx context.Context, snippets ...*core.Snippet) error {
	if ix.closed.Load() {
		return ErrIndexerClosed
	}

	// Jobs outlive the request that scheduled them.
	jobCtx := context.WithoutCancel(ctx)

	for _, snippet := range snippets {
		if snippet.Indexed {
			continue
		}
		s := snippet
		ix.wg.Add(1)
		err := ix.pool.Submit(func() {
			defer ix.wg.Done()
			ix.index(jobCtx, s)
		})
		if err != nil {
			ix.wg.Done()
			return err
		}
	}
	return nil
}

// index embeds one snippet and flips it to indexed.
func (ix *Indexer) index(ctx context.Context, snippet *core.Snippet) {
	vector, err := ix.embedder.EmbedText(ctx, snippet.Text)
	if err != nil {
		ix.failures.Add(1)
		ix.logger.Error("embedding failed, row stays unindexed",
			"dataset", snippet.Dataset, "id", snippet.Id, "err", err)
		return
	}

	snippet.Vector = vector
	snippet.Indexed = true
	if _, err := ix.repo.UpdateSnippets(ctx, snippet); err != nil {
		ix.failures.Add(1)
		ix.logger.Error("failed to store embedding",
			"dataset", snippet.Dataset, "id", snippet.Id, "err", err)
	}
}

// Flush blocks until all queued jobs have finished.
func (ix *Indexer) Flush() {
	ix.wg.Wait()
}

// Failures reports how many jobs have failed since construction.
func (ix *Indexer) Failures() int64 {
	return ix.failures.Load()
}

// Close flushes outstanding jobs and releases the pool.
func (ix *Indexer) Close() error {
	if ix.closed.Swap(true) {
		return nil
	}
	ix.wg.Wait()
	ix.pool.Release()
	return nil
}
