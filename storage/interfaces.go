package storage

import (
	"context"

	"github.com/poiesic/answerit/core"
)

// SearchHit is a snippet matched by semantic search, annotated with its
// similarity score. The snippet carries its origin dataset.
type SearchHit struct {
	Snippet *core.Snippet
	Score   float32
}

// SnippetRepository provides operations for managing knowledge snippets.
// Implementations must be thread-safe and support concurrent access.
type SnippetRepository interface {
	// AddSnippets adds one or more snippets to storage. IDs are derived
	// from content (dataset + text) when zero, and InsertedAt/UpdatedAt
	// are populated. Rows are visible to raw reads immediately; they do
	// not appear in semantic search until their embedding is written.
	AddSnippets(ctx context.Context, snippets ...*core.Snippet) ([]*core.Snippet, error)

	// UpdateSnippets updates existing snippets, refreshing UpdatedAt and
	// the dataset's indexed count when the Indexed flag flips.
	// Returns ErrNotFound if any snippet doesn't exist.
	UpdateSnippets(ctx context.Context, snippets ...*core.Snippet) ([]*core.Snippet, error)

	// DeleteSnippets removes snippets by their IDs, along with their
	// index entries. Returns ErrNotFound if any snippet doesn't exist.
	DeleteSnippets(ctx context.Context, ids ...core.ID) error

	// GetSnippet retrieves a single snippet by ID.
	// Returns ErrNotFound if the snippet doesn't exist.
	GetSnippet(ctx context.Context, id core.ID) (*core.Snippet, error)

	// GetSnippets retrieves multiple snippets by their IDs.
	// Returns only the snippets that exist (no error for missing rows).
	GetSnippets(ctx context.Context, ids ...core.ID) ([]*core.Snippet, error)

	// GetRecentSnippets retrieves the N most recent snippets of a
	// dataset, newest first, regardless of indexing state. This is the
	// raw read path used when semantic search has nothing to offer.
	GetRecentSnippets(ctx context.Context, dataset string, limit int) ([]*core.Snippet, error)

	// FindSimilar finds indexed snippets similar to the given vector
	// across the named datasets. Returns hits with similarity >=
	// minSimilarity, up to limit, ordered by score (highest first).
	FindSimilar(ctx context.Context, vector []float32, datasets []string, minSimilarity float32, limit int) ([]*SearchHit, error)

	// CountRows reports how many rows a dataset holds, indexed or not.
	CountRows(ctx context.Context, dataset string) (int, error)

	// CountIndexed reports how many rows of a dataset are visible to
	// semantic search. This is the projection probe primitive.
	CountIndexed(ctx context.Context, dataset string) (int, error)

	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}
