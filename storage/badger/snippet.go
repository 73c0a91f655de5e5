package badger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/storage"
)

// SnippetRepository implements storage.SnippetRepository on BadgerDB.
type SnippetRepository struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.SnippetRepository = (*SnippetRepository)(nil)

// NewSnippetRepository creates a snippet repository on top of a backend.
func NewSnippetRepository(backend *Backend) (*SnippetRepository, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &SnippetRepository{
		backend: backend,
		logger:  slog.Default().With("component", "snippet-repository"),
	}, nil
}

// Close releases the repository. The backend is owned by the caller and
// closed separately.
func (r *SnippetRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *SnippetRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// FindSimilar delegates to the backend.
func (r *SnippetRepository) FindSimilar(ctx context.Context, vector []float32, datasets []string, minSimilarity float32, limit int) ([]*storage.SearchHit, error) {
	return r.backend.FindSimilar(ctx, vector, datasets, minSimilarity, limit)
}

// AddSnippets adds one or more snippets to storage.
func (r *SnippetRepository) AddSnippets(ctx context.Context, snippets ...*core.Snippet) ([]*core.Snippet, error) {
	for _, snippet := range snippets {
		if err := core.ValidateSnippet(snippet); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, snippet := range snippets {
			// Content-based ID: identical text in the same dataset
			// collapses onto one row.
			if snippet.Id == 0 {
				snippet.Id = core.IDFromContent(snippet.Dataset + "\x00" + snippet.Text)
			}

			snippet.InsertedAt = time.Now().UTC()
			snippet.UpdatedAt = snippet.InsertedAt
			if snippet.Timestamp.IsZero() {
				snippet.Timestamp = snippet.InsertedAt
			}

			// Store primary row
			key := makeSnippetKey(snippet.Dataset, snippet.Id)
			if err := tx.Set(key, storage.MarshalSnippet(snippet)); err != nil {
				return err
			}

			// Update recency index
			dateKey := makeSnippetDateKey(snippet.Dataset, snippet.Timestamp, snippet.Id)
			if err := tx.Set(dateKey, storage.MarshalID(snippet.Id)); err != nil {
				return err
			}

			// Rows written pre-indexed (tests, migrations) are visible
			// to search immediately.
			if snippet.Indexed {
				indexedKey := makeSnippetIndexedKey(snippet.Dataset, snippet.Id)
				if err := tx.Set(indexedKey, storage.MarshalID(snippet.Id)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)

	return snippets, err
}

// UpdateSnippets updates existing snippets.
func (r *SnippetRepository) UpdateSnippets(ctx context.Context, snippets ...*core.Snippet) ([]*core.Snippet, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, snippet := range snippets {
			key := makeSnippetKey(snippet.Dataset, snippet.Id)

			// Read old row to detect index changes
			old, err := r.readSnippet(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}

			snippet.InsertedAt = old.InsertedAt
			snippet.UpdatedAt = time.Now().UTC()

			if err := tx.Set(key, storage.MarshalSnippet(snippet)); err != nil {
				return err
			}

			// Update recency index if timestamp changed
			if !old.Timestamp.Equal(snippet.Timestamp) {
				oldDateKey := makeSnippetDateKey(old.Dataset, old.Timestamp, old.Id)
				if err := tx.Delete(oldDateKey); err != nil {
					return err
				}
				newDateKey := makeSnippetDateKey(snippet.Dataset, snippet.Timestamp, snippet.Id)
				if err := tx.Set(newDateKey, storage.MarshalID(snippet.Id)); err != nil {
					return err
				}
			}

			// Maintain the indexed marker when the flag flips
			indexedKey := makeSnippetIndexedKey(snippet.Dataset, snippet.Id)
			if !old.Indexed && snippet.Indexed {
				if err := tx.Set(indexedKey, storage.MarshalID(snippet.Id)); err != nil {
					return err
				}
			} else if old.Indexed && !snippet.Indexed {
				if err := tx.Delete(indexedKey); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)

	return snippets, err
}

// DeleteSnippets removes snippets by their IDs.
func (r *SnippetRepository) DeleteSnippets(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			snippet, err := r.findSnippet(tx, id)
			if err != nil {
				return err
			}
			if snippet == nil {
				return storage.ErrNotFound
			}

			dateKey := makeSnippetDateKey(snippet.Dataset, snippet.Timestamp, snippet.Id)
			if err := tx.Delete(dateKey); err != nil {
				return err
			}

			if snippet.Indexed {
				indexedKey := makeSnippetIndexedKey(snippet.Dataset, snippet.Id)
				if err := tx.Delete(indexedKey); err != nil {
					return err
				}
			}

			key := makeSnippetKey(snippet.Dataset, snippet.Id)
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetSnippet retrieves a single snippet by ID.
func (r *SnippetRepository) GetSnippet(ctx context.Context, id core.ID) (*core.Snippet, error) {
	var result *core.Snippet
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.findSnippet(tx, id)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetSnippets retrieves multiple snippets by their IDs.
func (r *SnippetRepository) GetSnippets(ctx context.Context, ids ...core.ID) ([]*core.Snippet, error) {
	var result []*core.Snippet
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			snippet, err := r.findSnippet(tx, id)
			if err != nil {
				return err
			}
			if snippet != nil {
				result = append(result, snippet)
			}
		}
		return nil
	}, false)
	return result, err
}

// GetRecentSnippets retrieves the N most recent snippets of a dataset,
// newest first, regardless of indexing state.
func (r *SnippetRepository) GetRecentSnippets(ctx context.Context, dataset string, limit int) ([]*core.Snippet, error) {
	var results []*core.Snippet
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true

		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek to the last possible key of this dataset's recency index
		startKey := makePartialSnippetDateKey(dataset, time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC))
		prefix := makeSnippetDatePrefix(dataset)

		count := 0
		for iter.Seek(startKey); iter.Valid() && count < limit; iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(prefix) || string(key[:len(prefix)]) != string(prefix) {
				break
			}

			var id core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			snippet, err := r.readSnippet(tx, makeSnippetKey(dataset, id))
			if err != nil {
				return err
			}
			if snippet != nil {
				results = append(results, snippet)
				count++
			}
		}
		return nil
	}, false)

	return results, err
}

// CountRows reports how many rows a dataset holds, indexed or not.
func (r *SnippetRepository) CountRows(ctx context.Context, dataset string) (int, error) {
	return r.backend.countKeys(makeSnippetPrefix(dataset))
}

// CountIndexed reports how many rows of a dataset are visible to search.
func (r *SnippetRepository) CountIndexed(ctx context.Context, dataset string) (int, error) {
	return r.backend.countKeys(makeSnippetIndexedPrefix(dataset))
}

// readSnippet reads and unmarshals a snippet at the given key.
// Returns (nil, nil) if the key does not exist.
func (r *SnippetRepository) readSnippet(tx *badger.Txn, key []byte) (*core.Snippet, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var snippet *core.Snippet
	err = item.Value(func(val []byte) error {
		var err error
		snippet, err = storage.UnmarshalSnippet(val)
		return err
	})
	return snippet, err
}

// findSnippet locates a snippet by ID without knowing its dataset, by
// scanning the primary prefix. IDs are content-hashed so collisions
// across datasets are not expected in practice.
func (r *SnippetRepository) findSnippet(tx *badger.Txn, id core.ID) (*core.Snippet, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(snippetPrefix + ":")
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		var snippet *core.Snippet
		err := iter.Item().Value(func(val []byte) error {
			var err error
			snippet, err = storage.UnmarshalSnippet(val)
			return err
		})
		if err != nil {
			return nil, err
		}
		if snippet != nil && snippet.Id == id {
			return snippet, nil
		}
	}
	return nil, nil
}
