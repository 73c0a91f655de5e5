package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/storage"
)

func TestSnippetBasics(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { repo.Close(); backend.Close() }()

	ctx := context.Background()

	snippet := &core.Snippet{
		Text:      "Hello, world!",
		Dataset:   "subject-1",
		Kind:      core.KindDocument,
		Timestamp: time.Now().UTC(),
	}

	added, err := repo.AddSnippets(ctx, snippet)
	if err != nil {
		t.Fatalf("Failed to add snippet: %v", err)
	}
	if len(added) != 1 {
		t.Fatalf("Expected 1 snippet, got %d", len(added))
	}
	if added[0].Id == 0 {
		t.Fatal("Expected non-zero ID")
	}
	if added[0].InsertedAt.IsZero() {
		t.Fatal("Expected InsertedAt to be populated")
	}

	retrieved, err := repo.GetSnippet(ctx, added[0].Id)
	if err != nil {
		t.Fatalf("Failed to get snippet: %v", err)
	}
	if retrieved.Text != "Hello, world!" {
		t.Fatalf("Expected 'Hello, world!', got '%s'", retrieved.Text)
	}
	if retrieved.Indexed {
		t.Fatal("Fresh row should not be indexed")
	}
}

func TestSnippetContentID(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { repo.Close(); backend.Close() }()

	ctx := context.Background()

	first := &core.Snippet{Text: "same text", Dataset: "subject-1", Kind: core.KindNote, Timestamp: time.Now().UTC()}
	second := &core.Snippet{Text: "same text", Dataset: "subject-1", Kind: core.KindNote, Timestamp: time.Now().UTC()}

	if _, err := repo.AddSnippets(ctx, first); err != nil {
		t.Fatalf("Failed to add first: %v", err)
	}
	if _, err := repo.AddSnippets(ctx, second); err != nil {
		t.Fatalf("Failed to add second: %v", err)
	}

	// Identical text in the same dataset collapses onto one row.
	if first.Id != second.Id {
		t.Fatalf("Expected identical IDs, got %d and %d", first.Id, second.Id)
	}
	count, err := repo.CountRows(ctx, "subject-1")
	if err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("Expected 1 row, got %d", count)
	}

	// Same text in a different dataset is a distinct row.
	other := &core.Snippet{Text: "same text", Dataset: "subject-2", Kind: core.KindNote, Timestamp: time.Now().UTC()}
	if _, err := repo.AddSnippets(ctx, other); err != nil {
		t.Fatalf("Failed to add other: %v", err)
	}
	if other.Id == first.Id {
		t.Fatal("Expected a distinct ID across datasets")
	}
}

func TestSnippetValidation(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { repo.Close(); backend.Close() }()

	ctx := context.Background()

	_, err = repo.AddSnippets(ctx, &core.Snippet{
		Text:      "   ",
		Dataset:   "subject-1",
		Kind:      core.KindDocument,
		Timestamp: time.Now().UTC(),
	})
	if !errors.Is(err, core.ErrEmptyText) {
		t.Fatalf("Expected ErrEmptyText, got %v", err)
	}
}

func TestGetRecentSnippets(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { repo.Close(); backend.Close() }()

	ctx := context.Background()
	now := time.Now().UTC()

	snippets := []*core.Snippet{
		{Text: "oldest", Dataset: "subject-1", Kind: core.KindMessage, Timestamp: now.Add(-3 * time.Hour)},
		{Text: "middle", Dataset: "subject-1", Kind: core.KindMessage, Timestamp: now.Add(-2 * time.Hour)},
		{Text: "newest", Dataset: "subject-1", Kind: core.KindMessage, Timestamp: now.Add(-1 * time.Hour)},
		{Text: "elsewhere", Dataset: "subject-2", Kind: core.KindMessage, Timestamp: now},
	}
	if _, err := repo.AddSnippets(ctx, snippets...); err != nil {
		t.Fatalf("Failed to add snippets: %v", err)
	}

	recent, err := repo.GetRecentSnippets(ctx, "subject-1", 2)
	if err != nil {
		t.Fatalf("Failed to get recent snippets: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Expected 2 snippets, got %d", len(recent))
	}
	if recent[0].Text != "newest" || recent[1].Text != "middle" {
		t.Fatalf("Expected newest-first order, got %q then %q", recent[0].Text, recent[1].Text)
	}
}

func TestUpdateSnippetsIndexing(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { repo.Close(); backend.Close() }()

	ctx := context.Background()

	snippet := &core.Snippet{
		Text:      "will be embedded later",
		Dataset:   "subject-1",
		Kind:      core.KindDocument,
		Timestamp: time.Now().UTC(),
	}
	if _, err := repo.AddSnippets(ctx, snippet); err != nil {
		t.Fatalf("Failed to add snippet: %v", err)
	}

	indexed, err := repo.CountIndexed(ctx, "subject-1")
	if err != nil {
		t.Fatalf("Failed to count indexed: %v", err)
	}
	if indexed != 0 {
		t.Fatalf("Expected 0 indexed rows before update, got %d", indexed)
	}

	snippet.Vector = []float32{0.5, 0.5}
	snippet.Indexed = true
	if _, err := repo.UpdateSnippets(ctx, snippet); err != nil {
		t.Fatalf("Failed to update snippet: %v", err)
	}

	indexed, err = repo.CountIndexed(ctx, "subject-1")
	if err != nil {
		t.Fatalf("Failed to count indexed: %v", err)
	}
	if indexed != 1 {
		t.Fatalf("Expected 1 indexed row after update, got %d", indexed)
	}

	rows, err := repo.CountRows(ctx, "subject-1")
	if err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	if rows != 1 {
		t.Fatalf("Expected 1 row, got %d", rows)
	}
}

func TestUpdateSnippetNotFound(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { repo.Close(); backend.Close() }()

	ctx := context.Background()

	_, err = repo.UpdateSnippets(ctx, &core.Snippet{
		Id:        12345,
		Text:      "phantom",
		Dataset:   "subject-1",
		Kind:      core.KindDocument,
		Timestamp: time.Now().UTC(),
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestDeleteSnippets(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { repo.Close(); backend.Close() }()

	ctx := context.Background()

	snippet := &core.Snippet{
		Text:      "short lived",
		Dataset:   "subject-1",
		Kind:      core.KindNote,
		Timestamp: time.Now().UTC(),
		Vector:    []float32{1, 0},
		Indexed:   true,
	}
	if _, err := repo.AddSnippets(ctx, snippet); err != nil {
		t.Fatalf("Failed to add snippet: %v", err)
	}

	if err := repo.DeleteSnippets(ctx, snippet.Id); err != nil {
		t.Fatalf("Failed to delete snippet: %v", err)
	}

	if _, err := repo.GetSnippet(ctx, snippet.Id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after delete, got %v", err)
	}

	rows, _ := repo.CountRows(ctx, "subject-1")
	indexed, _ := repo.CountIndexed(ctx, "subject-1")
	if rows != 0 || indexed != 0 {
		t.Fatalf("Expected counts 0/0 after delete, got %d/%d", rows, indexed)
	}
}

func TestFindSimilar(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { repo.Close(); backend.Close() }()

	ctx := context.Background()
	now := time.Now().UTC()

	snippets := []*core.Snippet{
		{Text: "close match", Dataset: "subject-1", Kind: core.KindDocument, Timestamp: now, Vector: []float32{1, 0}, Indexed: true},
		{Text: "partial match", Dataset: "subject-1", Kind: core.KindDocument, Timestamp: now, Vector: []float32{0.8, 0.6}, Indexed: true},
		{Text: "orthogonal", Dataset: "subject-1", Kind: core.KindDocument, Timestamp: now, Vector: []float32{0, 1}, Indexed: true},
		{Text: "not yet embedded", Dataset: "subject-1", Kind: core.KindDocument, Timestamp: now},
		{Text: "wrong dataset", Dataset: "subject-2", Kind: core.KindDocument, Timestamp: now, Vector: []float32{1, 0}, Indexed: true},
	}
	if _, err := repo.AddSnippets(ctx, snippets...); err != nil {
		t.Fatalf("Failed to add snippets: %v", err)
	}

	hits, err := repo.FindSimilar(ctx, []float32{1, 0}, []string{"subject-1"}, 0.6, 10)
	if err != nil {
		t.Fatalf("FindSimilar failed: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("Expected 2 hits, got %d", len(hits))
	}
	if hits[0].Snippet.Text != "close match" {
		t.Fatalf("Expected best hit first, got %q", hits[0].Snippet.Text)
	}
	if hits[0].Score < hits[1].Score {
		t.Fatal("Expected descending score order")
	}

	// Unindexed rows never surface in search even though they are
	// visible to raw reads.
	for _, hit := range hits {
		if hit.Snippet.Text == "not yet embedded" {
			t.Fatal("Unindexed row surfaced in search")
		}
	}
}

func TestCountsPerDataset(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { repo.Close(); backend.Close() }()

	ctx := context.Background()
	now := time.Now().UTC()

	snippets := []*core.Snippet{
		{Text: "a", Dataset: "subject-1", Kind: core.KindDocument, Timestamp: now, Vector: []float32{1}, Indexed: true},
		{Text: "b", Dataset: "subject-1", Kind: core.KindDocument, Timestamp: now},
		{Text: "c", Dataset: "global", Kind: core.KindDocument, Timestamp: now},
	}
	if _, err := repo.AddSnippets(ctx, snippets...); err != nil {
		t.Fatalf("Failed to add snippets: %v", err)
	}

	rows, err := repo.CountRows(ctx, "subject-1")
	if err != nil {
		t.Fatalf("CountRows failed: %v", err)
	}
	if rows != 2 {
		t.Fatalf("Expected 2 rows in subject-1, got %d", rows)
	}

	indexed, err := repo.CountIndexed(ctx, "subject-1")
	if err != nil {
		t.Fatalf("CountIndexed failed: %v", err)
	}
	if indexed != 1 {
		t.Fatalf("Expected 1 indexed row in subject-1, got %d", indexed)
	}

	rows, err = repo.CountRows(ctx, "empty-dataset")
	if err != nil {
		t.Fatalf("CountRows failed: %v", err)
	}
	if rows != 0 {
		t.Fatalf("Expected 0 rows in empty dataset, got %d", rows)
	}
}
