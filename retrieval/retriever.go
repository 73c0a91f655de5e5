package retrieval

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/answerit/ai"
	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/projection"
	"github.com/poiesic/answerit/storage"
)

const (
	// minSimilarity is the semantic search score threshold.
	minSimilarity = 0.60

	// defaultWaitTimeout bounds the projection wait per dataset. Callers
	// cap the total request budget separately; this only opens a narrow
	// window for a just-written row to become visible.
	defaultWaitTimeout = 2 * time.Second
)

// Retriever resolves a subject's candidate datasets, waits briefly for
// their projections, and runs top-k semantic search over the ones that
// are ready.
type Retriever struct {
	repo        storage.SnippetRepository
	embedder    ai.Embedder
	tracker     *projection.Tracker
	waitTimeout time.Duration
	logger      *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithWaitTimeout sets the per-dataset projection wait budget.
// Default is 2 seconds.
func WithWaitTimeout(timeout time.Duration) Option {
	return func(r *Retriever) error {
		if timeout > 0 {
			r.waitTimeout = timeout
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRetriever creates a new retriever.
func NewRetriever(
	repo storage.SnippetRepository,
	embedder ai.Embedder,
	tracker *projection.Tracker,
	opts ...Option,
) (*Retriever, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if tracker == nil {
		return nil, ErrTrackerRequired
	}

	r := &Retriever{
		repo:        repo,
		embedder:    embedder,
		tracker:     tracker,
		waitTimeout: defaultWaitTimeout,
		logger:      slog.Default().With("component", "retriever"),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Retrieve returns up to k knowledge snippets relevant to the query,
// along with the datasets that were actually consulted.
func (r *Retriever) Retrieve(ctx context.Context, subjectID int64, query string, k int, requestID string) ([]*core.Snippet, []string, error) {
	return r.RetrieveWithMonitor(ctx, subjectID, query, k, requestID, nil)
}

// RetrieveWithMonitor is Retrieve with stage callbacks. Collaborator
// failures are absorbed per dataset; the only way this returns an error
// is a nil receiver misuse upstream, so callers may treat err as
// impossible today and still get the degraded result.
func (r *Retriever) RetrieveWithMonitor(ctx context.Context, subjectID int64, query string, k int, requestID string, monitor Monitor) ([]*core.Snippet, []string, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	candidates := CandidateDatasets(subjectID)
	monitor.Start(query, candidates)

	// 1. Wait briefly for each candidate's projection; skip the ones
	// that aren't ready. A pending or empty dataset is not an error.
	live := make([]string, 0, len(candidates))
	for _, dataset := range candidates {
		status := r.tracker.Ensure(ctx, dataset, requestID, r.waitTimeout)
		if status == projection.StatusReady {
			live = append(live, dataset)
			continue
		}
		r.logger.Debug("dataset skipped",
			"dataset", dataset, "status", status.String(), "request_id", requestID)
		monitor.DatasetSkipped(dataset, status)
	}

	// 2. Semantic search across the live datasets.
	var entries []*core.Snippet
	datasetsUsed := live
	if len(live) > 0 {
		hits, err := r.semanticSearch(ctx, query, live, k)
		if err != nil {
			// Degrade to the raw fallback rather than failing the
			// pipeline.
			r.logger.Warn("semantic search degraded", "request_id", requestID, "err", err)
		}
		entries = hits
		monitor.AfterSemanticSearch(live, len(entries))
	}

	// 3. No usable hits: fall back to the subject's most recent raw
	// rows so a cold or unindexed subject still gets grounded.
	if len(entries) == 0 {
		entries, datasetsUsed = r.rawFallback(ctx, subjectID, k, requestID, monitor)
	}

	entries = dropBlank(entries)
	monitor.Finish(entries)
	return entries, datasetsUsed, nil
}

// semanticSearch embeds the query once and runs the vector search.
func (r *Retriever) semanticSearch(ctx context.Context, query string, datasets []string, k int) ([]*core.Snippet, error) {
	vector, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		r.logger.Error("error generating embedding for query", "err", err)
		return nil, err
	}

	hits, err := r.repo.FindSimilar(ctx, vector, datasets, minSimilarity, k)
	if err != nil {
		r.logger.Error("error querying for similar snippets", "err", err)
		return nil, err
	}

	entries := make([]*core.Snippet, 0, len(hits))
	for _, hit := range hits {
		entries = append(entries, hit.Snippet)
	}
	return entries, nil
}

// rawFallback reads the subject's most recent rows, bypassing semantic
// ranking. Private dataset first, then the conversation dataset.
func (r *Retriever) rawFallback(ctx context.Context, subjectID int64, k int, requestID string, monitor Monitor) ([]*core.Snippet, []string) {
	for _, dataset := range []string{PrivateDataset(subjectID), ChatDataset(subjectID)} {
		rows, err := r.repo.GetRecentSnippets(ctx, dataset, k)
		if err != nil {
			r.logger.Warn("raw fallback read failed",
				"dataset", dataset, "request_id", requestID, "err", err)
			continue
		}
		if len(rows) > 0 {
			monitor.RawFallback(dataset, len(rows))
			return rows, []string{dataset}
		}
	}
	return nil, nil
}

// dropBlank removes snippets whose text is empty after trimming.
func dropBlank(entries []*core.Snippet) []*core.Snippet {
	out := entries[:0]
	for _, e := range entries {
		if e != nil && strings.TrimSpace(e.Text) != "" {
			out = append(out, e)
		}
	}
	return out
}
