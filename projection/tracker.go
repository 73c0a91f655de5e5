package projection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Status describes the last known projection outcome for a dataset.
type Status int

const (
	// StatusUnknown means the dataset has never been probed.
	StatusUnknown Status = iota
	// StatusReady means at least one row is visible to semantic search.
	StatusReady
	// StatusReadyEmpty means the dataset stably has no rows at all. An
	// empty dataset is a valid terminal state, not a retry condition.
	StatusReadyEmpty
	// StatusFatalError means the last probe failed against the store.
	StatusFatalError
	// StatusPending is a wait outcome only: the timeout elapsed while
	// the dataset was still projecting. Callers must treat it as
	// "proceed without this dataset" and must not coerce it to ready.
	StatusPending
)

// String returns a log-friendly name for the status.
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusReadyEmpty:
		return "ready_empty"
	case StatusFatalError:
		return "fatal_error"
	case StatusPending:
		return "pending"
	}
	return "unknown"
}

// Probe reasons.
const (
	ReasonOK     = "ok"
	ReasonNoRows = "no_rows_in_dataset"
	ReasonFatal  = "fatal_error"
)

// Prober performs one non-blocking projection check for a dataset.
type Prober interface {
	// ProbeDataset reports whether the dataset is queryable and why not
	// when it isn't. reason is one of ReasonOK, ReasonNoRows,
	// ReasonFatal. (false, ReasonOK) means rows exist but none are
	// indexed yet.
	ProbeDataset(ctx context.Context, dataset, actor string) (ready bool, reason string)
}

// counter is the slice of the snippet repository the store prober needs.
type counter interface {
	CountRows(ctx context.Context, dataset string) (int, error)
	CountIndexed(ctx context.Context, dataset string) (int, error)
}

// storeProber probes projection state against the snippet store.
type storeProber struct {
	store  counter
	logger *slog.Logger
}

// NewStoreProber creates a Prober backed by the snippet store's row and
// index counts.
func NewStoreProber(store counter) (Prober, error) {
	if store == nil {
		return nil, errors.New("store required")
	}
	return &storeProber{
		store:  store,
		logger: slog.Default().With("component", "projection-prober"),
	}, nil
}

func (p *storeProber) ProbeDataset(ctx context.Context, dataset, actor string) (bool, string) {
	indexed, err := p.store.CountIndexed(ctx, dataset)
	if err != nil {
		p.logger.Error("indexed count failed", "dataset", dataset, "actor", actor, "err", err)
		return false, ReasonFatal
	}
	if indexed > 0 {
		return true, ReasonOK
	}

	rows, err := p.store.CountRows(ctx, dataset)
	if err != nil {
		p.logger.Error("row count failed", "dataset", dataset, "actor", actor, "err", err)
		return false, ReasonFatal
	}
	if rows == 0 {
		return false, ReasonNoRows
	}

	// Rows exist but none are indexed yet: still projecting.
	return false, ReasonOK
}

// State is the per-dataset projection record. Created lazily on first
// probe, mutated only by probe/wait, never deleted.
type State struct {
	Dataset     string
	Status      Status
	LastChecked time.Time
}

// Tracker caches projection state per dataset and exposes the bounded
// wait. Safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	states   map[string]*State
	prober   Prober
	interval time.Duration
	logger   *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker) error

// WithPollInterval sets the probe polling interval used by Wait.
// Default is 100ms.
func WithPollInterval(interval time.Duration) Option {
	return func(t *Tracker) error {
		if interval <= 0 {
			return errors.New("poll interval must be positive")
		}
		t.interval = interval
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) error {
		if logger == nil {
			logger = slog.Default()
		}
		t.logger = logger
		return nil
	}
}

// NewTracker creates a projection tracker over the given prober.
func NewTracker(prober Prober, opts ...Option) (*Tracker, error) {
	if prober == nil {
		return nil, errors.New("prober required")
	}

	t := &Tracker{
		states:   make(map[string]*State),
		prober:   prober,
		interval: 100 * time.Millisecond,
		logger:   slog.Default().With("component", "projection-tracker"),
	}

	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// Probe performs one non-blocking check and records the outcome.
func (t *Tracker) Probe(ctx context.Context, dataset, actor string) (bool, string) {
	ready, reason := t.prober.ProbeDataset(ctx, dataset, actor)

	switch {
	case ready:
		t.record(dataset, StatusReady)
	case reason == ReasonFatal:
		t.record(dataset, StatusFatalError)
	default:
		// Not terminal; keep the last known status but refresh the
		// check time.
		t.touch(dataset)
	}

	return ready, reason
}

// Wait polls Probe at a fixed interval until the dataset is ready, until
// emptiness is confirmed on two consecutive probes, or until the timeout
// (or ctx) expires. It never blocks longer than timeout and returns one
// of StatusReady, StatusReadyEmpty, StatusFatalError, StatusPending.
func (t *Tracker) Wait(ctx context.Context, dataset, actor string, timeout time.Duration) Status {
	deadline := time.Now().Add(timeout)
	emptyStreak := 0

	for {
		ready, reason := t.Probe(ctx, dataset, actor)
		if ready {
			return StatusReady
		}

		switch reason {
		case ReasonFatal:
			return StatusFatalError
		case ReasonNoRows:
			emptyStreak++
			if emptyStreak >= 2 {
				t.record(dataset, StatusReadyEmpty)
				return StatusReadyEmpty
			}
		default:
			emptyStreak = 0
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.logger.Debug("projection wait timed out",
				"dataset", dataset, "actor", actor, "timeout", timeout)
			return StatusPending
		}

		sleep := t.interval
		if remaining < sleep {
			sleep = remaining
		}
		select {
		case <-ctx.Done():
			return StatusPending
		case <-time.After(sleep):
		}
	}
}

// Ensure is Wait with a short-circuit: a dataset already known ready is
// not re-probed. A cached READY_EMPTY is re-probed so a dataset that has
// since received rows gets another chance.
func (t *Tracker) Ensure(ctx context.Context, dataset, actor string, timeout time.Duration) Status {
	if s := t.Lookup(dataset); s == StatusReady {
		return s
	}
	return t.Wait(ctx, dataset, actor, timeout)
}

// Lookup returns the cached status for a dataset without probing.
func (t *Tracker) Lookup(dataset string) Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.states[dataset]; ok {
		return s.Status
	}
	return StatusUnknown
}

// LastChecked returns when the dataset was last probed, zero if never.
func (t *Tracker) LastChecked(dataset string) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.states[dataset]; ok {
		return s.LastChecked
	}
	return time.Time{}
}

func (t *Tracker) record(dataset string, status Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.states[dataset]
	if !ok {
		s = &State{Dataset: dataset}
		t.states[dataset] = s
	}
	s.Status = status
	s.LastChecked = time.Now()
}

func (t *Tracker) touch(dataset string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.states[dataset]
	if !ok {
		s = &State{Dataset: dataset}
		t.states[dataset] = s
	}
	s.LastChecked = time.Now()
}
