package projection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCounter is a hand-rolled counter whose per-dataset counts can be
// changed mid-test to simulate the indexer catching up.
type fakeCounter struct {
	mu      sync.Mutex
	rows    map[string]int
	indexed map[string]int
	err     error
	probes  int
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{
		rows:    make(map[string]int),
		indexed: make(map[string]int),
	}
}

func (f *fakeCounter) set(dataset string, rows, indexed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[dataset] = rows
	f.indexed[dataset] = indexed
}

func (f *fakeCounter) CountRows(ctx context.Context, dataset string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	return f.rows[dataset], nil
}

func (f *fakeCounter) CountIndexed(ctx context.Context, dataset string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	if f.err != nil {
		return 0, f.err
	}
	return f.indexed[dataset], nil
}

func (f *fakeCounter) probeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probes
}

func newTestTracker(t *testing.T, counter *fakeCounter) *Tracker {
	t.Helper()
	prober, err := NewStoreProber(counter)
	require.NoError(t, err)
	tracker, err := NewTracker(prober, WithPollInterval(5*time.Millisecond))
	require.NoError(t, err)
	return tracker
}

func TestProbeOutcomes(t *testing.T) {
	counter := newFakeCounter()
	tracker := newTestTracker(t, counter)
	ctx := context.Background()

	t.Run("indexed rows are ready", func(t *testing.T) {
		counter.set("ds-ready", 3, 3)
		ready, reason := tracker.Probe(ctx, "ds-ready", "test")
		assert.True(t, ready)
		assert.Equal(t, ReasonOK, reason)
		assert.Equal(t, StatusReady, tracker.Lookup("ds-ready"))
	})

	t.Run("no rows at all", func(t *testing.T) {
		ready, reason := tracker.Probe(ctx, "ds-empty", "test")
		assert.False(t, ready)
		assert.Equal(t, ReasonNoRows, reason)
	})

	t.Run("rows but nothing indexed is still projecting", func(t *testing.T) {
		counter.set("ds-lagging", 5, 0)
		ready, reason := tracker.Probe(ctx, "ds-lagging", "test")
		assert.False(t, ready)
		assert.Equal(t, ReasonOK, reason)
		// Non-terminal outcome leaves the cached status alone.
		assert.Equal(t, StatusUnknown, tracker.Lookup("ds-lagging"))
	})

	t.Run("store failure is fatal", func(t *testing.T) {
		failing := newFakeCounter()
		failing.err = errors.New("disk on fire")
		broken := newTestTracker(t, failing)

		ready, reason := broken.Probe(ctx, "ds-broken", "test")
		assert.False(t, ready)
		assert.Equal(t, ReasonFatal, reason)
		assert.Equal(t, StatusFatalError, broken.Lookup("ds-broken"))
	})
}

func TestWaitReturnsReadyWhenIndexerCatchesUp(t *testing.T) {
	counter := newFakeCounter()
	counter.set("ds", 2, 0)
	tracker := newTestTracker(t, counter)

	// Flip to indexed shortly after the wait starts.
	go func() {
		time.Sleep(15 * time.Millisecond)
		counter.set("ds", 2, 2)
	}()

	status := tracker.Wait(context.Background(), "ds", "test", 500*time.Millisecond)
	assert.Equal(t, StatusReady, status)
}

func TestWaitConfirmsEmptiness(t *testing.T) {
	counter := newFakeCounter()
	tracker := newTestTracker(t, counter)

	start := time.Now()
	status := tracker.Wait(context.Background(), "ds-empty", "test", 500*time.Millisecond)

	// Two consecutive no-rows probes confirm emptiness well before the
	// timeout.
	assert.Equal(t, StatusReadyEmpty, status)
	assert.Less(t, time.Since(start), 200*time.Millisecond)
	assert.Equal(t, StatusReadyEmpty, tracker.Lookup("ds-empty"))
}

func TestWaitTimesOutAsPending(t *testing.T) {
	counter := newFakeCounter()
	counter.set("ds-slow", 4, 0) // rows forever unindexed
	tracker := newTestTracker(t, counter)

	start := time.Now()
	status := tracker.Wait(context.Background(), "ds-slow", "test", 30*time.Millisecond)

	assert.Equal(t, StatusPending, status)
	assert.Less(t, time.Since(start), 300*time.Millisecond, "wait must be bounded")
}

func TestWaitStopsOnContextCancel(t *testing.T) {
	counter := newFakeCounter()
	counter.set("ds", 1, 0)
	tracker := newTestTracker(t, counter)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	status := tracker.Wait(ctx, "ds", "test", 10*time.Second)
	assert.Equal(t, StatusPending, status)
}

func TestWaitFatalStopsPolling(t *testing.T) {
	counter := newFakeCounter()
	counter.err = errors.New("store down")
	tracker := newTestTracker(t, counter)

	status := tracker.Wait(context.Background(), "ds", "test", 500*time.Millisecond)
	assert.Equal(t, StatusFatalError, status)
}

func TestEnsureShortCircuitsOnlyReady(t *testing.T) {
	counter := newFakeCounter()
	counter.set("ds", 1, 1)
	tracker := newTestTracker(t, counter)
	ctx := context.Background()

	require.Equal(t, StatusReady, tracker.Wait(ctx, "ds", "test", 100*time.Millisecond))
	probesBefore := counter.probeCount()

	// A second Ensure must not probe.
	assert.Equal(t, StatusReady, tracker.Ensure(ctx, "ds", "test", 100*time.Millisecond))
	assert.Equal(t, probesBefore, counter.probeCount())

	// A READY_EMPTY dataset is re-probed and can become ready.
	require.Equal(t, StatusReadyEmpty, tracker.Wait(ctx, "ds-empty", "test", 100*time.Millisecond))
	counter.set("ds-empty", 1, 1)
	assert.Equal(t, StatusReady, tracker.Ensure(ctx, "ds-empty", "test", 100*time.Millisecond))
}
