package transfer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sorairo/resonance/internal/cache"
	"github.com/sorairo/resonance/internal/domain"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Concurrency = 4
	cfg.HTTPTimeout = 2 * time.Second
	cfg.HTTPConnectTimeout = 1 * time.Second
	cfg.Retries = 2
	cfg.RetryBackoff = 5 * time.Millisecond
	cfg.RetryBackoffMax = 20 * time.Millisecond
	return cfg
}

func waitForEvent(t *testing.T, evts <-chan Event) Event {
	t.Helper()
	select {
	case e := <-evts:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for transfer event")
		return Event{}
	}
}

func expectNoEvent(t *testing.T, evts <-chan Event, d time.Duration) {
	t.Helper()
	select {
	case e := <-evts:
		t.Fatalf("unexpected event: %+v", e)
	case <-time.After(d):
	}
}

func TestScenarioACacheHitShortCircuitsNoHTTP(t *testing.T) {
	dir := t.TempDir()
	key := domain.CacheKey{TrackID: 1, Bitrate: 320000}

	// Pre-populate the cache directly, bypassing the actor, to assert the
	// actor never dials out on a hit.
	c, err := cache.Open(dir, 1<<30)
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	tmp, err := os.CreateTemp(dir, "src-*.tmp")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	tmp.WriteString("cached audio")
	tmp.Close()
	if _, err := c.Commit(key, tmp.Name()); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	a, err := New(dir, testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	if err := a.EnsureCached(ctx, 7, key, "http://127.0.0.1:1/unreachable", "t", domain.PriorityHigh); err != nil {
		t.Fatalf("EnsureCached: %v", err)
	}

	evt := waitForEvent(t, a.Events())
	if evt.Kind != EventReady || evt.Token != 7 {
		t.Fatalf("expected immediate Ready for token 7, got %+v", evt)
	}
}

func TestEnsureCachedFireAndForgetEmitsNoEvent(t *testing.T) {
	dir := t.TempDir()
	key := domain.CacheKey{TrackID: 1, Bitrate: 320000}
	c, err := cache.Open(dir, 1<<30)
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	tmp, _ := os.CreateTemp(dir, "src-*.tmp")
	tmp.WriteString("x")
	tmp.Close()
	if _, err := c.Commit(key, tmp.Name()); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	a, err := New(dir, testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	if err := a.EnsureCached(ctx, 0, key, "http://127.0.0.1:1/unreachable", "t", domain.PriorityLow); err != nil {
		t.Fatalf("EnsureCached: %v", err)
	}
	expectNoEvent(t, a.Events(), 100*time.Millisecond)
}

func TestDedupCoalescesConcurrentRequests(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		time.Sleep(50 * time.Millisecond)
		fmt.Fprint(w, "audio-bytes")
	}))
	defer srv.Close()

	dir := t.TempDir()
	a, err := New(dir, testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	key := domain.CacheKey{TrackID: 9, Bitrate: 128000}
	if err := a.EnsureCached(ctx, 1, key, srv.URL, "t", domain.PriorityLow); err != nil {
		t.Fatalf("EnsureCached 1: %v", err)
	}
	if err := a.EnsureCached(ctx, 2, key, srv.URL, "t", domain.PriorityHigh); err != nil {
		t.Fatalf("EnsureCached 2: %v", err)
	}

	seen := map[Token]Event{}
	for len(seen) < 2 {
		e := waitForEvent(t, a.Events())
		if e.Kind != EventReady {
			t.Fatalf("expected Ready events, got %+v", e)
		}
		seen[e.Token] = e
	}

	if seen[1].Path != seen[2].Path {
		t.Fatalf("expected both waiters to get the same path, got %q vs %q", seen[1].Path, seen[2].Path)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("expected exactly 1 HTTP request from deduped job, got %d", got)
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	var attempt int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempt, 1)
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, "audio-bytes")
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfg := testConfig()
	cfg.Retries = 3
	a, err := New(dir, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	key := domain.CacheKey{TrackID: 5, Bitrate: 192000}
	if err := a.EnsureCached(ctx, 3, key, srv.URL, "t", domain.PriorityHigh); err != nil {
		t.Fatalf("EnsureCached: %v", err)
	}

	evt := waitForEvent(t, a.Events())
	if evt.Kind != EventReady {
		t.Fatalf("expected eventual Ready after retries, got %+v", evt)
	}
	if got := atomic.LoadInt32(&attempt); got != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", got)
	}
}

func TestRetriesExhaustedSurfacesError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfg := testConfig()
	cfg.Retries = 1
	a, err := New(dir, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	key := domain.CacheKey{TrackID: 6, Bitrate: 192000}
	if err := a.EnsureCached(ctx, 4, key, srv.URL, "t", domain.PriorityHigh); err != nil {
		t.Fatalf("EnsureCached: %v", err)
	}

	evt := waitForEvent(t, a.Events())
	if evt.Kind != EventError || evt.Token != 4 {
		t.Fatalf("expected Error event after exhausting retries, got %+v", evt)
	}
}

func TestActiveBitratePolicyPurgesOtherBitrates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "audio-bytes")
	}))
	defer srv.Close()

	dir := t.TempDir()
	a, err := New(dir, testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	low := domain.CacheKey{TrackID: 11, Bitrate: 128000}
	high := domain.CacheKey{TrackID: 11, Bitrate: 320000}

	if err := a.PurgeNotBr(ctx, 320000, ""); err != nil {
		t.Fatalf("PurgeNotBr: %v", err)
	}
	if err := a.EnsureCached(ctx, 21, low, srv.URL, "t", domain.PriorityLow); err != nil {
		t.Fatalf("EnsureCached low: %v", err)
	}
	waitForEvent(t, a.Events())

	if err := a.EnsureCached(ctx, 22, high, srv.URL, "t", domain.PriorityHigh); err != nil {
		t.Fatalf("EnsureCached high: %v", err)
	}
	waitForEvent(t, a.Events())

	// Give the actor's synchronous-from-its-own-goroutine cache mutation a
	// moment to land before re-querying it from the test goroutine.
	time.Sleep(20 * time.Millisecond)

	if err := a.EnsureCached(ctx, 23, low, srv.URL+"/refetch-after-purge", "t", domain.PriorityLow); err != nil {
		t.Fatalf("EnsureCached low again: %v", err)
	}
	evt := waitForEvent(t, a.Events())
	if evt.Kind != EventReady {
		t.Fatalf("expected the low bitrate to have been purged and re-fetched, got %+v", evt)
	}
}

func TestClearAllEmitsCacheCleared(t *testing.T) {
	dir := t.TempDir()
	a, err := New(dir, testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	if err := a.ClearAll(ctx, ""); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	evt := waitForEvent(t, a.Events())
	if evt.Kind != EventCacheCleared {
		t.Fatalf("expected CacheCleared event, got %+v", evt)
	}
}
