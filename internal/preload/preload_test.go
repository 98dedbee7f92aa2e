package preload_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sorairo/resonance/internal/domain"
	"github.com/sorairo/resonance/internal/preload"
)

type fakeFetcher struct {
	mu sync.Mutex

	ids    []int64
	idsErr error

	pageErr    error
	blockPages bool
	release    chan struct{}

	pageCalls [][]int64
}

func (f *fakeFetcher) FetchPlaylistTrackIDs(ctx context.Context, playlistID int64) ([]int64, error) {
	if f.idsErr != nil {
		return nil, f.idsErr
	}
	return append([]int64(nil), f.ids...), nil
}

func (f *fakeFetcher) FetchTracksByIDs(ctx context.Context, playlistID int64, ids []int64) ([]domain.Track, error) {
	f.mu.Lock()
	f.pageCalls = append(f.pageCalls, append([]int64(nil), ids...))
	f.mu.Unlock()

	if f.blockPages {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.pageErr != nil {
		return nil, f.pageErr
	}

	tracks := make([]domain.Track, len(ids))
	for i, id := range ids {
		tracks[i] = domain.Track{ID: id, Title: fmt.Sprintf("track-%d", id)}
	}
	return tracks, nil
}

func (f *fakeFetcher) pageCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pageCalls)
}

func idsRange(n int) []int64 {
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	return ids
}

func waitForPreloadEvent(t *testing.T, evts <-chan preload.Event) preload.Event {
	t.Helper()
	select {
	case e := <-evts:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for preload event")
		return preload.Event{}
	}
}

func TestForegroundLoadHydratesAndCompletes(t *testing.T) {
	f := &fakeFetcher{ids: idsRange(3)}
	m := preload.New(f, 2)

	songs, err := m.ForegroundLoad(context.Background(), 1)
	if err != nil {
		t.Fatalf("ForegroundLoad: %v", err)
	}
	if len(songs) != 3 {
		t.Fatalf("expected 3 songs, got %d", len(songs))
	}

	progress, ok := m.Progress(1)
	if !ok || progress.Status != preload.StatusCompleted {
		t.Fatalf("expected Completed progress, got %+v (ok=%v)", progress, ok)
	}

	cached, ok := m.Songs(1)
	if !ok || len(cached) != 3 {
		t.Fatalf("expected cached songs after completion, got %v (ok=%v)", cached, ok)
	}
}

func TestHydratePagesInChunksOf200(t *testing.T) {
	f := &fakeFetcher{ids: idsRange(250)}
	m := preload.New(f, 1)

	songs, err := m.ForegroundLoad(context.Background(), 1)
	if err != nil {
		t.Fatalf("ForegroundLoad: %v", err)
	}
	if len(songs) != 250 {
		t.Fatalf("expected 250 songs, got %d", len(songs))
	}
	if got := f.pageCallCount(); got != 2 {
		t.Fatalf("expected 2 page fetches (200 + 50), got %d", got)
	}
	if len(f.pageCalls[0]) != 200 || len(f.pageCalls[1]) != 50 {
		t.Fatalf("unexpected page sizes: %d, %d", len(f.pageCalls[0]), len(f.pageCalls[1]))
	}
}

func TestForegroundLoadReturnsCachedSongsWithoutRefetch(t *testing.T) {
	f := &fakeFetcher{ids: idsRange(3)}
	m := preload.New(f, 1)

	if _, err := m.ForegroundLoad(context.Background(), 1); err != nil {
		t.Fatalf("first ForegroundLoad: %v", err)
	}
	callsAfterFirst := f.pageCallCount()

	songs, err := m.ForegroundLoad(context.Background(), 1)
	if err != nil {
		t.Fatalf("second ForegroundLoad: %v", err)
	}
	if len(songs) != 3 {
		t.Fatalf("expected cached 3 songs, got %d", len(songs))
	}
	if got := f.pageCallCount(); got != callsAfterFirst {
		t.Fatalf("expected no additional page fetches for an already-completed playlist, got %d vs %d", got, callsAfterFirst)
	}
}

func TestBackgroundPreloadReportsProgressToCompletion(t *testing.T) {
	f := &fakeFetcher{ids: idsRange(3)}
	m := preload.New(f, 1)

	m.Preload(context.Background(), 1)

	var last preload.Event
	for i := 0; i < 10; i++ {
		last = waitForPreloadEvent(t, m.Events())
		if last.Progress.Status == preload.StatusCompleted {
			break
		}
	}
	if last.Progress.Status != preload.StatusCompleted {
		t.Fatalf("expected to observe a Completed event, last was %+v", last)
	}
	if last.Progress.Loaded != 3 || last.Progress.Total != 3 {
		t.Fatalf("unexpected final progress: %+v", last.Progress)
	}
}

func TestCancelStopsInFlightPreload(t *testing.T) {
	f := &fakeFetcher{ids: idsRange(2), blockPages: true, release: make(chan struct{})}
	m := preload.New(f, 1)

	m.Preload(context.Background(), 1)
	time.Sleep(50 * time.Millisecond) // let it block inside the page fetch

	m.Cancel(1)

	progress, ok := m.Progress(1)
	if !ok || progress.Status != preload.StatusCancelled {
		t.Fatalf("expected Cancelled progress, got %+v (ok=%v)", progress, ok)
	}

	close(f.release) // unblock the stranded fetch goroutine so it can exit
	time.Sleep(50 * time.Millisecond)

	progress, ok = m.Progress(1)
	if !ok || progress.Status != preload.StatusCancelled {
		t.Fatalf("expected progress to remain Cancelled after the stale fetch unblocked, got %+v", progress)
	}
}

func TestForegroundLoadSupersedesInFlightPreload(t *testing.T) {
	f := &fakeFetcher{ids: idsRange(2), blockPages: true, release: make(chan struct{})}
	m := preload.New(f, 1)

	m.Preload(context.Background(), 1)
	time.Sleep(50 * time.Millisecond) // let it block inside the page fetch

	type result struct {
		songs []domain.Track
		err   error
	}
	resultCh := make(chan result, 1)
	go func() {
		songs, err := m.ForegroundLoad(context.Background(), 1)
		resultCh <- result{songs, err}
	}()
	time.Sleep(50 * time.Millisecond) // let ForegroundLoad start and also block on the page fetch

	close(f.release) // unblock both the superseded goroutine and the foreground one

	select {
	case res := <-resultCh:
		if res.err != nil {
			t.Fatalf("ForegroundLoad: %v", res.err)
		}
		if len(res.songs) != 2 {
			t.Fatalf("expected 2 songs, got %d", len(res.songs))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ForegroundLoad")
	}

	progress, ok := m.Progress(1)
	if !ok || progress.Status != preload.StatusCompleted {
		t.Fatalf("expected Completed progress from the foreground load, got %+v (ok=%v)", progress, ok)
	}
}
