// Package preload implements the preload manager (spec §4.7): bounded
// background hydration of playlist contents, paged to avoid huge single
// responses, using the same generation-gating scheme as
// internal/prefetch so a cancelled or superseded load never clobbers a
// newer one's state.
package preload

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sorairo/resonance/internal/domain"
)

// pageSize bounds each FetchTracksByIDs call, per spec §4.7 ("pages of
// 200 ids to avoid huge single responses").
const pageSize = 200

// Status is the closed set of per-playlist preload states.
type Status int

const (
	StatusLoading Status = iota
	StatusCompleted
	StatusFailed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Progress is a playlist's hydration state as of the last update.
type Progress struct {
	Status Status
	Loaded int
	Total  int
}

// Event is published whenever a playlist's Progress changes.
type Event struct {
	PlaylistID int64
	Progress   Progress
}

// TrackFetcher resolves playlist content in the two steps the catalog
// API requires: first the full ordered list of track ids, then batches
// of full track records for pages of up to 200 ids at a time.
type TrackFetcher interface {
	FetchPlaylistTrackIDs(ctx context.Context, playlistID int64) ([]int64, error)
	FetchTracksByIDs(ctx context.Context, playlistID int64, ids []int64) ([]domain.Track, error)
}

type playlistState struct {
	generation uint64
	progress   Progress
	songs      []domain.Track
	cancel     context.CancelFunc
}

// Manager hydrates playlist contents in the background, bounded to at
// most maxConcurrent playlists loading at once (spec: "up to K
// playlists").
type Manager struct {
	mu      sync.Mutex
	fetcher TrackFetcher
	sem     chan struct{}
	states  map[int64]*playlistState
	evtCh   chan Event
}

// New constructs a Manager that fetches through fetcher, running at most
// maxConcurrent background hydrations at once.
func New(fetcher TrackFetcher, maxConcurrent int) *Manager {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Manager{
		fetcher: fetcher,
		sem:     make(chan struct{}, maxConcurrent),
		states:  make(map[int64]*playlistState),
		evtCh:   make(chan Event, 256),
	}
}

// Events returns the channel progress updates are published on.
func (m *Manager) Events() <-chan Event { return m.evtCh }

// Preload starts (or restarts) background hydration for playlistID,
// queued behind the manager's concurrency limit. A no-op if playlistID
// has already completed.
func (m *Manager) Preload(ctx context.Context, playlistID int64) {
	m.mu.Lock()
	if st, ok := m.states[playlistID]; ok && st.progress.Status == StatusCompleted {
		m.mu.Unlock()
		return
	}
	gen := m.nextGenerationLocked(playlistID)
	loadCtx, cancel := context.WithCancel(ctx)
	m.states[playlistID] = &playlistState{generation: gen, progress: Progress{Status: StatusLoading}, cancel: cancel}
	m.mu.Unlock()

	go func() {
		select {
		case m.sem <- struct{}{}:
		case <-loadCtx.Done():
			return
		}
		defer func() { <-m.sem }()
		m.hydrate(loadCtx, playlistID, gen)
	}()
}

// ForegroundLoad cancels any in-flight or queued preload for playlistID
// and performs an immediate, unbounded-priority hydration — unless
// playlistID already completed, in which case its cached songs are
// returned with no network round-trip (spec §4.7).
func (m *Manager) ForegroundLoad(ctx context.Context, playlistID int64) ([]domain.Track, error) {
	m.mu.Lock()
	if st, ok := m.states[playlistID]; ok {
		if st.progress.Status == StatusCompleted {
			songs := append([]domain.Track(nil), st.songs...)
			m.mu.Unlock()
			return songs, nil
		}
		if st.cancel != nil {
			st.cancel()
		}
	}
	gen := m.nextGenerationLocked(playlistID)
	m.states[playlistID] = &playlistState{generation: gen, progress: Progress{Status: StatusLoading}}
	m.mu.Unlock()

	return m.hydrate(ctx, playlistID, gen)
}

// Cancel drops playlistID's in-flight preload. Any page fetch already in
// flight is ignored on return since it no longer matches the current
// generation.
func (m *Manager) Cancel(playlistID int64) {
	m.mu.Lock()
	st, ok := m.states[playlistID]
	if !ok || st.progress.Status != StatusLoading {
		m.mu.Unlock()
		return
	}
	if st.cancel != nil {
		st.cancel()
	}
	st.generation++
	st.progress = Progress{Status: StatusCancelled}
	evt := Event{PlaylistID: playlistID, Progress: st.progress}
	m.mu.Unlock()
	m.publish(evt)
}

// Progress returns the last known progress for playlistID.
func (m *Manager) Progress(playlistID int64) (Progress, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[playlistID]
	if !ok {
		return Progress{}, false
	}
	return st.progress, true
}

// Songs returns the hydrated songs for a Completed playlist.
func (m *Manager) Songs(playlistID int64) ([]domain.Track, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[playlistID]
	if !ok || st.progress.Status != StatusCompleted {
		return nil, false
	}
	return append([]domain.Track(nil), st.songs...), true
}

func (m *Manager) nextGenerationLocked(playlistID int64) uint64 {
	if st, ok := m.states[playlistID]; ok {
		return st.generation + 1
	}
	return 1
}

// hydrate fetches playlistID's track ids, then resolves them page by
// page, checking after each page that gen is still current before
// continuing (spec invariant: a generation change drops an in-flight
// reply before it mutates state).
func (m *Manager) hydrate(ctx context.Context, playlistID int64, gen uint64) ([]domain.Track, error) {
	ids, err := m.fetcher.FetchPlaylistTrackIDs(ctx, playlistID)
	if err != nil {
		m.finish(playlistID, gen, Progress{Status: terminalStatus(ctx, err)}, nil)
		return nil, err
	}

	total := len(ids)
	songs := make([]domain.Track, 0, total)

	for start := 0; start < total; start += pageSize {
		if !m.stillCurrent(playlistID, gen) {
			return nil, ctx.Err()
		}

		end := start + pageSize
		if end > total {
			end = total
		}
		page, err := m.fetcher.FetchTracksByIDs(ctx, playlistID, ids[start:end])
		if err != nil {
			m.finish(playlistID, gen, Progress{Status: terminalStatus(ctx, err), Loaded: len(songs), Total: total}, nil)
			return nil, err
		}
		songs = append(songs, page...)
		m.updateProgress(playlistID, gen, Progress{Status: StatusLoading, Loaded: len(songs), Total: total})
	}

	m.finish(playlistID, gen, Progress{Status: StatusCompleted, Loaded: total, Total: total}, songs)
	return songs, nil
}

func terminalStatus(ctx context.Context, err error) Status {
	if ctx.Err() != nil {
		return StatusCancelled
	}
	_ = err
	return StatusFailed
}

func (m *Manager) stillCurrent(playlistID int64, gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[playlistID]
	return ok && st.generation == gen
}

func (m *Manager) updateProgress(playlistID int64, gen uint64, p Progress) {
	m.mu.Lock()
	st, ok := m.states[playlistID]
	if !ok || st.generation != gen {
		m.mu.Unlock()
		return
	}
	st.progress = p
	m.mu.Unlock()
	m.publish(Event{PlaylistID: playlistID, Progress: p})
}

func (m *Manager) finish(playlistID int64, gen uint64, p Progress, songs []domain.Track) {
	m.mu.Lock()
	st, ok := m.states[playlistID]
	if !ok || st.generation != gen {
		m.mu.Unlock()
		return
	}
	st.progress = p
	if songs != nil {
		st.songs = songs
	}
	m.mu.Unlock()
	m.publish(Event{PlaylistID: playlistID, Progress: p})
}

func (m *Manager) publish(evt Event) {
	select {
	case m.evtCh <- evt:
	default:
		slog.Warn("preload event channel full, dropping event", "playlist_id", evt.PlaylistID)
	}
}
