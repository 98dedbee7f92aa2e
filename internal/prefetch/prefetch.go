// Package prefetch implements the next-song prefetcher (spec §4.4): on
// every new playback start it resolves the track the current play mode
// says comes next and warms the disk cache for it at low priority,
// guarded by a generation counter so a mode/queue change invalidates any
// resolve already in flight.
package prefetch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sorairo/resonance/internal/domain"
	"github.com/sorairo/resonance/internal/queue"
)

// URLResolver resolves a track+bitrate to a playable URL. Satisfied by
// internal/apiclient.Client; kept narrow here so prefetch has no direct
// dependency on the HTTP layer.
type URLResolver interface {
	ResolveSongURL(ctx context.Context, trackID, bitrate int64) (string, error)
}

// AudioSink accepts low-priority cache warm-up requests. Satisfied by
// *audio.Engine.
type AudioSink interface {
	PrefetchAudio(ctx context.Context, id, bitrate int64, url, title string) error
}

// Prefetcher tracks enough state to satisfy spec §4.4's invariants: at
// most one resolve in flight, and any queue/mode change invalidates both
// the in-flight resolve's reply and the "don't repeat this track"
// dedup memory.
type Prefetcher struct {
	mu sync.Mutex

	resolver URLResolver
	sink     AudioSink
	bitrate  int64

	generation       uint64
	lastPrefetchedID int64
	inFlight         bool
}

// New constructs a Prefetcher that resolves URLs via resolver and warms
// the cache through sink, at the given bitrate.
func New(resolver URLResolver, sink AudioSink, bitrate int64) *Prefetcher {
	return &Prefetcher{resolver: resolver, sink: sink, bitrate: bitrate}
}

// InvalidateGeneration bumps the generation counter and clears the
// dedup memory. Call this on queue replacement, mode change, stop, or an
// explicit reset — any action that changes "what's next" (spec §4.4).
func (p *Prefetcher) InvalidateGeneration() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generation++
	p.lastPrefetchedID = 0
	return p.generation
}

// SetBitrate updates the bitrate used for future prefetch requests.
func (p *Prefetcher) SetBitrate(bitrate int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bitrate = bitrate
}

// OnPlaybackStarted implements spec §4.4's prefetch logic against q's
// state as of the moment a new playback started. It resolves and
// prefetches asynchronously; ctx governs the resolve request only (a
// cancelled ctx simply drops this prefetch attempt, it never blocks the
// caller).
func (p *Prefetcher) OnPlaybackStarted(ctx context.Context, q *queue.Queue) {
	if q.Len() == 0 {
		return
	}

	mode := q.Mode()
	if mode == domain.ModeShuffle || mode == domain.ModeSingleLoop {
		// Shuffle's next track is unpredictable until chosen; SingleLoop's
		// next track is the one already playing, already cached.
		return
	}

	next, ok := q.PeekNext()
	if !ok {
		return // Sequential at the end: no next.
	}

	p.mu.Lock()
	if p.inFlight || next.ID == p.lastPrefetchedID {
		p.mu.Unlock()
		return
	}
	p.inFlight = true
	gen := p.generation
	bitrate := p.bitrate
	p.mu.Unlock()

	go p.resolveAndPrefetch(ctx, gen, bitrate, next)
}

func (p *Prefetcher) resolveAndPrefetch(ctx context.Context, gen uint64, bitrate int64, track domain.Track) {
	url, err := p.resolver.ResolveSongURL(ctx, track.ID, bitrate)

	p.mu.Lock()
	p.inFlight = false
	if gen != p.generation {
		// The queue or mode changed while the resolve was outstanding;
		// this reply no longer describes "what's next" (spec invariant:
		// a generation change drops any in-flight reply before it can
		// mutate state).
		p.mu.Unlock()
		return
	}
	if err != nil {
		p.mu.Unlock()
		slog.Warn("resolve prefetch url", "track_id", track.ID, "error", err)
		return
	}
	p.lastPrefetchedID = track.ID
	p.mu.Unlock()

	if err := p.sink.PrefetchAudio(ctx, track.ID, bitrate, url, track.Title); err != nil {
		slog.Warn("submit prefetch", "track_id", track.ID, "error", err)
	}
}
