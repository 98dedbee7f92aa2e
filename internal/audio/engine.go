// Package audio implements the audio engine (spec §4.3): a single-track
// player with crossfade, pause/seek/volume control, and track-end
// signalling, backed by the transfer actor for cache-aware fetches.
package audio

import (
	"context"
	"log/slog"
	"time"

	"github.com/sorairo/resonance/internal/domain"
	"github.com/sorairo/resonance/internal/transfer"
)

const fadeTickInterval = 20 * time.Millisecond

// EventKind tags the variant of an Event.
type EventKind int

const (
	EventNowPlaying EventKind = iota
	EventPaused
	EventStopped
	EventEnded
	EventError
	EventNeedsReload
	EventCacheCleared
)

func (k EventKind) String() string {
	switch k {
	case EventNowPlaying:
		return "now_playing"
	case EventPaused:
		return "paused"
	case EventStopped:
		return "stopped"
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	case EventNeedsReload:
		return "needs_reload"
	case EventCacheCleared:
		return "cache_cleared"
	default:
		return "unknown"
	}
}

// Event is emitted on the engine's event channel.
type Event struct {
	Kind        EventKind
	TrackID     int64
	PlayID      uint64
	Title       string
	DurationMs  int64
	HasDuration bool
	Paused      bool
	Message     string
	Files       int
	Bytes       uint64
}

type command interface{ isCommand() }

type cmdPlayTrack struct {
	id, bitrate int64
	url, title  string
}

func (cmdPlayTrack) isCommand() {}

type cmdTogglePause struct{}

func (cmdTogglePause) isCommand() {}

type cmdStop struct{}

func (cmdStop) isCommand() {}

type cmdSeekToMs struct{ ms int64 }

func (cmdSeekToMs) isCommand() {}

type cmdSetVolume struct{ v float64 }

func (cmdSetVolume) isCommand() {}

type cmdSetCrossfadeMs struct{ ms int64 }

func (cmdSetCrossfadeMs) isCommand() {}

type cmdClearCache struct{}

func (cmdClearCache) isCommand() {}

type cmdSetCacheBr struct{ bitrate int64 }

func (cmdSetCacheBr) isCommand() {}

type cmdPrefetchAudio struct {
	id, bitrate int64
	url, title  string
}

func (cmdPrefetchAudio) isCommand() {}

// pendingPlay tracks the single in-flight user-initiated playback request
// across the cache-fetch boundary (spec §3's PendingPlay).
type pendingPlay struct {
	token   transfer.Token
	key     domain.CacheKey
	title   string
	url     string
	retries int
}

// Engine is the audio engine actor. It owns the output device (via its
// Backend) and drives a *transfer.Actor to satisfy playback requests
// against the disk cache.
type Engine struct {
	backend  Backend
	transfer *transfer.Actor
	state    *PlayerState

	crossfadeMs int64
	fade        *Crossfade
	pending     *pendingPlay
	nextToken   uint64

	cmdCh      chan command
	evtCh      chan Event
	sinkDoneCh chan uint64
}

// NewEngine constructs an engine around backend for output and actor for
// cache-aware fetches. initialCrossfadeMs seeds the crossfade duration
// (0 disables crossfading).
func NewEngine(backend Backend, actor *transfer.Actor, initialCrossfadeMs int64) *Engine {
	return &Engine{
		backend:     backend,
		transfer:    actor,
		state:       NewPlayerState(backend),
		crossfadeMs: initialCrossfadeMs,
		nextToken:   1,
		cmdCh:       make(chan command, 256),
		evtCh:       make(chan Event, 256),
		sinkDoneCh:  make(chan uint64, 16),
	}
}

// Events returns the channel the engine publishes playback events on.
func (e *Engine) Events() <-chan Event { return e.evtCh }

func (e *Engine) PlayTrack(ctx context.Context, id, bitrate int64, url, title string) error {
	return e.send(ctx, cmdPlayTrack{id: id, bitrate: bitrate, url: url, title: title})
}

func (e *Engine) TogglePause(ctx context.Context) error { return e.send(ctx, cmdTogglePause{}) }

func (e *Engine) Stop(ctx context.Context) error { return e.send(ctx, cmdStop{}) }

func (e *Engine) SeekToMs(ctx context.Context, ms int64) error {
	return e.send(ctx, cmdSeekToMs{ms: ms})
}

func (e *Engine) SetVolume(ctx context.Context, v float64) error {
	return e.send(ctx, cmdSetVolume{v: v})
}

func (e *Engine) SetCrossfadeMs(ctx context.Context, ms int64) error {
	return e.send(ctx, cmdSetCrossfadeMs{ms: ms})
}

func (e *Engine) ClearCache(ctx context.Context) error { return e.send(ctx, cmdClearCache{}) }

func (e *Engine) SetCacheBr(ctx context.Context, bitrate int64) error {
	return e.send(ctx, cmdSetCacheBr{bitrate: bitrate})
}

func (e *Engine) PrefetchAudio(ctx context.Context, id, bitrate int64, url, title string) error {
	return e.send(ctx, cmdPrefetchAudio{id: id, bitrate: bitrate, url: url, title: title})
}

func (e *Engine) send(ctx context.Context, cmd command) error {
	select {
	case e.cmdCh <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives the engine loop, and the transfer actor it owns, until ctx is
// cancelled. It is meant to run on its own goroutine for the process
// lifetime.
func (e *Engine) Run(ctx context.Context) {
	go e.transfer.Run(ctx)

	ticker := time.NewTicker(fadeTickInterval)
	defer ticker.Stop()

	slog.Info("audio engine started")
	for {
		var tick <-chan time.Time
		if e.fade != nil {
			tick = ticker.C
		}

		select {
		case <-ctx.Done():
			return
		case cmd := <-e.cmdCh:
			e.handleCommand(ctx, cmd)
		case evt := <-e.transfer.Events():
			e.handleTransferEvent(ctx, evt)
		case playID := <-e.sinkDoneCh:
			e.handleSinkDone(playID)
		case <-tick:
			e.tickFade()
		}
	}
}

func (e *Engine) handleCommand(ctx context.Context, cmd command) {
	switch c := cmd.(type) {
	case cmdPlayTrack:
		e.handlePlayTrack(ctx, c)
	case cmdTogglePause:
		e.handleTogglePause()
	case cmdStop:
		e.handleStop()
	case cmdSeekToMs:
		e.handleSeek(ctx, c.ms)
	case cmdSetVolume:
		e.handleSetVolume(c.v)
	case cmdSetCrossfadeMs:
		e.handleSetCrossfadeMs(c.ms)
	case cmdClearCache:
		if err := e.transfer.ClearAll(ctx, e.state.Path()); err != nil {
			slog.Warn("forward ClearCache", "error", err)
		}
	case cmdSetCacheBr:
		if err := e.transfer.PurgeNotBr(ctx, c.bitrate, e.state.Path()); err != nil {
			slog.Warn("forward SetCacheBr", "error", err)
		}
	case cmdPrefetchAudio:
		key := domain.CacheKey{TrackID: c.id, Bitrate: c.bitrate}
		if err := e.transfer.EnsureCached(ctx, 0, key, c.url, c.title, domain.PriorityLow); err != nil {
			slog.Warn("forward PrefetchAudio", "error", err)
		}
	}
}

func (e *Engine) handlePlayTrack(ctx context.Context, c cmdPlayTrack) {
	// Cut short any fade left over from the previous transition; the sink
	// it was fading into keeps playing as today's "current" sink.
	e.clearFade()

	token := transfer.Token(e.nextToken)
	e.nextToken++
	if e.nextToken == 0 {
		e.nextToken = 1
	}

	key := domain.CacheKey{TrackID: c.id, Bitrate: c.bitrate}
	e.pending = &pendingPlay{token: token, key: key, title: c.title, url: c.url}

	if err := e.transfer.EnsureCached(ctx, token, key, c.url, c.title, domain.PriorityHigh); err != nil {
		slog.Warn("request EnsureCached for PlayTrack", "error", err)
	}
}

func (e *Engine) handleTransferEvent(ctx context.Context, evt transfer.Event) {
	switch evt.Kind {
	case transfer.EventReady:
		e.handleReady(ctx, evt)
	case transfer.EventError:
		e.handleTransferError(evt)
	case transfer.EventCacheCleared:
		e.publish(Event{Kind: EventCacheCleared, Files: evt.Files, Bytes: evt.Bytes})
	}
}

func (e *Engine) handleReady(ctx context.Context, evt transfer.Event) {
	if e.pending == nil || e.pending.token != evt.Token {
		return
	}
	p := e.pending
	e.pending = nil

	durationMs, hasDuration, err := e.startPlayback(ctx, evt.Key, evt.Path, p.title)
	if err != nil {
		if p.retries < 1 {
			p.retries++
			e.state.Stop()
			if ierr := e.transfer.Invalidate(ctx, evt.Key); ierr != nil {
				slog.Warn("invalidate cache entry after decode failure", "error", ierr)
			}
			if rerr := e.transfer.EnsureCached(ctx, p.token, evt.Key, p.url, p.title, domain.PriorityHigh); rerr != nil {
				slog.Warn("retry EnsureCached after decode failure", "error", rerr)
			}
			e.pending = p
			return
		}
		e.publish(Event{Kind: EventError, Message: err.Error()})
		return
	}

	e.publish(Event{
		Kind:        EventNowPlaying,
		TrackID:     evt.Key.TrackID,
		PlayID:      e.state.PlayID(),
		Title:       p.title,
		DurationMs:  durationMs,
		HasDuration: hasDuration,
	})
}

func (e *Engine) handleTransferError(evt transfer.Event) {
	if e.pending != nil && e.pending.token == evt.Token {
		e.pending = nil
		e.publish(Event{Kind: EventError, Message: evt.Message})
	}
}

func (e *Engine) handleSinkDone(playID uint64) {
	if playID != e.state.PlayID() {
		return // superseded by a later play/stop/seek; ignore
	}
	e.publish(Event{Kind: EventEnded, PlayID: playID})
}

func (e *Engine) handleTogglePause() {
	if e.state.CurrentSink() == nil {
		e.publish(Event{Kind: EventNeedsReload})
		return
	}

	next := !e.state.Paused()
	e.state.SetPaused(next)

	if e.fade != nil {
		if next {
			e.fade.Pause()
			e.fade.PauseSinks()
		} else {
			e.fade.Resume()
			e.fade.ResumeSinks()
		}
	}
	if sink := e.state.CurrentSink(); sink != nil {
		if next {
			sink.Pause()
		} else {
			sink.Play()
		}
	}
	e.publish(Event{Kind: EventPaused, Paused: next})
}

func (e *Engine) handleStop() {
	e.pending = nil
	e.clearFade()
	e.state.Stop()
	e.publish(Event{Kind: EventStopped})
}

func (e *Engine) handleSeek(ctx context.Context, ms int64) {
	e.clearFade()
	path := e.state.Path()
	if path == "" {
		return
	}

	sink, _, err := e.state.BuildSink(path, ms)
	if err != nil {
		e.publish(Event{Kind: EventError, Message: err.Error()})
		return
	}

	if old := e.state.CurrentSink(); old != nil {
		old.Stop()
	}
	if e.state.Paused() {
		sink.Pause()
	} else {
		sink.Play()
	}
	// AttachSink does not bump the play id, so the rebuilt sink's
	// end-watcher still answers to the track's original play id.
	e.state.AttachSink(ctx, sink, e.sinkDoneCh)
}

func (e *Engine) handleSetVolume(v float64) {
	switch {
	case v < 0:
		v = 0
	case v > 2:
		v = 2
	}
	e.state.SetVolume(v)

	if e.fade != nil {
		e.fade.Apply(e.state.Volume())
	} else if sink := e.state.CurrentSink(); sink != nil {
		sink.SetVolume(v)
	}
}

func (e *Engine) handleSetCrossfadeMs(ms int64) {
	e.crossfadeMs = ms
	if ms == 0 {
		e.clearFade()
		if sink := e.state.CurrentSink(); sink != nil {
			sink.SetVolume(e.state.Volume())
		}
	}
}

// startPlayback builds a sink for path and either crossfades it in against
// the current sink or replaces it outright, per spec §4.3's algorithm.
func (e *Engine) startPlayback(ctx context.Context, key domain.CacheKey, path, title string) (int64, bool, error) {
	sink, duration, err := e.state.BuildSink(path, 0)
	if err != nil {
		return 0, false, err
	}

	hasCurrent := e.state.CurrentSink() != nil
	canFade := e.crossfadeMs > 0 && hasCurrent && !e.state.Paused()

	if canFade {
		old := e.state.TakeCurrentForFade()
		e.state.NextPlayID()
		e.state.SetPath(path)
		sink.SetVolume(0)
		sink.Play()
		e.state.AttachSink(ctx, sink, e.sinkDoneCh)

		old.SetVolume(e.state.Volume())
		e.fade = NewCrossfade(old, sink, e.crossfadeMs)
		e.fade.Apply(e.state.Volume())
	} else {
		e.clearFade()
		e.state.Stop()
		e.state.SetPath(path)
		if e.state.Paused() {
			sink.Pause()
		} else {
			sink.Play()
		}
		sink.SetVolume(e.state.Volume())
		e.state.AttachSink(ctx, sink, e.sinkDoneCh)
	}

	slog.Debug("start playback", "track_id", key.TrackID, "bitrate", key.Bitrate, "path", path)

	if duration == nil {
		return 0, false, nil
	}
	return *duration, true, nil
}

func (e *Engine) clearFade() {
	if e.fade != nil {
		e.fade.Stop()
		e.fade = nil
	}
}

func (e *Engine) tickFade() {
	if e.fade == nil {
		return
	}
	if e.fade.Apply(e.state.Volume()) {
		e.fade = nil
		if sink := e.state.CurrentSink(); sink != nil {
			sink.SetVolume(e.state.Volume())
		}
	}
}

func (e *Engine) publish(evt Event) {
	select {
	case e.evtCh <- evt:
	default:
		slog.Warn("audio event channel full, dropping event", "kind", evt.Kind)
	}
}
