package audio

import "context"

// PlayerState holds everything about the currently (or most recently)
// playing track. It is owned exclusively by Engine's run loop and is not
// safe for concurrent use.
type PlayerState struct {
	backend Backend

	sink   Sink
	path   string
	playID uint64
	paused bool
	volume float64
}

// NewPlayerState constructs player state at unit volume with nothing
// loaded.
func NewPlayerState(backend Backend) *PlayerState {
	return &PlayerState{backend: backend, volume: 1}
}

func (s *PlayerState) CurrentSink() Sink   { return s.sink }
func (s *PlayerState) Paused() bool        { return s.paused }
func (s *PlayerState) SetPaused(p bool)    { s.paused = p }
func (s *PlayerState) Volume() float64     { return s.volume }
func (s *PlayerState) SetVolume(v float64) { s.volume = v }
func (s *PlayerState) Path() string        { return s.path }
func (s *PlayerState) SetPath(p string)    { s.path = p }
func (s *PlayerState) PlayID() uint64      { return s.playID }

// NextPlayID advances to a new play generation and returns it.
func (s *PlayerState) NextPlayID() uint64 {
	s.playID++
	return s.playID
}

// BuildSink opens path through the backend at the current volume/pause
// state.
func (s *PlayerState) BuildSink(path string, seekMs int64) (Sink, *int64, error) {
	return s.backend.BuildSink(path, seekMs, s.volume, s.paused)
}

// Stop halts and releases the current sink, advancing the play id so any
// outstanding end-watcher for it is recognized as stale when it fires.
func (s *PlayerState) Stop() {
	s.playID++
	if s.sink != nil {
		s.sink.Stop()
		s.sink = nil
	}
	s.path = ""
}

// TakeCurrentForFade detaches the current sink without stopping it, so it
// can keep playing as the outgoing half of a crossfade.
func (s *PlayerState) TakeCurrentForFade() Sink {
	sink := s.sink
	s.sink = nil
	return sink
}

// AttachSink installs sink as current and spawns its end-of-track watcher,
// pinned to whatever play id is current right now. Seeks call this without
// bumping the play id first, so the watcher for the rebuilt sink still
// answers to the same id the track started with. The watcher exits without
// sending once ctx is cancelled, so it never leaks past engine shutdown.
func (s *PlayerState) AttachSink(ctx context.Context, sink Sink, endedCh chan<- uint64) {
	s.sink = sink
	playID := s.playID
	go func() {
		select {
		case <-sink.Done():
		case <-ctx.Done():
			return
		}
		select {
		case endedCh <- playID:
		case <-ctx.Done():
		}
	}()
}
