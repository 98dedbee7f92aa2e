// Package nullbackend implements audio.Backend with no I/O: it tracks
// volume and pause state and lets a test decide when a sink "finishes",
// for headless exercising of the engine's state machine (spec §4.3's null
// backend).
package nullbackend

import (
	"fmt"
	"sync"

	"github.com/sorairo/resonance/internal/audio"
)

// Sink is a no-op playback handle whose lifecycle a test drives directly.
type Sink struct {
	mu       sync.Mutex
	volume   float64
	paused   bool
	done     chan struct{}
	finished bool
}

func newSink(volume float64, paused bool) *Sink {
	return &Sink{volume: volume, paused: paused, done: make(chan struct{})}
}

func (s *Sink) Play()  { s.mu.Lock(); s.paused = false; s.mu.Unlock() }
func (s *Sink) Pause() { s.mu.Lock(); s.paused = true; s.mu.Unlock() }

func (s *Sink) SetVolume(v float64) {
	s.mu.Lock()
	s.volume = v
	s.mu.Unlock()
}

func (s *Sink) Done() <-chan struct{} { return s.done }

// Stop ends the sink immediately, same as Finish. Distinguished only for
// reading call sites: engine code calls Stop, tests call Finish.
func (s *Sink) Stop() { s.finish() }

// Finish simulates the track draining naturally, as if decoding reached
// end of stream.
func (s *Sink) Finish() { s.finish() }

func (s *Sink) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finished {
		s.finished = true
		close(s.done)
	}
}

func (s *Sink) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

func (s *Sink) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Backend is a test double for audio.Backend.
type Backend struct {
	mu sync.Mutex

	// DurationMs is reported as every built sink's duration; nil means
	// unknown.
	DurationMs *int64
	// FailBuild, when true, makes BuildSink return an error instead of a
	// sink — used to exercise the engine's decode-failure retry path.
	FailBuild bool

	sinks []*Sink
}

func New() *Backend { return &Backend{} }

func (b *Backend) BuildSink(path string, seekMs int64, volume float64, paused bool) (audio.Sink, *int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.FailBuild {
		return nil, nil, fmt.Errorf("nullbackend: forced build failure for %q", path)
	}

	s := newSink(volume, paused)
	b.sinks = append(b.sinks, s)
	return s, b.DurationMs, nil
}

// Sinks returns every sink built so far, oldest first, so tests can inspect
// volumes during a crossfade without a real audio device.
func (b *Backend) Sinks() []*Sink {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Sink(nil), b.sinks...)
}
