package device

import (
	"math"
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"
)

// sink wraps one beep streamer with pause and volume control, plus a
// completion signal for the engine's end-of-track watcher.
type sink struct {
	mu sync.Mutex

	streamer   beep.StreamSeekCloser
	ctrl       *beep.Ctrl
	volumeCtrl *effects.Volume

	done     chan struct{}
	finished bool
}

func newSink(streamer beep.StreamSeekCloser, paused bool, volume float64) *sink {
	ctrl := &beep.Ctrl{Streamer: streamer, Paused: paused}
	vol := &effects.Volume{Streamer: ctrl, Base: volumeBase}

	s := &sink{
		streamer:   streamer,
		ctrl:       ctrl,
		volumeCtrl: vol,
		done:       make(chan struct{}),
	}
	s.applyVolume(volume)
	return s
}

// applyVolume maps the engine's linear [0, 2] volume (1 = unity) onto
// effects.Volume's logarithmic Base^Volume scale.
func (s *sink) applyVolume(v float64) {
	if v <= 0 {
		s.volumeCtrl.Silent = true
		return
	}
	s.volumeCtrl.Silent = false
	s.volumeCtrl.Volume = math.Log2(v) / math.Log2(volumeBase)
}

func (s *sink) Play() {
	speaker.Lock()
	defer speaker.Unlock()
	s.ctrl.Paused = false
}

func (s *sink) Pause() {
	speaker.Lock()
	defer speaker.Unlock()
	s.ctrl.Paused = true
}

func (s *sink) SetVolume(v float64) {
	speaker.Lock()
	defer speaker.Unlock()
	s.applyVolume(v)
}

func (s *sink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	s.finished = true
	speaker.Lock()
	s.ctrl.Paused = true
	speaker.Unlock()
	s.streamer.Close()
	close(s.done)
}

func (s *sink) Done() <-chan struct{} { return s.done }

// onDrain is invoked by beep's mixing goroutine once the streamer reaches
// end of stream.
func (s *sink) onDrain() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	s.finished = true
	close(s.done)
}
