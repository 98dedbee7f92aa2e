// Package device implements audio.Backend against a real output device
// using gopxl/beep: mp3 decode, a beep.Ctrl for pause, and effects.Volume
// for volume/crossfade control.
package device

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/speaker"

	"github.com/sorairo/resonance/internal/audio"
)

// volumeBase matches the Base used across the example corpus' beep
// integrations: effects.Volume scales loudness by Base^Volume, so mapping
// our linear [0, 2] range onto it needs a log transform (see sink.apply).
const volumeBase = 2.0

var (
	speakerOnce sync.Once
	speakerErr  error
)

// Backend opens audio files through beep/mp3 and plays them through the
// process-wide speaker.
type Backend struct {
	bufferSize time.Duration
}

// New constructs a device backend with a reasonably low-latency speaker
// buffer.
func New() *Backend {
	return &Backend{bufferSize: 50 * time.Millisecond}
}

func (b *Backend) BuildSink(path string, seekMs int64, volume float64, paused bool) (audio.Sink, *int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open audio file: %w", err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("decode audio file: %w", err)
	}

	speakerOnce.Do(func() {
		speakerErr = speaker.Init(format.SampleRate, format.SampleRate.N(b.bufferSize))
	})
	if speakerErr != nil {
		streamer.Close()
		return nil, nil, fmt.Errorf("init audio output: %w", speakerErr)
	}

	if seekMs > 0 {
		pos := format.SampleRate.N(time.Duration(seekMs) * time.Millisecond)
		if pos < streamer.Len() {
			_ = streamer.Seek(pos)
		}
	}

	var durationMs *int64
	if n := streamer.Len(); n > 0 {
		ms := int64(format.SampleRate.D(n) / time.Millisecond)
		durationMs = &ms
	}

	s := newSink(streamer, paused, volume)

	speaker.Lock()
	speaker.Play(beep.Seq(s.volumeCtrl, beep.Callback(s.onDrain)))
	speaker.Unlock()

	return s, durationMs, nil
}
