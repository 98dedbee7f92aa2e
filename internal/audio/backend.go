package audio

// Sink is one active playback handle: a decoded stream attached to the
// output device, with volume and pause control and a completion signal.
type Sink interface {
	Play()
	Pause()
	SetVolume(v float64)
	// Stop halts playback immediately and releases the sink. It is safe to
	// call more than once.
	Stop()
	// Done is closed once playback drains naturally or Stop is called,
	// whichever happens first.
	Done() <-chan struct{}
}

// Backend builds sinks from local files. internal/audio/device implements
// it against a real output device via gopxl/beep; internal/audio/nullbackend
// implements it with no I/O for tests and headless smoke runs.
type Backend interface {
	// BuildSink opens path, optionally skipping to seekMs, and returns a
	// sink at the given volume/pause state plus the track's duration in
	// milliseconds if known.
	BuildSink(path string, seekMs int64, volume float64, paused bool) (Sink, *int64, error)
}
