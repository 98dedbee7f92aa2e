package domain

import "github.com/sorairo/resonance/internal/apperr"

// RequestToken is a reqtracker.Token carried across the domain boundary
// as a plain value (domain cannot import internal/reqtracker: reqtracker
// already imports domain for RequestKind). The reducer casts between the
// two at the edge.
type RequestToken uint64

// Effect is the closed set of outbound actions the reducer can request
// after a pure state transition (spec §4.5). Effects never execute
// during the transition itself; the host dispatches them afterward.
type Effect interface{ isEffect() }

// EffectEmitSnapshot asks the host to rebuild and publish a UI snapshot
// from the reducer's new state. It carries no payload: the snapshot
// builder (internal/snapshot) reads the state itself.
type EffectEmitSnapshot struct{}

func (EffectEmitSnapshot) isEffect() {}

// EffectEmitToast asks the host to show a transient acknowledgement.
type EffectEmitToast struct{ Text string }

func (EffectEmitToast) isEffect() {}

// EffectEmitError asks the host to surface a structured error on the
// current view's status line.
type EffectEmitError struct{ Err *apperr.Error }

func (EffectEmitError) isEffect() {}

// EffectSendAPIHigh and EffectSendAPILow mark a catalog API command as
// high or low priority. The host dispatches both the same way, each
// command on its own goroutine; high-priority commands are not run ahead
// of low-priority ones.
type EffectSendAPIHigh struct{ Cmd APICmd }

func (EffectSendAPIHigh) isEffect() {}

type EffectSendAPILow struct{ Cmd APICmd }

func (EffectSendAPILow) isEffect() {}

// EffectSendAudio dispatches a command to the audio engine.
type EffectSendAudio struct{ Cmd AudioCmd }

func (EffectSendAudio) isEffect() {}

// APICmd is the closed set of commands the reducer can send to the
// external HTTP API worker, each carrying the token its reply must
// present to reqtracker.Accept.
type APICmd interface{ isAPICmd() }

type APICmdAnonymousSession struct{ Token RequestToken }

func (APICmdAnonymousSession) isAPICmd() {}

type APICmdQRKey struct{ Token RequestToken }

func (APICmdQRKey) isAPICmd() {}

type APICmdQRPoll struct {
	Token   RequestToken
	QRToken string
}

func (APICmdQRPoll) isAPICmd() {}

type APICmdSearch struct {
	Token RequestToken
	Query string
}

func (APICmdSearch) isAPICmd() {}

type APICmdPlaylists struct{ Token RequestToken }

func (APICmdPlaylists) isAPICmd() {}

type APICmdPlaylistTracks struct {
	Token      RequestToken
	PlaylistID int64
}

func (APICmdPlaylistTracks) isAPICmd() {}

type APICmdSongURL struct {
	Token   RequestToken
	TrackID int64
	Bitrate int64
}

func (APICmdSongURL) isAPICmd() {}

type APICmdLyric struct {
	Token   RequestToken
	TrackID int64
}

func (APICmdLyric) isAPICmd() {}

// AudioCmd is the closed set of commands the reducer can send to the
// audio engine (spec §4.3's inbound command set).
type AudioCmd interface{ isAudioCmd() }

type AudioCmdPlayTrack struct {
	TrackID int64
	Bitrate int64
	URL     string
	Title   string
}

func (AudioCmdPlayTrack) isAudioCmd() {}

type AudioCmdTogglePause struct{}

func (AudioCmdTogglePause) isAudioCmd() {}

type AudioCmdStop struct{}

func (AudioCmdStop) isAudioCmd() {}

type AudioCmdSeekToMs struct{ Ms int64 }

func (AudioCmdSeekToMs) isAudioCmd() {}

type AudioCmdSetVolume struct{ Volume float64 }

func (AudioCmdSetVolume) isAudioCmd() {}

type AudioCmdSetCrossfadeMs struct{ Ms int64 }

func (AudioCmdSetCrossfadeMs) isAudioCmd() {}

type AudioCmdClearCache struct{}

func (AudioCmdClearCache) isAudioCmd() {}

type AudioCmdSetCacheBr struct{ Bitrate int64 }

func (AudioCmdSetCacheBr) isAudioCmd() {}

type AudioCmdPrefetchAudio struct {
	TrackID int64
	Bitrate int64
	URL     string
	Title   string
}

func (AudioCmdPrefetchAudio) isAudioCmd() {}
