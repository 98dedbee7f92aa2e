// Package player owns playback/transport state: the current track, its
// play_id, pause/position, volume/bitrate/crossfade/mode settings, and the
// URL-resolution step that sits between "play this track" and the audio
// engine actually receiving a PlayTrack command (spec §4.5, player slice;
// §4.3/§4.4 for the audio/prefetch boundary this slice drives).
package player

import (
	"github.com/sorairo/resonance/internal/domain"
	"github.com/sorairo/resonance/internal/queue"
	"github.com/sorairo/resonance/internal/reqtracker"
)

type State struct {
	Volume      float64
	Bitrate     int64
	Mode        domain.PlayMode
	CrossfadeMs int64

	Current     domain.Track
	PlayID      uint64
	Playing     bool
	Paused      bool
	PositionMs  int64
	DurationMs  int64
	HasDuration bool

	pendingTrack domain.Track
	pendingOK    bool

	Error string
}

// Handle advances State for msg. q is the shared play queue (owned by the
// top-level reducer, not this slice) and tr issues/accepts the song-url
// resolution token this slice owns.
func Handle(s State, q *queue.Queue, tr *reqtracker.Tracker, msg domain.Message) (State, []domain.Effect) {
	switch m := msg.(type) {
	case domain.MsgPlayRequested:
		if songs := q.Songs(); songs != nil {
			for i, t := range songs {
				if t.ID == m.Track.ID {
					q.SetCurrentIndex(i)
					break
				}
			}
		}
		return requestURL(s, tr, m.Track)

	case domain.MsgSongURLReceived:
		if !tr.Accept(domain.KindSongURL, reqtracker.Token(m.ReqToken)) {
			return s, nil
		}
		if !s.pendingOK || m.TrackID != s.pendingTrack.ID {
			return s, nil
		}
		track := s.pendingTrack
		s.pendingOK = false
		return s, []domain.Effect{
			domain.EffectSendAudio{Cmd: domain.AudioCmdPlayTrack{
				TrackID: track.ID,
				Bitrate: m.Bitrate,
				URL:     m.URL,
				Title:   track.Title,
			}},
		}

	case domain.MsgSongURLFailed:
		if !tr.Accept(domain.KindSongURL, reqtracker.Token(m.ReqToken)) {
			return s, nil
		}
		s.pendingOK = false
		s.Error = m.Message
		return s, []domain.Effect{domain.EffectEmitToast{Text: m.Message}, domain.EffectEmitSnapshot{}}

	case domain.MsgPauseToggled:
		if !s.Playing {
			return s, nil
		}
		return s, []domain.Effect{domain.EffectSendAudio{Cmd: domain.AudioCmdTogglePause{}}}

	case domain.MsgSeekRequested:
		return s, []domain.Effect{domain.EffectSendAudio{Cmd: domain.AudioCmdSeekToMs{Ms: m.Ms}}}

	case domain.MsgVolumeChanged:
		s.Volume = m.Volume
		return s, []domain.Effect{
			domain.EffectSendAudio{Cmd: domain.AudioCmdSetVolume{Volume: m.Volume}},
			domain.EffectEmitSnapshot{},
		}

	case domain.MsgModeChanged:
		s.Mode = m.Mode
		q.SetMode(m.Mode)
		return s, []domain.Effect{domain.EffectEmitSnapshot{}}

	case domain.MsgBitrateChanged:
		s.Bitrate = m.Bitrate
		return s, []domain.Effect{
			domain.EffectSendAudio{Cmd: domain.AudioCmdSetCacheBr{Bitrate: m.Bitrate}},
			domain.EffectEmitSnapshot{},
		}

	case domain.MsgNextRequested:
		track, ok := q.NextIndex()
		if !ok {
			return s, nil
		}
		return requestURL(s, tr, track)

	case domain.MsgPrevRequested:
		track, ok := q.PrevIndex()
		if !ok {
			return s, nil
		}
		return requestURL(s, tr, track)

	case domain.MsgAudioNowPlaying:
		if s.Current.ID == m.TrackID {
			s.Current.DurationMs = m.DurationMs
		} else {
			s.Current = domain.Track{ID: m.TrackID, Title: m.Title, DurationMs: m.DurationMs}
		}
		s.PlayID = m.PlayID
		s.Playing = true
		s.Paused = false
		s.PositionMs = 0
		s.DurationMs = m.DurationMs
		s.HasDuration = m.HasDuration
		return s, []domain.Effect{domain.EffectEmitSnapshot{}}

	case domain.MsgAudioPaused:
		s.Paused = m.Paused
		return s, []domain.Effect{domain.EffectEmitSnapshot{}}

	case domain.MsgAudioStopped:
		s.Playing = false
		s.Paused = false
		return s, []domain.Effect{domain.EffectEmitSnapshot{}}

	case domain.MsgAudioEnded:
		if m.PlayID != s.PlayID {
			return s, nil
		}
		s.Playing = false
		if s.Mode == domain.ModeSingleLoop {
			return requestURL(s, tr, s.Current)
		}
		track, ok := q.NextIndex()
		if !ok {
			return s, []domain.Effect{domain.EffectEmitSnapshot{}}
		}
		return requestURL(s, tr, track)

	case domain.MsgAudioError:
		s.Error = m.Message
		s.Playing = false
		return s, []domain.Effect{domain.EffectEmitToast{Text: m.Message}, domain.EffectEmitSnapshot{}}

	case domain.MsgAudioNeedsReload:
		if s.Current.ID == 0 {
			return s, nil
		}
		return requestURL(s, tr, s.Current)
	}
	return s, nil
}

func requestURL(s State, tr *reqtracker.Tracker, track domain.Track) (State, []domain.Effect) {
	tok := tr.Issue(domain.KindSongURL)
	s.pendingTrack = track
	s.pendingOK = true
	return s, []domain.Effect{
		domain.EffectSendAPIHigh{Cmd: domain.APICmdSongURL{
			Token:   domain.RequestToken(tok),
			TrackID: track.ID,
			Bitrate: s.Bitrate,
		}},
	}
}
