// Package playlists owns the playlist list and the currently opened
// playlist's track listing (spec §4.5, playlists slice).
package playlists

import (
	"github.com/sorairo/resonance/internal/domain"
	"github.com/sorairo/resonance/internal/reqtracker"
)

type State struct {
	Loading     bool
	All         []domain.Playlist
	OpenID      int64
	OpenTracks  []domain.Track
	TrackLoaded bool
	Error       string
}

func Handle(s State, tr *reqtracker.Tracker, msg domain.Message) (State, []domain.Effect) {
	switch m := msg.(type) {
	case domain.MsgPlaylistsRequested:
		tok := tr.Issue(domain.KindPlaylists)
		s.Loading = true
		s.Error = ""
		return s, []domain.Effect{
			domain.EffectSendAPILow{Cmd: domain.APICmdPlaylists{Token: domain.RequestToken(tok)}},
			domain.EffectEmitSnapshot{},
		}

	case domain.MsgPlaylistsReceived:
		if !tr.Accept(domain.KindPlaylists, reqtracker.Token(m.ReqToken)) {
			return s, nil
		}
		s.Loading = false
		s.All = m.Playlists
		return s, []domain.Effect{domain.EffectEmitSnapshot{}}

	case domain.MsgPlaylistsFailed:
		if !tr.Accept(domain.KindPlaylists, reqtracker.Token(m.ReqToken)) {
			return s, nil
		}
		s.Loading = false
		s.Error = m.Message
		return s, []domain.Effect{domain.EffectEmitToast{Text: m.Message}, domain.EffectEmitSnapshot{}}

	case domain.MsgPlaylistOpened:
		tok := tr.Issue(domain.KindPlaylistTracks)
		s.OpenID = m.PlaylistID
		s.OpenTracks = nil
		s.TrackLoaded = false
		return s, []domain.Effect{
			domain.EffectSendAPIHigh{Cmd: domain.APICmdPlaylistTracks{Token: domain.RequestToken(tok), PlaylistID: m.PlaylistID}},
			domain.EffectEmitSnapshot{},
		}

	case domain.MsgPlaylistTracksReceived:
		if !tr.Accept(domain.KindPlaylistTracks, reqtracker.Token(m.ReqToken)) {
			return s, nil
		}
		if m.PlaylistID != s.OpenID {
			// A late reply for a playlist the user already navigated away
			// from; drop it even though the token matched.
			return s, nil
		}
		s.OpenTracks = m.Tracks
		s.TrackLoaded = true
		return s, []domain.Effect{domain.EffectEmitSnapshot{}}
	}
	return s, nil
}
