// Package snapshot builds the immutable, view-tailored copy of state the
// TUI renders from (spec §4.9). Build copies only the fields the active
// view needs, so the renderer never holds a pointer back into anything
// the reducer might still mutate.
package snapshot

import (
	"github.com/sorairo/resonance/internal/domain"
	"github.com/sorairo/resonance/internal/reducer"
)

// PlayerStatus is the always-present player status line, since the
// transport controls are visible from every view.
type PlayerStatus struct {
	Track       domain.Track
	Playing     bool
	Paused      bool
	PositionMs  int64
	DurationMs  int64
	HasDuration bool
	Volume      float64
	Bitrate     int64
	Mode        domain.PlayMode
	CrossfadeMs int64
	Error       string
}

// Snapshot is a plain, render-ready copy of whatever the active View
// needs. Slices are fresh copies; nothing aliases reducer-owned memory.
type Snapshot struct {
	View   domain.View
	Player PlayerStatus

	// Login is only populated when View == ViewLogin.
	Login struct {
		ImgURL string
		Status domain.LoginQrStatus
		Error  string
	}

	// Search is only populated when View == ViewSearch.
	Search struct {
		Query   string
		Loading bool
		Results []domain.Track
		Error   string
	}

	// Playlists is only populated when View == ViewPlaylists.
	Playlists struct {
		Loading     bool
		All         []domain.Playlist
		OpenID      int64
		OpenTracks  []domain.Track
		TrackLoaded bool
		Error       string
	}

	// Lyrics is only populated when View == ViewLyrics.
	Lyrics struct {
		TrackID int64
		Lines   []domain.LyricLine
		Offset  int64
		Loading bool
	}
}

// Build projects s into the Snapshot the TUI needs to render view.
func Build(s reducer.State, view domain.View) Snapshot {
	snap := Snapshot{
		View: view,
		Player: PlayerStatus{
			Track:       s.Player.Current,
			Playing:     s.Player.Playing,
			Paused:      s.Player.Paused,
			PositionMs:  s.Player.PositionMs,
			DurationMs:  s.Player.DurationMs,
			HasDuration: s.Player.HasDuration,
			Volume:      s.Player.Volume,
			Bitrate:     s.Player.Bitrate,
			Mode:        s.Player.Mode,
			CrossfadeMs: s.Player.CrossfadeMs,
			Error:       s.Player.Error,
		},
	}

	switch view {
	case domain.ViewLogin:
		snap.Login.ImgURL = s.Login.ImgURL
		snap.Login.Status = s.Login.Status
		snap.Login.Error = s.Login.Error

	case domain.ViewSearch:
		snap.Search.Query = s.Search.Query
		snap.Search.Loading = s.Search.Loading
		snap.Search.Results = append([]domain.Track(nil), s.Search.Results...)
		snap.Search.Error = s.Search.Error

	case domain.ViewPlaylists:
		snap.Playlists.Loading = s.Playlists.Loading
		snap.Playlists.All = append([]domain.Playlist(nil), s.Playlists.All...)
		snap.Playlists.OpenID = s.Playlists.OpenID
		snap.Playlists.OpenTracks = append([]domain.Track(nil), s.Playlists.OpenTracks...)
		snap.Playlists.TrackLoaded = s.Playlists.TrackLoaded
		snap.Playlists.Error = s.Playlists.Error

	case domain.ViewLyrics:
		snap.Lyrics.TrackID = s.Lyrics.TrackID
		snap.Lyrics.Lines = append([]domain.LyricLine(nil), s.Lyrics.Lines...)
		snap.Lyrics.Offset = s.Lyrics.Offset
		snap.Lyrics.Loading = s.Lyrics.Loading
	}

	return snap
}
