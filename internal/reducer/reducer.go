// Package reducer composes the per-feature state slices into one
// application State and dispatches incoming Messages to whichever slice
// owns them (spec §4.5). Routing is grounded on the
// service/handler split the teacher uses for its radio station
// endpoints, translated from HTTP-handler dispatch into message
// dispatch: each feature still owns a narrow slice of state and a narrow
// set of commands, it just receives a Message instead of an
// *http.Request.
package reducer

import (
	"github.com/sorairo/resonance/internal/domain"
	"github.com/sorairo/resonance/internal/queue"
	"github.com/sorairo/resonance/internal/reducer/login"
	"github.com/sorairo/resonance/internal/reducer/lyrics"
	"github.com/sorairo/resonance/internal/reducer/player"
	"github.com/sorairo/resonance/internal/reducer/playlists"
	"github.com/sorairo/resonance/internal/reducer/search"
	"github.com/sorairo/resonance/internal/reducer/settings"
	"github.com/sorairo/resonance/internal/reqtracker"
)

// State is the whole application's reducer state: one slice per feature
// plus the shared play queue, request tracker, and current view.
type State struct {
	View      domain.View
	Login     login.State
	Search    search.State
	Playlists playlists.State
	Lyrics    lyrics.State
	Player    player.State
	Settings  settings.State
}

// New builds the initial State. Player volume/bitrate/mode default to
// settings' defaults so a fresh session behaves the same before any
// MsgSettingsChanged arrives.
func New() State {
	return State{
		View: domain.ViewLogin,
		Player: player.State{
			Volume:  1.0,
			Bitrate: 320000,
		},
		Settings: settings.State{
			Volume:       1.0,
			Bitrate:      320000,
			PreloadCount: 1,
		},
	}
}

// Reduce advances State for msg, against the shared queue and request
// tracker, and returns the new State plus any Effects to dispatch. Each
// feature's Handle is tried in turn; only the one owning msg's concrete
// type does anything (spec: "each feature module owns a narrow slice of
// state and a narrow set of commands").
func Reduce(s State, q *queue.Queue, tr *reqtracker.Tracker, msg domain.Message) (State, []domain.Effect) {
	if m, ok := msg.(domain.MsgViewChanged); ok {
		s.View = m.View
		return s, []domain.Effect{domain.EffectEmitSnapshot{}}
	}

	if m, ok := msg.(domain.MsgLyricOffsetAdjusted); ok {
		s.Lyrics = lyrics.SetOffset(s.Lyrics, m.DeltaMs)
		return s, []domain.Effect{domain.EffectEmitSnapshot{}}
	}

	var effects []domain.Effect

	newLogin, loginEffects := login.Handle(s.Login, tr, msg)
	s.Login = newLogin
	effects = append(effects, loginEffects...)

	newSearch, searchEffects := search.Handle(s.Search, tr, msg)
	s.Search = newSearch
	effects = append(effects, searchEffects...)

	newPlaylists, playlistsEffects := playlists.Handle(s.Playlists, tr, msg)
	s.Playlists = newPlaylists
	effects = append(effects, playlistsEffects...)

	newLyrics, lyricsEffects := lyrics.Handle(s.Lyrics, tr, msg)
	s.Lyrics = newLyrics
	effects = append(effects, lyricsEffects...)

	newPlayer, playerEffects := player.Handle(s.Player, q, tr, msg)
	s.Player = newPlayer
	effects = append(effects, playerEffects...)

	newSettings, settingsEffects := settings.Handle(s.Settings, msg)
	s.Settings = newSettings
	effects = append(effects, settingsEffects...)

	// A successful login clears the view back to the playlist list, per
	// the spec's login-to-browse transition.
	if m, ok := msg.(domain.MsgLoginPollResult); ok && m.Status == domain.LoginQrConfirmed {
		s.View = domain.ViewPlaylists
	}

	return s, effects
}
