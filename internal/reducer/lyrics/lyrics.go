// Package lyrics owns the synced-lyrics view's state (spec §4.5, lyrics
// slice): the lines for the currently displayed track and a
// user-adjustable millisecond offset against playback position.
package lyrics

import (
	"github.com/sorairo/resonance/internal/domain"
	"github.com/sorairo/resonance/internal/reqtracker"
)

type State struct {
	TrackID int64
	Lines   []domain.LyricLine
	Offset  int64
	Loading bool
	Error   string
}

func Handle(s State, tr *reqtracker.Tracker, msg domain.Message) (State, []domain.Effect) {
	switch m := msg.(type) {
	case domain.MsgLyricRequested:
		tok := tr.Issue(domain.KindLyric)
		s.TrackID = m.TrackID
		s.Lines = nil
		s.Loading = true
		s.Error = ""
		return s, []domain.Effect{
			domain.EffectSendAPILow{Cmd: domain.APICmdLyric{Token: domain.RequestToken(tok), TrackID: m.TrackID}},
			domain.EffectEmitSnapshot{},
		}

	case domain.MsgLyricReceived:
		if !tr.Accept(domain.KindLyric, reqtracker.Token(m.ReqToken)) {
			return s, nil
		}
		if m.TrackID != s.TrackID {
			return s, nil
		}
		s.Loading = false
		s.Lines = m.Lines
		return s, []domain.Effect{domain.EffectEmitSnapshot{}}

	case domain.MsgLyricFailed:
		if !tr.Accept(domain.KindLyric, reqtracker.Token(m.ReqToken)) {
			return s, nil
		}
		s.Loading = false
		s.Error = m.Message
		return s, []domain.Effect{domain.EffectEmitSnapshot{}}
	}
	return s, nil
}

// SetOffset adjusts the lyric-sync offset (spec: user-tunable, not tied to
// a request), applied directly by the top-level reducer on its own
// offset-change message rather than through Handle since it never touches
// the request tracker.
func SetOffset(s State, deltaMs int64) State {
	s.Offset += deltaMs
	return s
}
