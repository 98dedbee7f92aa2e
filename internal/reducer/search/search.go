// Package search owns the search view's state: the in-progress query
// text, the last submitted query's results, and request staleness via
// reqtracker (spec §4.5 Scenario E: a stale reply never clobbers a
// newer query's results).
package search

import (
	"github.com/sorairo/resonance/internal/domain"
	"github.com/sorairo/resonance/internal/reqtracker"
)

type State struct {
	Query   string
	Loading bool
	Results []domain.Track
	Error   string
}

func Handle(s State, tr *reqtracker.Tracker, msg domain.Message) (State, []domain.Effect) {
	switch m := msg.(type) {
	case domain.MsgSearchQueryChanged:
		s.Query = m.Query
		return s, []domain.Effect{domain.EffectEmitSnapshot{}}

	case domain.MsgSearchSubmitted:
		if s.Query == "" {
			return s, nil
		}
		tok := tr.Issue(domain.KindSearch)
		s.Loading = true
		s.Error = ""
		return s, []domain.Effect{
			domain.EffectSendAPIHigh{Cmd: domain.APICmdSearch{Token: domain.RequestToken(tok), Query: s.Query}},
			domain.EffectEmitSnapshot{},
		}

	case domain.MsgSearchResultsReceived:
		if !tr.Accept(domain.KindSearch, reqtracker.Token(m.ReqToken)) {
			return s, nil
		}
		s.Loading = false
		s.Results = m.Tracks
		return s, []domain.Effect{domain.EffectEmitSnapshot{}}

	case domain.MsgSearchFailed:
		if !tr.Accept(domain.KindSearch, reqtracker.Token(m.ReqToken)) {
			return s, nil
		}
		s.Loading = false
		s.Error = m.Message
		return s, []domain.Effect{domain.EffectEmitToast{Text: m.Message}, domain.EffectEmitSnapshot{}}
	}
	return s, nil
}
