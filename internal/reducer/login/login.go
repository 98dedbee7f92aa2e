// Package login owns the QR login flow's state and transitions (spec
// §4.5, login slice): requesting a QR key, polling its status, and
// reacting to confirmation or expiry. It never talks to the network
// itself — it only emits the Effects that ask the host to.
package login

import (
	"github.com/sorairo/resonance/internal/domain"
	"github.com/sorairo/resonance/internal/reqtracker"
)

// State is the QR login view's slice of the reducer's composed state.
type State struct {
	QrToken string
	ImgURL  string
	Status  domain.LoginQrStatus
	Polling bool
	Error   string
}

// Handle advances State for msg, issuing/accepting reqtracker tokens for
// the two request kinds this slice owns. Messages outside this slice
// pass through unchanged with no effects.
func Handle(s State, tr *reqtracker.Tracker, msg domain.Message) (State, []domain.Effect) {
	switch m := msg.(type) {
	case domain.MsgLoginRequestQrKey:
		tok := tr.Issue(domain.KindLoginQrKey)
		s.QrToken = ""
		s.ImgURL = ""
		s.Status = domain.LoginQrPending
		s.Error = ""
		return s, []domain.Effect{
			domain.EffectSendAPIHigh{Cmd: domain.APICmdQRKey{Token: domain.RequestToken(tok)}},
			domain.EffectEmitSnapshot{},
		}

	case domain.MsgLoginQrKeyReceived:
		if !tr.Accept(domain.KindLoginQrKey, reqtracker.Token(m.ReqToken)) {
			return s, nil
		}
		s.QrToken = m.QrToken
		s.ImgURL = m.ImgURL
		s.Polling = true
		return startPoll(s, tr)

	case domain.MsgLoginPollTick:
		if !s.Polling || s.QrToken == "" {
			return s, nil
		}
		return startPoll(s, tr)

	case domain.MsgLoginPollResult:
		if !tr.Accept(domain.KindLoginQrPoll, reqtracker.Token(m.ReqToken)) {
			return s, nil
		}
		s.Status = m.Status
		if m.Status == domain.LoginQrConfirmed || m.Status == domain.LoginQrExpired {
			s.Polling = false
		}
		return s, []domain.Effect{domain.EffectEmitSnapshot{}}

	case domain.MsgLoginFailed:
		if !tr.Accept(domain.KindLoginQrPoll, reqtracker.Token(m.ReqToken)) &&
			!tr.Accept(domain.KindLoginQrKey, reqtracker.Token(m.ReqToken)) {
			return s, nil
		}
		s.Polling = false
		s.Error = m.Message
		return s, []domain.Effect{domain.EffectEmitToast{Text: m.Message}, domain.EffectEmitSnapshot{}}
	}
	return s, nil
}

func startPoll(s State, tr *reqtracker.Tracker) (State, []domain.Effect) {
	tok := tr.Issue(domain.KindLoginQrPoll)
	return s, []domain.Effect{
		domain.EffectSendAPIHigh{Cmd: domain.APICmdQRPoll{Token: domain.RequestToken(tok), QRToken: s.QrToken}},
	}
}
