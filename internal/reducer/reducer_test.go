package reducer_test

import (
	"testing"

	"github.com/sorairo/resonance/internal/domain"
	"github.com/sorairo/resonance/internal/queue"
	"github.com/sorairo/resonance/internal/reducer"
	"github.com/sorairo/resonance/internal/reqtracker"
)

func TestNewDefaultsViewToLogin(t *testing.T) {
	s := reducer.New()
	if s.View != domain.ViewLogin {
		t.Fatalf("expected initial view Login, got %v", s.View)
	}
}

func TestViewChangedSwitchesView(t *testing.T) {
	s := reducer.New()
	q := queue.New()
	tr := reqtracker.New()

	s, effects := reducer.Reduce(s, q, tr, domain.MsgViewChanged{View: domain.ViewSearch})
	if s.View != domain.ViewSearch {
		t.Fatalf("expected view Search, got %v", s.View)
	}
	if len(effects) != 1 {
		t.Fatalf("expected a single snapshot effect, got %d", len(effects))
	}
}

func TestSearchMessageOnlyTouchesSearchSlice(t *testing.T) {
	s := reducer.New()
	q := queue.New()
	tr := reqtracker.New()

	s, _ = reducer.Reduce(s, q, tr, domain.MsgSearchQueryChanged{Query: "abc"})
	if s.Search.Query != "abc" {
		t.Fatalf("expected search query set, got %q", s.Search.Query)
	}
	if s.Login.Status != 0 || s.Playlists.Loading || s.Lyrics.Loading {
		t.Fatalf("expected other slices untouched, got %+v / %+v / %+v", s.Login, s.Playlists, s.Lyrics)
	}
}

func TestLoginConfirmedSwitchesViewToPlaylists(t *testing.T) {
	s := reducer.New()
	q := queue.New()
	tr := reqtracker.New()

	s, _ = reducer.Reduce(s, q, tr, domain.MsgLoginRequestQrKey{}) // issues qr-key token 1
	s, _ = reducer.Reduce(s, q, tr, domain.MsgLoginQrKeyReceived{ReqToken: domain.RequestToken(1), QrToken: "qr", ImgURL: "u"}) // issues poll token 2
	s, _ = reducer.Reduce(s, q, tr, domain.MsgLoginPollResult{ReqToken: domain.RequestToken(2), Status: domain.LoginQrConfirmed})

	if s.View != domain.ViewPlaylists {
		t.Fatalf("expected view switched to Playlists after confirmed login, got %v", s.View)
	}
}

func TestLyricOffsetAdjustedBypassesFeatureHandlers(t *testing.T) {
	s := reducer.New()
	q := queue.New()
	tr := reqtracker.New()

	s, effects := reducer.Reduce(s, q, tr, domain.MsgLyricOffsetAdjusted{DeltaMs: 100})
	if s.Lyrics.Offset != 100 {
		t.Fatalf("expected lyric offset 100, got %d", s.Lyrics.Offset)
	}
	if len(effects) != 1 {
		t.Fatalf("expected a single snapshot effect, got %d", len(effects))
	}

	s, _ = reducer.Reduce(s, q, tr, domain.MsgLyricOffsetAdjusted{DeltaMs: -30})
	if s.Lyrics.Offset != 70 {
		t.Fatalf("expected lyric offset accumulated to 70, got %d", s.Lyrics.Offset)
	}
}

func TestModeChangedUpdatesQueueAndPlayerSlice(t *testing.T) {
	s := reducer.New()
	q := queue.New()
	q.SetSongs([]domain.Track{{ID: 1}, {ID: 2}, {ID: 3}}, 0)
	tr := reqtracker.New()

	s, _ = reducer.Reduce(s, q, tr, domain.MsgModeChanged{Mode: domain.ModeShuffle})
	if s.Player.Mode != domain.ModeShuffle {
		t.Fatalf("expected player mode Shuffle, got %v", s.Player.Mode)
	}
	if q.Mode() != domain.ModeShuffle {
		t.Fatalf("expected queue mode Shuffle, got %v", q.Mode())
	}
}
