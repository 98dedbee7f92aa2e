package player_test

import (
	"testing"

	"github.com/sorairo/resonance/internal/domain"
	"github.com/sorairo/resonance/internal/queue"
	"github.com/sorairo/resonance/internal/reducer/player"
	"github.com/sorairo/resonance/internal/reqtracker"
)

func newQueueOf(tracks ...domain.Track) *queue.Queue {
	q := queue.New()
	q.SetSongs(tracks, 0)
	return q
}

func TestPlayRequestedResolvesURLThenPlays(t *testing.T) {
	tr := reqtracker.New()
	q := newQueueOf(domain.Track{ID: 1, Title: "one"}, domain.Track{ID: 2, Title: "two"})

	s, effects := player.Handle(player.State{Bitrate: 320000}, q, tr, domain.MsgPlayRequested{Track: domain.Track{ID: 2, Title: "two"}})
	if len(effects) != 1 {
		t.Fatalf("expected a single song-url request effect, got %d", len(effects))
	}
	if _, ok := effects[0].(domain.EffectSendAPIHigh); !ok {
		t.Fatalf("expected EffectSendAPIHigh, got %T", effects[0])
	}
	if cur, _ := q.Current(); cur.ID != 2 {
		t.Fatalf("expected queue cursor moved to track 2, got %+v", cur)
	}

	s, effects = player.Handle(s, q, tr, domain.MsgSongURLReceived{
		ReqToken: domain.RequestToken(1),
		TrackID:  2,
		Bitrate:  320000,
		URL:      "https://example.com/2.mp3",
	})
	if len(effects) != 1 {
		t.Fatalf("expected a single audio play effect, got %d", len(effects))
	}
	audioEffect, ok := effects[0].(domain.EffectSendAudio)
	if !ok {
		t.Fatalf("expected EffectSendAudio, got %T", effects[0])
	}
	playCmd, ok := audioEffect.Cmd.(domain.AudioCmdPlayTrack)
	if !ok || playCmd.TrackID != 2 || playCmd.URL != "https://example.com/2.mp3" {
		t.Fatalf("unexpected play command: %#v", audioEffect.Cmd)
	}
	_ = s
}

func TestStaleSongURLReplyIsDropped(t *testing.T) {
	tr := reqtracker.New()
	q := newQueueOf(domain.Track{ID: 1}, domain.Track{ID: 2})

	s, _ := player.Handle(player.State{}, q, tr, domain.MsgPlayRequested{Track: domain.Track{ID: 1}}) // token 1
	s, _ = player.Handle(s, q, tr, domain.MsgPlayRequested{Track: domain.Track{ID: 2}})                // token 2, supersedes

	_, effects := player.Handle(s, q, tr, domain.MsgSongURLReceived{ReqToken: domain.RequestToken(1), TrackID: 1, URL: "stale"})
	if len(effects) != 0 {
		t.Fatalf("expected the stale reply to be dropped, got %v", effects)
	}
}

func TestAudioEndedAdvancesToNextTrack(t *testing.T) {
	tr := reqtracker.New()
	q := newQueueOf(domain.Track{ID: 1}, domain.Track{ID: 2})

	s := player.State{Current: domain.Track{ID: 1}, PlayID: 5, Playing: true}
	s, effects := player.Handle(s, q, tr, domain.MsgAudioEnded{PlayID: 5})
	if len(effects) != 1 {
		t.Fatalf("expected a song-url request for the next track, got %d effects", len(effects))
	}
	if s.Playing {
		t.Fatal("expected Playing false immediately on Ended")
	}
}

func TestStaleAudioEndedIgnored(t *testing.T) {
	tr := reqtracker.New()
	q := newQueueOf(domain.Track{ID: 1})

	s := player.State{Current: domain.Track{ID: 1}, PlayID: 5, Playing: true}
	s, effects := player.Handle(s, q, tr, domain.MsgAudioEnded{PlayID: 4})
	if len(effects) != 0 {
		t.Fatalf("expected stale Ended to be ignored, got %v", effects)
	}
	if !s.Playing {
		t.Fatal("expected Playing to remain true for a stale Ended")
	}
}

func TestSingleLoopReplaysCurrentTrackOnEnded(t *testing.T) {
	tr := reqtracker.New()
	q := newQueueOf(domain.Track{ID: 1}, domain.Track{ID: 2})

	s := player.State{Current: domain.Track{ID: 1}, PlayID: 5, Playing: true, Mode: domain.ModeSingleLoop}
	s, effects := player.Handle(s, q, tr, domain.MsgAudioEnded{PlayID: 5})
	if len(effects) != 1 {
		t.Fatalf("expected a re-resolve effect, got %d", len(effects))
	}
	cmd := effects[0].(domain.EffectSendAPIHigh).Cmd.(domain.APICmdSongURL)
	if cmd.TrackID != 1 {
		t.Fatalf("expected single-loop to replay track 1, got %d", cmd.TrackID)
	}
}

func TestNowPlayingUpdatesStateFields(t *testing.T) {
	tr := reqtracker.New()
	q := newQueueOf(domain.Track{ID: 1})

	s, effects := player.Handle(player.State{}, q, tr, domain.MsgAudioNowPlaying{
		TrackID: 1, PlayID: 9, Title: "one", DurationMs: 1000, HasDuration: true,
	})
	if s.PlayID != 9 || !s.Playing || s.Paused {
		t.Fatalf("unexpected state: %+v", s)
	}
	if s.DurationMs != 1000 || !s.HasDuration {
		t.Fatalf("expected duration populated, got %+v", s)
	}
	if len(effects) != 1 {
		t.Fatalf("expected a snapshot effect, got %d", len(effects))
	}
}
