package settings_test

import (
	"testing"

	"github.com/sorairo/resonance/internal/domain"
	"github.com/sorairo/resonance/internal/reducer/settings"
)

func TestSettingsChangedAppliesAllFields(t *testing.T) {
	s, effects := settings.Handle(settings.State{}, domain.MsgSettingsChanged{
		Volume: 0.5, Bitrate: 128000, Mode: domain.ModeShuffle,
		LyricOffset: 200, CrossfadeMs: 3000, CacheMaxMB: 512, PreloadCount: 2,
	})
	if s.Volume != 0.5 || s.Bitrate != 128000 || s.Mode != domain.ModeShuffle {
		t.Fatalf("unexpected state: %+v", s)
	}
	if s.LyricOffset != 200 || s.CrossfadeMs != 3000 || s.CacheMaxMB != 512 || s.PreloadCount != 2 {
		t.Fatalf("unexpected state: %+v", s)
	}
	if len(effects) != 3 {
		t.Fatalf("expected volume + crossfade + snapshot effects, got %d", len(effects))
	}
}

func TestUnrelatedMessageIsNoop(t *testing.T) {
	s, effects := settings.Handle(settings.State{Volume: 0.7}, domain.MsgPauseToggled{})
	if s.Volume != 0.7 {
		t.Fatalf("expected state untouched, got %+v", s)
	}
	if effects != nil {
		t.Fatalf("expected no effects, got %v", effects)
	}
}
