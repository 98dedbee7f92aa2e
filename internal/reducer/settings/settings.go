// Package settings owns the persisted, UI-visible settings slice (spec
// §4.5 settings slice, §6): volume, bitrate, play mode, lyric offset,
// crossfade duration, cache size cap, and preload count. It never
// persists to disk itself — that is internal/settings' job; the host
// saves the settings once, on shutdown.
package settings

import "github.com/sorairo/resonance/internal/domain"

type State struct {
	Volume       float64
	Bitrate      int64
	Mode         domain.PlayMode
	LyricOffset  int64
	CrossfadeMs  int64
	CacheMaxMB   int64
	PreloadCount int
}

func Handle(s State, msg domain.Message) (State, []domain.Effect) {
	m, ok := msg.(domain.MsgSettingsChanged)
	if !ok {
		return s, nil
	}
	s.Volume = m.Volume
	s.Bitrate = m.Bitrate
	s.Mode = m.Mode
	s.LyricOffset = m.LyricOffset
	s.CrossfadeMs = m.CrossfadeMs
	s.CacheMaxMB = m.CacheMaxMB
	s.PreloadCount = m.PreloadCount
	return s, []domain.Effect{
		domain.EffectSendAudio{Cmd: domain.AudioCmdSetVolume{Volume: m.Volume}},
		domain.EffectSendAudio{Cmd: domain.AudioCmdSetCrossfadeMs{Ms: m.CrossfadeMs}},
		domain.EffectEmitSnapshot{},
	}
}
