// Package settings persists the UI-visible settings.json (spec §6):
// volume, bitrate, play mode, lyric offset, crossfade ms, cache size,
// and preload count. Atomic writes grounded on
// internal/playlist/store.go's temp-file-plus-rename Save.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sorairo/resonance/internal/domain"
)

// Settings is the on-disk shape of settings.json, one-to-one with
// domain.MsgSettingsChanged's fields.
type Settings struct {
	Volume       float64         `json:"volume"`
	Bitrate      int64           `json:"bitrate"`
	Mode         domain.PlayMode `json:"mode"`
	LyricOffset  int64           `json:"lyric_offset_ms"`
	CrossfadeMs  int64           `json:"crossfade_ms"`
	CacheMaxMB   int64           `json:"cache_max_mb"`
	PreloadCount int             `json:"preload_count"`
}

// Default returns the settings a fresh install starts with.
func Default() Settings {
	return Settings{
		Volume:       1.0,
		Bitrate:      320000,
		Mode:         domain.ModeSequential,
		CrossfadeMs:  0,
		CacheMaxMB:   2048,
		PreloadCount: 1,
	}
}

// ToMessage builds the domain.MsgSettingsChanged the reducer applies
// this Settings through, so loading on startup reuses the same code
// path a user-driven settings edit does.
func (s Settings) ToMessage() domain.MsgSettingsChanged {
	return domain.MsgSettingsChanged{
		Volume:       s.Volume,
		Bitrate:      s.Bitrate,
		Mode:         s.Mode,
		LyricOffset:  s.LyricOffset,
		CrossfadeMs:  s.CrossfadeMs,
		CacheMaxMB:   s.CacheMaxMB,
		PreloadCount: s.PreloadCount,
	}
}

// FromMessage converts a MsgSettingsChanged back into the persisted
// shape, for saving after a user edit.
func FromMessage(m domain.MsgSettingsChanged) Settings {
	return Settings{
		Volume:       m.Volume,
		Bitrate:      m.Bitrate,
		Mode:         m.Mode,
		LyricOffset:  m.LyricOffset,
		CrossfadeMs:  m.CrossfadeMs,
		CacheMaxMB:   m.CacheMaxMB,
		PreloadCount: m.PreloadCount,
	}
}

// Store loads and atomically saves Settings to a single path.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a Store writing to path, creating its parent
// directory if missing.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create settings directory %q: %w", dir, err)
	}
	return &Store{path: path}, nil
}

// Load reads settings.json, returning Default() if it doesn't exist
// yet.
func (s *Store) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("read %q: %w", s.path, err)
	}
	var out Settings
	if err := json.Unmarshal(raw, &out); err != nil {
		return Settings{}, fmt.Errorf("parse %q: %w", s.path, err)
	}
	return out, nil
}

// Save writes settings atomically (temp file plus rename, same
// directory as the target so the rename stays on one filesystem).
func (s *Store) Save(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "settings-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file to %q: %w", s.path, err)
	}
	return nil
}
