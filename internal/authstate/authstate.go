// Package authstate persists the catalog API's cookie jar and a
// generated device id to auth_state.json (spec §6), so a session
// survives across runs without a fresh anonymous registration or QR
// login every time. Writes are atomic, grounded on
// internal/playlist/store.go's temp-file-plus-rename Save.
package authstate

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
)

// State is the on-disk shape of auth_state.json.
type State struct {
	DeviceID string         `json:"device_id"`
	Cookies  []*http.Cookie `json:"cookies"`
}

// Store loads and atomically saves State for a single base URL (the
// jar only ever needs to round-trip cookies scoped to the catalog
// API's host).
type Store struct {
	mu      sync.Mutex
	path    string
	baseURL *url.URL
}

// NewStore creates a Store writing to path, scoped to baseURL. The
// parent directory is created if missing.
func NewStore(path, baseURL string) (*Store, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create auth state directory %q: %w", dir, err)
	}
	return &Store{path: path, baseURL: u}, nil
}

// Load reads auth_state.json if present, returning a ready-to-use
// cookie jar seeded with any persisted cookies and the device id
// (generating and persisting a new one on first run).
func (s *Store) Load() (deviceID string, jar *cookiejar.Jar, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jar, err = cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return "", nil, fmt.Errorf("create cookie jar: %w", err)
	}

	state, err := s.readLocked()
	if err != nil {
		return "", nil, err
	}
	if state == nil {
		deviceID = uuid.NewString()
		if err := s.writeLocked(State{DeviceID: deviceID}); err != nil {
			return "", nil, err
		}
		return deviceID, jar, nil
	}

	if len(state.Cookies) > 0 {
		jar.SetCookies(s.baseURL, state.Cookies)
	}
	if state.DeviceID == "" {
		state.DeviceID = uuid.NewString()
		if err := s.writeLocked(*state); err != nil {
			return "", nil, err
		}
	}
	return state.DeviceID, jar, nil
}

// Save persists the jar's current cookies for baseURL alongside
// deviceID, atomically.
func (s *Store) Save(deviceID string, jar *cookiejar.Jar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(State{DeviceID: deviceID, Cookies: jar.Cookies(s.baseURL)})
}

func (s *Store) readLocked() (*State, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", s.path, err)
	}
	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("parse %q: %w", s.path, err)
	}
	return &state, nil
}

func (s *Store) writeLocked(state State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal auth state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "auth_state-*.json.tmp")
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
