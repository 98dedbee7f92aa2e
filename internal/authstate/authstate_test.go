package authstate_test

import (
	"net/http"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/sorairo/resonance/internal/authstate"
)

func TestLoadGeneratesDeviceIDOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth_state.json")
	store, err := authstate.NewStore(path, "https://music.example.com")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	deviceID, jar, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if deviceID == "" {
		t.Fatal("expected a generated device id")
	}
	if jar == nil {
		t.Fatal("expected a non-nil cookie jar")
	}
}

func TestSaveThenLoadRoundTripsCookiesAndDeviceID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth_state.json")
	base := "https://music.example.com"
	store, err := authstate.NewStore(path, base)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	deviceID, jar, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	u, _ := url.Parse(base)
	jar.SetCookies(u, []*http.Cookie{{Name: "MUSIC_U", Value: "token123"}})

	if err := store.Save(deviceID, jar); err != nil {
		t.Fatalf("Save: %v", err)
	}

	store2, err := authstate.NewStore(path, base)
	if err != nil {
		t.Fatalf("NewStore (reload): %v", err)
	}
	deviceID2, jar2, err := store2.Load()
	if err != nil {
		t.Fatalf("Load (reload): %v", err)
	}
	if deviceID2 != deviceID {
		t.Fatalf("expected device id %q to persist, got %q", deviceID, deviceID2)
	}
	cookies := jar2.Cookies(u)
	if len(cookies) != 1 || cookies[0].Name != "MUSIC_U" || cookies[0].Value != "token123" {
		t.Fatalf("expected persisted cookie to round-trip, got %+v", cookies)
	}
}

func TestLoadOnMissingFileDoesNotError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "auth_state.json")
	store, err := authstate.NewStore(path, "https://music.example.com")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, _, err := store.Load(); err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
}
