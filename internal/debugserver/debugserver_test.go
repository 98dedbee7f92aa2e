package debugserver_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sorairo/resonance/internal/debugserver"
	"github.com/sorairo/resonance/internal/domain"
	"github.com/sorairo/resonance/internal/queue"
	"github.com/sorairo/resonance/internal/snapshot"
)

type fakeCache struct{}

func (fakeCache) CacheStats() (int, uint64, string) { return 3, 1024, "/tmp/cache" }

func newTestEngine(t *testing.T) http.Handler {
	t.Helper()
	q := queue.New()
	q.SetSongs([]domain.Track{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}}, 0)

	snap := snapshot.Snapshot{View: domain.ViewPlaylists}
	srv := debugserver.New(":0", func() snapshot.Snapshot { return snap }, q, fakeCache{})
	return srv.Handler()
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	newTestEngine(t).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestQueueEndpointReportsLengthAndSongs(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/queue", nil)
	newTestEngine(t).ServeHTTP(rec, req)

	var body struct {
		Length int            `json:"length"`
		Songs  []domain.Track `json:"songs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Length != 2 || len(body.Songs) != 2 {
		t.Fatalf("expected 2 songs, got %+v", body)
	}
}

func TestCacheEndpointReportsStats(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/cache", nil)
	newTestEngine(t).ServeHTTP(rec, req)

	var body struct {
		Files int    `json:"files"`
		Bytes uint64 `json:"bytes"`
		Dir   string `json:"dir"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Files != 3 || body.Bytes != 1024 || body.Dir != "/tmp/cache" {
		t.Fatalf("unexpected cache stats: %+v", body)
	}
}
