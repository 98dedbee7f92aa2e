package snapshot_test

import (
	"testing"

	"github.com/sorairo/resonance/internal/domain"
	"github.com/sorairo/resonance/internal/reducer"
	"github.com/sorairo/resonance/internal/snapshot"
)

func TestBuildCopiesOnlyActiveViewSlice(t *testing.T) {
	s := reducer.New()
	s.Search.Results = []domain.Track{{ID: 1, Title: "one"}}
	s.Playlists.All = []domain.Playlist{{ID: 2, Name: "two"}}

	snap := snapshot.Build(s, domain.ViewSearch)
	if len(snap.Search.Results) != 1 {
		t.Fatalf("expected search results copied, got %v", snap.Search.Results)
	}
	if snap.Playlists.All != nil {
		t.Fatalf("expected playlists untouched for the Search view, got %v", snap.Playlists.All)
	}
}

func TestBuildSnapshotDoesNotAliasState(t *testing.T) {
	s := reducer.New()
	s.Search.Results = []domain.Track{{ID: 1, Title: "one"}}

	snap := snapshot.Build(s, domain.ViewSearch)
	snap.Search.Results[0].Title = "mutated"

	if s.Search.Results[0].Title == "mutated" {
		t.Fatal("expected snapshot slice to be an independent copy")
	}
}

func TestBuildAlwaysIncludesPlayerStatus(t *testing.T) {
	s := reducer.New()
	s.Player.Current = domain.Track{ID: 5, Title: "now playing"}
	s.Player.Playing = true

	snap := snapshot.Build(s, domain.ViewLyrics)
	if snap.Player.Track.ID != 5 || !snap.Player.Playing {
		t.Fatalf("expected player status present regardless of view, got %+v", snap.Player)
	}
}
