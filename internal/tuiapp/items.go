package tuiapp

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/sorairo/resonance/internal/domain"
)

// trackItem and playlistItem implement list.DefaultItem (FilterValue,
// Title, Description) for the bubbles list views, grounded on
// other_examples' climp trackItem.

type trackItem struct {
	track domain.Track
}

func (t trackItem) FilterValue() string { return t.track.Title }
func (t trackItem) Title() string       { return t.track.Title }
func (t trackItem) Description() string {
	return fmt.Sprintf("%s — %s", t.track.Artists, t.track.Album)
}

type playlistItem struct {
	playlist domain.Playlist
}

func (p playlistItem) FilterValue() string { return p.playlist.Name }
func (p playlistItem) Title() string       { return p.playlist.Name }
func (p playlistItem) Description() string {
	return fmt.Sprintf("%d tracks", p.playlist.TrackCount)
}

func trackItems(tracks []domain.Track) []list.Item {
	out := make([]list.Item, len(tracks))
	for i, t := range tracks {
		out[i] = trackItem{track: t}
	}
	return out
}

func playlistItems(playlists []domain.Playlist) []list.Item {
	out := make([]list.Item, len(playlists))
	for i, p := range playlists {
		out[i] = playlistItem{playlist: p}
	}
	return out
}
