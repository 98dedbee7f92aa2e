// Package domain holds the data model shared across every actor: tracks,
// playlists, cache keys, play modes, and the other tagged-variant types
// that replace object hierarchies with exhaustive sum types.
package domain

import "strings"

// Track is immutable once fetched from the catalog. Equality is by ID.
type Track struct {
	ID         int64
	Title      string
	Artists    string
	Album      string
	DurationMs int64
}

// Equal compares tracks by ID, per spec: "Equality by id."
func (t Track) Equal(other Track) bool {
	return t.ID == other.ID
}

// Playlist describes a user playlist or the system-generated favourites
// list.
type Playlist struct {
	ID          int64
	Name        string
	TrackCount  int64
	SpecialType int64
	CoverURL    string
}

// favoritesSpecialType is the server-side marker for the "liked songs"
// playlist.
const favoritesSpecialType = 5

// favoritesNameMarker is the Chinese substring ("I like") some catalogs use
// in place of (or alongside) the special_type marker.
const favoritesNameMarker = "我喜欢"

// IsFavorites reports whether this playlist is the favourites list, which
// receives selection and preload priority.
func (p Playlist) IsFavorites() bool {
	if p.SpecialType == favoritesSpecialType {
		return true
	}
	return strings.Contains(p.Name, favoritesNameMarker)
}
