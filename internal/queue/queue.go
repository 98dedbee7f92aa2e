// Package queue implements the play queue: an ordered track list with a
// cursor and mode-dependent next/prev/peek semantics (spec §4.6).
package queue

import (
	"math/rand/v2"
	"sync"

	"github.com/sorairo/resonance/internal/domain"
)

// Queue holds the song list, the current play-mode permutation over it,
// and the cursor into that permutation. order is always a permutation of
// [0, len(songs)) — spec invariant 6.
type Queue struct {
	mu     sync.RWMutex
	songs  []domain.Track
	order  []int
	cursor int // position within order; -1 means "nothing played yet"
	mode   domain.PlayMode
}

// New creates an empty queue in Sequential mode.
func New() *Queue {
	return &Queue{cursor: -1, mode: domain.ModeSequential}
}

// SetSongs replaces the queue contents, rebuilds the permutation for the
// current mode, and places the cursor on startIndex.
func (q *Queue) SetSongs(songs []domain.Track, startIndex int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.songs = append([]domain.Track(nil), songs...)
	q.rebuildOrderUnsafe(-1)

	if len(q.songs) == 0 {
		q.cursor = -1
		return
	}
	if startIndex < 0 || startIndex >= len(q.songs) {
		startIndex = 0
	}
	q.cursor = q.positionOfUnsafe(startIndex)
}

// SetMode rebuilds the permutation for the new mode while preserving the
// currently playing track's position. Calling SetMode twice with the same
// mode is a no-op (spec round-trip law).
func (q *Queue) SetMode(mode domain.PlayMode) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if mode == q.mode {
		return
	}

	currentSongIdx := -1
	if q.cursor >= 0 && q.cursor < len(q.order) {
		currentSongIdx = q.order[q.cursor]
	}

	q.mode = mode
	q.rebuildOrderUnsafe(currentSongIdx)

	if currentSongIdx >= 0 {
		q.cursor = q.positionOfUnsafe(currentSongIdx)
	}
}

// Mode returns the current play mode.
func (q *Queue) Mode() domain.PlayMode {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.mode
}

// Len returns the number of songs in the queue.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.songs)
}

// Current returns the track at the cursor, if any.
func (q *Queue) Current() (domain.Track, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.cursor < 0 || q.cursor >= len(q.order) {
		return domain.Track{}, false
	}
	return q.songs[q.order[q.cursor]], true
}

// rebuildOrderUnsafe rebuilds q.order for q.mode. If preserveSongIdx is a
// valid index into q.songs, a Shuffle rebuild keeps that song's position
// anchored (it is the "current" playback so its relative position
// shouldn't move under the listener). Caller must hold q.mu for writing.
func (q *Queue) rebuildOrderUnsafe(preserveSongIdx int) {
	n := len(q.songs)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	if q.mode == domain.ModeShuffle && n > 1 {
		rand.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })

		if preserveSongIdx >= 0 {
			// Move the preserved song to the front of the shuffled order so
			// "what's currently playing" doesn't change out from under the
			// listener when the mode flips to Shuffle mid-playback.
			for i, songIdx := range order {
				if songIdx == preserveSongIdx {
					order[0], order[i] = order[i], order[0]
					break
				}
			}
		}
	}

	q.order = order
}

// positionOfUnsafe returns the position within q.order of the given song
// index. Caller must hold q.mu.
func (q *Queue) positionOfUnsafe(songIdx int) int {
	for pos, s := range q.order {
		if s == songIdx {
			return pos
		}
	}
	return -1
}

// PeekNextIndex returns the order-position that NextIndex would move the
// cursor to, without mutating state.
func (q *Queue) PeekNextIndex() (int, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.peekNextUnsafe()
}

func (q *Queue) peekNextUnsafe() (int, bool) {
	n := len(q.order)
	if n == 0 || q.cursor < 0 {
		return -1, false
	}

	switch q.mode {
	case domain.ModeSequential:
		if q.cursor+1 >= n {
			return -1, false
		}
		return q.cursor + 1, true
	case domain.ModeListLoop:
		return (q.cursor + 1) % n, true
	case domain.ModeSingleLoop:
		return q.cursor, true
	case domain.ModeShuffle:
		return (q.cursor + 1) % n, true
	default:
		return -1, false
	}
}

// PeekNext returns the track that NextIndex would advance to, without
// mutating the cursor.
func (q *Queue) PeekNext() (domain.Track, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	pos, ok := q.peekNextUnsafe()
	if !ok {
		return domain.Track{}, false
	}
	return q.songs[q.order[pos]], true
}

// NextIndex advances the cursor per the current mode and returns the new
// track, or false if there is no next (Sequential at the end, or empty
// queue).
func (q *Queue) NextIndex() (domain.Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	pos, ok := q.peekNextUnsafe()
	if !ok {
		return domain.Track{}, false
	}
	q.cursor = pos
	return q.songs[q.order[pos]], true
}

// PrevIndex moves the cursor backward per the current mode.
func (q *Queue) PrevIndex() (domain.Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.order)
	if n == 0 || q.cursor < 0 {
		return domain.Track{}, false
	}

	switch q.mode {
	case domain.ModeSequential:
		if q.cursor-1 < 0 {
			return domain.Track{}, false
		}
		q.cursor--
	case domain.ModeListLoop, domain.ModeShuffle:
		q.cursor = (q.cursor - 1 + n) % n
	case domain.ModeSingleLoop:
		// stay
	}
	return q.songs[q.order[q.cursor]], true
}

// SetCurrentIndex repositions the cursor at the order-position of song
// index i (an index into the original, unshuffled song list). A no-op on
// an empty queue.
func (q *Queue) SetCurrentIndex(i int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.songs) == 0 {
		return
	}
	if i < 0 || i >= len(q.songs) {
		return
	}
	if pos := q.positionOfUnsafe(i); pos >= 0 {
		q.cursor = pos
	}
}

// Songs returns a copy of the underlying song list (not the play order).
func (q *Queue) Songs() []domain.Track {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return append([]domain.Track(nil), q.songs...)
}

// Order returns a copy of the current permutation, for tests/diagnostics.
func (q *Queue) Order() []int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return append([]int(nil), q.order...)
}
