// Package reqtracker implements the "accept latest only" staleness
// discipline: every outbound request carries a token from Issue, and a
// reply is only accepted if Accept is called with the exact same token
// before any newer Issue for the same kind overwrote it.
package reqtracker

import (
	"sync"

	"github.com/sorairo/resonance/internal/domain"
)

// Token is an opaque per-issue identifier. The zero value never matches a
// real issued token.
type Token uint64

// Tracker maps each RequestKind to the single outstanding token for it,
// mirroring the mutex-guarded per-key map pattern used for login rate
// limiting in the teacher repo.
type Tracker struct {
	mu      sync.Mutex
	next    uint64
	current map[domain.RequestKind]Token
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{current: make(map[domain.RequestKind]Token)}
}

// Issue allocates a fresh token for kind, overwriting (and thereby
// invalidating) any token previously issued for that kind.
func (t *Tracker) Issue(kind domain.RequestKind) Token {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	tok := Token(t.next)
	t.current[kind] = tok
	return tok
}

// Accept returns true only when tok is the latest token issued for kind. A
// successful accept clears the slot, so a second reply carrying the same
// token is rejected (spec invariant 5: at most one Accept succeeds per
// Issue).
func (t *Tracker) Accept(kind domain.RequestKind, tok Token) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if current, ok := t.current[kind]; ok && current == tok {
		delete(t.current, kind)
		return true
	}
	return false
}

// Pending reports whether kind currently has an outstanding, unaccepted
// token — useful for UI loading-spinner state.
func (t *Tracker) Pending(kind domain.RequestKind) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.current[kind]
	return ok
}
