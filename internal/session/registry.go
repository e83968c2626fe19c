// Package session tracks which recipients are mid-scrape, waiting for a
// challenge round to resolve.
//
// Presence in the registry is the state: a recipient with an entry is
// awaiting a challenge solution, one without is idle. Sessions are
// in-memory only; a restart loses in-flight sessions and there is no
// timeout-driven expiry (see DESIGN.md).
package session

import (
	"sync"
	"time"
)

type Registry struct {
	mu       sync.Mutex
	sessions map[int64]time.Time // recipient -> started at
}

func NewRegistry() *Registry {
	return &Registry{sessions: map[int64]time.Time{}}
}

// Begin opens a session for the recipient.
// It returns false (and changes nothing) if one is already open.
func (r *Registry) Begin(recipient int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[recipient]; ok {
		return false
	}
	r.sessions[recipient] = time.Now()
	return true
}

// Has reports whether the recipient has an open session.
func (r *Registry) Has(recipient int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[recipient]
	return ok
}

// End closes the recipient's session. Idempotent; closing an absent
// session is a no-op (terminal events may arrive out of order).
func (r *Registry) End(recipient int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, recipient)
}

// Age returns how long the recipient's session has been open.
func (r *Registry) Age(recipient int64) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	at, ok := r.sessions[recipient]
	if !ok {
		return 0, false
	}
	return time.Since(at), true
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
