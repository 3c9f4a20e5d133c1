package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is a concurrency-safe keyed container of sessions. Structural
// changes (insert, sweep removal) are serialized by the store's lock;
// per-session mutation is serialized by each session's own lock.
type Store struct {
	// mu guards the sessions map itself, not the sessions it holds
	mu sync.RWMutex

	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// Create allocates a fresh session with a unique identifier and stores it.
func (st *Store) Create() *Session {
	now := time.Now()
	s := &Session{
		id:             uuid.NewString(),
		createdAt:      now,
		lastAccessedAt: now,
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.id] = s

	return s
}

// Get returns the session for the given identifier and records the access
// for TTL accounting. Returns NotFoundError if the session does not exist
// or has been reaped.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()

	if !ok {
		return nil, NotFoundError{ID: id}
	}

	s.touch(time.Now())
	return s, nil
}

// Snapshot returns a read-only serialized view of the session's state.
func (st *Store) Snapshot(id string) (Snapshot, error) {
	s, err := st.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return s.Snapshot(), nil
}

// Sweep removes every session whose last activity is older than now-maxIdle
// and returns the number of sessions removed. It is safe to run concurrently
// with Get and per-session mutation: a session being actively used has a
// fresh last-activity time and is not eligible.
func (st *Store) Sweep(now time.Time, maxIdle time.Duration) int {
	cutoff := now.Add(-maxIdle)

	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, s := range st.sessions {
		if s.lastActivity().Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
