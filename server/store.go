package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/nvr-ai/imgmerge/session"
)

// ErrNotFound is returned for an unknown session id.
var ErrNotFound = errors.New("session not found")

// Store keeps the live sessions in memory. Sessions are never persisted.
type Store struct {
	mu        sync.RWMutex
	sessions  map[string]*session.Session
	hideAfter time.Duration
	maxPixels int64
}

// NewStore creates an empty store whose sessions hide their controls after
// hideAfter and refuse outputs larger than maxPixels (0 for no limit).
func NewStore(hideAfter time.Duration, maxPixels int64) *Store {
	return &Store{
		sessions:  make(map[string]*session.Session),
		hideAfter: hideAfter,
		maxPixels: maxPixels,
	}
}

// Create starts a new session and returns its id.
func (st *Store) Create(now time.Time) (string, *session.Session) {
	id := uuid.NewString()
	s := session.New(session.Options{HideAfter: st.hideAfter, Now: now, MaxOutputPixels: st.maxPixels})

	st.mu.Lock()
	st.sessions[id] = s
	st.mu.Unlock()
	return id, s
}

// Get returns the session with the given id.
func (st *Store) Get(id string) (*session.Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%q", id)
	}
	return s, nil
}

// Delete removes a session. Deleting an unknown id is an error.
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return errors.Wrapf(ErrNotFound, "%q", id)
	}
	delete(st.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
