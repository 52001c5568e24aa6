package state

import (
	"sync"
)

// Table is an in-memory ownership table userID -> Session. Calls for the
// same user are serialized; calls for different users never contend beyond
// the short map lookup.
type Table[D any] struct {
	mu       sync.Mutex
	entries  map[int64]*entry[D]
	handlers handlerSet
}

type entry[D any] struct {
	mu       sync.Mutex
	sess     Session[D]
	detached bool
}

// NewTable constructs an empty table.
func NewTable[D any]() *Table[D] {
	return &Table[D]{
		entries: make(map[int64]*entry[D]),
	}
}

// Do runs fn with exclusive access to the user's session, creating an idle
// session on first touch. If fn leaves the session idle it is removed.
func (t *Table[D]) Do(userID int64, fn func(s *Session[D]) error) error {
	for {
		e := t.acquire(userID)
		e.mu.Lock()
		if e.detached {
			// Removed between lookup and lock; retry with a fresh entry.
			e.mu.Unlock()
			continue
		}
		err := fn(&e.sess)
		if e.sess.State == StateIdle {
			t.detach(userID, e)
		}
		e.mu.Unlock()
		return err
	}
}

// Snapshot returns a copy of the user's session. Users without a session
// are reported idle with zero data.
func (t *Table[D]) Snapshot(userID int64) Session[D] {
	t.mu.Lock()
	e, ok := t.entries[userID]
	t.mu.Unlock()
	if !ok {
		return Session[D]{State: StateIdle}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detached {
		return Session[D]{State: StateIdle}
	}
	return e.sess
}

// GetState returns the current FSM state of a user, or StateIdle if none exists.
func (t *Table[D]) GetState(userID int64) State {
	return t.Snapshot(userID).State
}

// InProgress reports whether the user currently has an active FSM state.
func (t *Table[D]) InProgress(userID int64) bool {
	return t.GetState(userID) != StateIdle
}

// Clear removes the entire session for a user.
func (t *Table[D]) Clear(userID int64) {
	_ = t.Do(userID, func(s *Session[D]) error {
		s.Reset()
		return nil
	})
}

// Len returns the number of live sessions.
func (t *Table[D]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Table[D]) acquire(userID int64) *entry[D] {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[userID]
	if !ok {
		e = &entry[D]{sess: Session[D]{State: StateIdle}}
		t.entries[userID] = e
	}
	return e
}

// detach is called with e.mu held.
func (t *Table[D]) detach(userID int64, e *entry[D]) {
	t.mu.Lock()
	if t.entries[userID] == e {
		delete(t.entries, userID)
	}
	t.mu.Unlock()
	e.detached = true
}
