package registry

import (
	"sync"

	"mathbubble-server/internal/model"
)

// Registry is the process-wide mapping from connection id to live session.
// It is the only shared mutable structure in the core; every method takes the
// mutex so callers never observe a half-applied mutation.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*model.LiveSession
	order    []string
}

func New() *Registry {
	return &Registry{sessions: make(map[string]*model.LiveSession)}
}

// Register installs a session for connID, replacing any prior session for the
// same connection and evicting any session another connection holds for the
// same userId. It returns the evicted session, if any.
func (r *Registry) Register(connID string, session model.LiveSession) *model.LiveSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.register(connID, session)
}

// RegisterIf behaves like Register but only installs the session while alive
// reports true. The check runs under the registry lock, so a join completing
// after the connection's disconnect path has run can never install a session
// the disconnect path will not see.
func (r *Registry) RegisterIf(connID string, session model.LiveSession, alive func() bool) (bool, *model.LiveSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !alive() {
		return false, nil
	}
	return true, r.register(connID, session)
}

func (r *Registry) register(connID string, session model.LiveSession) *model.LiveSession {
	var evicted *model.LiveSession
	for id, existing := range r.sessions {
		if id != connID && existing.UserID == session.UserID {
			evicted = existing
			r.drop(id)
			break
		}
	}
	if _, ok := r.sessions[connID]; !ok {
		r.order = append(r.order, connID)
	}
	r.sessions[connID] = &session
	return evicted
}

// Mutate applies fn to the session for connID under the lock. It reports
// whether a session existed; absent ids are a no-op.
func (r *Registry) Mutate(connID string, fn func(*model.LiveSession)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[connID]
	if !ok {
		return false
	}
	fn(session)
	return true
}

// Remove deletes and returns the session for connID, or nil if absent.
func (r *Registry) Remove(connID string) *model.LiveSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[connID]
	if !ok {
		return nil
	}
	r.drop(connID)
	return session
}

func (r *Registry) drop(connID string) {
	delete(r.sessions, connID)
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Snapshot returns a copy of all live sessions in insertion order.
func (r *Registry) Snapshot() []model.LiveSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.LiveSession, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.sessions[id])
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
