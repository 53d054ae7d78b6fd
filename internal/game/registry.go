package game

import (
	"sort"
	"sync"
	"time"
)

// SessionInfo is the registry's public view of one session.
type SessionInfo struct {
	ID        string    `json:"id"`
	Room      string    `json:"room"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"createdAt"`
}

type registryEntry struct {
	session Session
	created time.Time
}

// Registry owns the set of live sessions and the room -> session mapping.
// Engines insert on Start and remove themselves on their terminal transition.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]registryEntry
	byRoom   map[string]string
	onRemove []func(SessionInfo)
	now      func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]registryEntry),
		byRoom:   make(map[string]string),
		now:      time.Now,
	}
}

// OnRemove registers a hook called after a session leaves the registry.
func (r *Registry) OnRemove(fn func(SessionInfo)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRemove = append(r.onRemove, fn)
}

// Insert adds s. A room can hold at most one live session.
func (r *Registry) Insert(s Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID()]; ok {
		return Errorf(CodeAlreadyActive, "session %s already registered", s.ID())
	}
	if s.Room() != "" {
		if _, ok := r.byRoom[s.Room()]; ok {
			return ErrAlreadyActive
		}
		r.byRoom[s.Room()] = s.ID()
	}
	r.sessions[s.ID()] = registryEntry{session: s, created: r.now()}
	return nil
}

// Remove deletes the session and releases its room. It reports whether
// anything was removed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	e, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.sessions, id)
	if room := e.session.Room(); room != "" && r.byRoom[room] == id {
		delete(r.byRoom, room)
	}
	hooks := append([]func(SessionInfo){}, r.onRemove...)
	r.mu.Unlock()

	info := infoOf(e)
	for _, fn := range hooks {
		fn(info)
	}
	return true
}

// Get returns the live session with the given id.
func (r *Registry) Get(id string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, Errorf(CodeNotFound, "session %s not found", id)
	}
	return e.session, nil
}

// ActiveForRoom returns the id of the room's live session, if any.
func (r *Registry) ActiveForRoom(room string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byRoom[room]
	return id, ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// List returns every live session, oldest first.
func (r *Registry) List() []SessionInfo {
	r.mu.RLock()
	out := make([]SessionInfo, 0, len(r.sessions))
	for _, e := range r.sessions {
		out = append(out, infoOf(e))
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Sweep stops and removes sessions older than retention or already finished.
func (r *Registry) Sweep(retention time.Duration) []string {
	cutoff := r.now().Add(-retention)
	var stale []Session

	r.mu.RLock()
	for _, e := range r.sessions {
		if e.created.Before(cutoff) || isDone(e.session) {
			stale = append(stale, e.session)
		}
	}
	r.mu.RUnlock()

	ids := make([]string, 0, len(stale))
	for _, s := range stale {
		s.Stop("session expired")
		r.Remove(s.ID())
		ids = append(ids, s.ID())
	}
	return ids
}

func infoOf(e registryEntry) SessionInfo {
	return SessionInfo{
		ID:        e.session.ID(),
		Room:      e.session.Room(),
		Kind:      e.session.Kind(),
		CreatedAt: e.created,
	}
}

func isDone(s Session) bool {
	select {
	case <-s.Done():
		return true
	default:
		return false
	}
}
