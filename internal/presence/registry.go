// Package presence is the connection registry: which identity is reachable
// through which live transport right now.
package presence

import (
	"sort"
	"sync"

	"minigames/internal/network"
)

// Transport is a live client channel. Deliver must never block.
type Transport interface {
	Deliver(msg network.Message) bool
}

// Event is published to observers whenever a binding changes.
type Event struct {
	Identity string   `json:"identity"`
	Online   bool     `json:"online"`
	Users    []string `json:"users"`
}

// Observer receives presence changes. It is called outside the registry lock.
type Observer func(Event)

// Registry maps identities to their current transport. One identity has at
// most one binding; binding again replaces the previous transport.
type Registry struct {
	mu        sync.RWMutex
	bindings  map[string]Transport
	observers []Observer
}

func NewRegistry() *Registry {
	return &Registry{bindings: make(map[string]Transport)}
}

// Observe adds an observer for presence changes.
func (r *Registry) Observe(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// Bind replaces any prior binding for identity and returns the replaced transport.
func (r *Registry) Bind(identity string, t Transport) Transport {
	r.mu.Lock()
	prev := r.bindings[identity]
	r.bindings[identity] = t
	ev, observers := r.eventLocked(identity, true)
	r.mu.Unlock()

	notify(observers, ev)
	return prev
}

// Unbind removes identity's binding, whatever transport it points to.
func (r *Registry) Unbind(identity string) bool {
	return r.release(identity, nil)
}

// Release removes identity's binding only if it still points to t. A
// disconnect racing with a reconnect must not drop the newer transport.
func (r *Registry) Release(identity string, t Transport) bool {
	return r.release(identity, t)
}

func (r *Registry) release(identity string, t Transport) bool {
	r.mu.Lock()
	cur, ok := r.bindings[identity]
	if !ok || (t != nil && cur != t) {
		r.mu.Unlock()
		return false
	}
	delete(r.bindings, identity)
	ev, observers := r.eventLocked(identity, false)
	r.mu.Unlock()

	notify(observers, ev)
	return true
}

// Lookup returns the transport currently bound to identity.
func (r *Registry) Lookup(identity string) (Transport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.bindings[identity]
	return t, ok
}

// Online returns every bound identity, sorted.
func (r *Registry) Online() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.onlineLocked()
}

// Each calls fn for every binding. fn must not call back into the registry.
func (r *Registry) Each(fn func(identity string, t Transport)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, t := range r.bindings {
		fn(id, t)
	}
}

func (r *Registry) onlineLocked() []string {
	users := make([]string, 0, len(r.bindings))
	for id := range r.bindings {
		users = append(users, id)
	}
	sort.Strings(users)
	return users
}

func (r *Registry) eventLocked(identity string, online bool) (Event, []Observer) {
	ev := Event{Identity: identity, Online: online, Users: r.onlineLocked()}
	observers := make([]Observer, len(r.observers))
	copy(observers, r.observers)
	return ev, observers
}

func notify(observers []Observer, ev Event) {
	for _, o := range observers {
		o(ev)
	}
}
