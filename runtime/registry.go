package runtime

import (
	"chat-relay/domain"
	"sync"

	"github.com/samber/lo"
)

// Registry is the single owner of the live connection set.
// One RWMutex guards the connection map and the per-user index.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]*Connection            // connection id -> connection
	byUser      map[string]map[string]*Connection // user id -> connection id -> connection
	hooks       []func()
}

func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[string]*Connection),
		byUser:      make(map[string]map[string]*Connection),
	}
}

// OnChange registers fn to run after every membership change.
// Hooks run outside the lock, in registration order.
func (r *Registry) OnChange(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, fn)
}

// Add tracks conn and returns false when it is already registered.
func (r *Registry) Add(conn *Connection) bool {
	r.mu.Lock()
	if _, ok := r.connections[conn.ID()]; ok {
		r.mu.Unlock()
		return false
	}
	r.connections[conn.ID()] = conn
	if identity, ok := conn.Identity(); ok {
		if _, exists := r.byUser[identity.UserID]; !exists {
			r.byUser[identity.UserID] = make(map[string]*Connection)
		}
		r.byUser[identity.UserID][conn.ID()] = conn
	}
	hooks := r.hooks
	r.mu.Unlock()

	runHooks(hooks)
	return true
}

// Remove stops tracking conn. Removing an absent connection is a no-op
// returning false, and no hook runs.
func (r *Registry) Remove(conn *Connection) bool {
	r.mu.Lock()
	if _, ok := r.connections[conn.ID()]; !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.connections, conn.ID())
	if identity, ok := conn.Identity(); ok {
		if conns, exists := r.byUser[identity.UserID]; exists {
			delete(conns, conn.ID())
			// Drop empty sets so the index does not grow with every user ever seen
			if len(conns) == 0 {
				delete(r.byUser, identity.UserID)
			}
		}
	}
	hooks := r.hooks
	r.mu.Unlock()

	runHooks(hooks)
	return true
}

func runHooks(hooks []func()) {
	for _, hook := range hooks {
		hook()
	}
}

// FindByUser returns every live connection of userID.
func (r *Registry) FindByUser(userID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.byUser[userID])
}

// All returns the live connections in no particular order.
func (r *Registry) All() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.connections)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// Snapshot lists the online users. Unresolved connections are left out.
func (r *Registry) Snapshot() domain.PresenceSnapshot {
	snapshot, _ := r.snapshotAndTargets()
	return snapshot
}

// snapshotAndTargets reads the snapshot and the connections to notify under
// the same read lock, so every target was counted in the snapshot it gets.
func (r *Registry) snapshotAndTargets() (domain.PresenceSnapshot, []*Connection) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	targets := lo.Values(r.connections)
	identities := lo.FilterMap(targets, func(c *Connection, _ int) (domain.Identity, bool) {
		return c.Identity()
	})
	return domain.NewPresenceSnapshot(identities), targets
}
