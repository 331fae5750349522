package realtime

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Registry is the in-memory map of live connections and identity
// registrations. It is safe for concurrent use.
//
// Every attached connection lives in an arena keyed by id. Two indexes link
// identities and connections; an identity maps to at most one connection
// (last Register wins) and a connection holds at most one identity.
type Registry struct {
	mu         sync.RWMutex
	conns      map[uint64]Conn
	byIdentity map[string]uint64
	byConn     map[uint64]string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:      make(map[uint64]Conn),
		byIdentity: make(map[string]uint64),
		byConn:     make(map[uint64]string),
	}
}

// Attach adds c to the set of live connections.
func (r *Registry) Attach(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c.ID()] = c
	connectionsGauge.Set(float64(len(r.conns)))
}

// Detach removes c from the live set along with any identity it still owns.
func (r *Registry) Detach(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := c.ID()
	if identity, ok := r.byConn[id]; ok {
		if r.byIdentity[identity] == id {
			delete(r.byIdentity, identity)
		}
		delete(r.byConn, id)
	}
	delete(r.conns, id)
	connectionsGauge.Set(float64(len(r.conns)))
	onlineGauge.Set(float64(len(r.byIdentity)))
}

// Register maps identity to c, replacing any previous connection for that
// identity. The superseded connection is returned (nil if none) but is not
// closed. If c previously held a different identity, that mapping is
// released.
func (r *Registry) Register(identity string, c Conn) (superseded Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := c.ID()
	r.conns[id] = c

	if old, ok := r.byConn[id]; ok && old != identity {
		if r.byIdentity[old] == id {
			delete(r.byIdentity, old)
		}
	}
	if prev, ok := r.byIdentity[identity]; ok && prev != id {
		superseded = r.conns[prev]
		delete(r.byConn, prev)
	}
	r.byIdentity[identity] = id
	r.byConn[id] = identity

	connectionsGauge.Set(float64(len(r.conns)))
	onlineGauge.Set(float64(len(r.byIdentity)))
	return superseded
}

// Unregister removes the identity mapping only if it still points at c. It
// reports whether an entry was removed; a stale disconnect from a superseded
// connection is a no-op.
func (r *Registry) Unregister(identity string, c Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := c.ID()
	if r.byConn[id] == identity {
		delete(r.byConn, id)
	}
	if cur, ok := r.byIdentity[identity]; !ok || cur != id {
		return false
	}
	delete(r.byIdentity, identity)
	onlineGauge.Set(float64(len(r.byIdentity)))
	return true
}

// Lookup returns the live connection registered for identity.
func (r *Registry) Lookup(identity string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byIdentity[identity]
	if !ok {
		return nil, false
	}
	c, ok := r.conns[id]
	return c, ok
}

// IdentityOf returns the identity c has joined as, if any.
func (r *Registry) IdentityOf(c Conn) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	identity, ok := r.byConn[c.ID()]
	return identity, ok
}

// Snapshot returns the registered identities sorted ascending.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	ids := lo.Keys(r.byIdentity)
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Live returns every attached connection, joined or not.
func (r *Registry) Live() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.conns)
}
