// Access gate: a set of opaque API-key identifiers with first-use
// bootstrap.
//
// When EnableSecurityAPIKeys is false, Store.AccessGranted grants
// unconditionally without consulting the gate (§6); the gate itself
// always enforces membership when asked.
package alexdb

import (
	"sync"

	"github.com/google/uuid"
)

// accessGate guards a set of API-key identifiers.
type accessGate struct {
	mu   sync.RWMutex
	keys map[uuid.UUID]struct{}
}

func newAccessGate() *accessGate {
	return &accessGate{keys: make(map[uuid.UUID]struct{})}
}

// exists reports whether k is a member of the set.
func (g *accessGate) exists(k uuid.UUID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.keys[k]
	return ok
}

// init mints and inserts a new key only if the set is currently empty,
// returning it. A non-empty set returns the zero UUID and false — this
// is the one-shot bootstrap path for first-run key issuance.
func (g *accessGate) init() (uuid.UUID, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.keys) != 0 {
		return uuid.Nil, false
	}
	key := uuid.New()
	g.keys[key] = struct{}{}
	return key, true
}

func (g *accessGate) snapshotKeys() []uuid.UUID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]uuid.UUID, 0, len(g.keys))
	for k := range g.keys {
		out = append(out, k)
	}
	return out
}

func (g *accessGate) replace(keys []uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.keys = make(map[uuid.UUID]struct{}, len(keys))
	for _, k := range keys {
		g.keys[k] = struct{}{}
	}
}
