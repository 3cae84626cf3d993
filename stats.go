// Request/read/write counters and the snapshot-trigger predicate.
//
// Stats sits first in the canonical lock order (§4.2 of the spec): every
// mutator bumps Requests before touching any other structure, which
// keeps the request counter accurate even when a mutation later fails.
package alexdb

import (
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// Stats is a point-in-time copy of the counters, safe to pass around
// and serialize freely.
type Stats struct {
	Requests    uint64
	Reads       uint64
	Writes      uint64
	SavedWrites uint64
	LastSavedAt time.Time
}

// statsGuard holds the live, mutex-protected counters. It is never
// copied; snapshot is the only way to observe its state.
type statsGuard struct {
	mu sync.Mutex
	s  Stats
}

func (g *statsGuard) snapshot() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.s
}

func (g *statsGuard) incRequests() {
	g.mu.Lock()
	g.s.Requests++
	g.mu.Unlock()
}

func (g *statsGuard) incReads() {
	g.mu.Lock()
	g.s.Reads++
	g.mu.Unlock()
}

func (g *statsGuard) incWrites() {
	g.mu.Lock()
	g.s.Writes++
	g.mu.Unlock()
}

// canSave reports whether enough writes have accumulated and enough
// time has elapsed since the last snapshot to justify another one.
func (g *statsGuard) canSave(thresholdWrites uint64, minInterval time.Duration) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.s.Writes-g.s.SavedWrites < thresholdWrites {
		return false
	}
	return time.Since(g.s.LastSavedAt) >= minInterval
}

// updateSavedWrites records that a snapshot was just taken.
func (g *statsGuard) updateSavedWrites() {
	g.mu.Lock()
	g.s.SavedWrites = g.s.Writes
	g.s.LastSavedAt = time.Now()
	g.mu.Unlock()
}

// wireStats is the JSON shape a collaborator's stats endpoint (§6)
// would expose.
type wireStats struct {
	Requests    uint64 `json:"requests"`
	Reads       uint64 `json:"reads"`
	Writes      uint64 `json:"writes"`
	SavedWrites uint64 `json:"saved_writes"`
	LastSavedAt int64  `json:"last_saved_at"`
}

func (s Stats) toWire() wireStats {
	return wireStats{
		Requests:    s.Requests,
		Reads:       s.Reads,
		Writes:      s.Writes,
		SavedWrites: s.SavedWrites,
		LastSavedAt: s.LastSavedAt.UnixNano(),
	}
}

// MarshalJSON lets a Stats snapshot (from Store.Stats) serialize
// directly for a collaborator's stats endpoint.
func (s Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.toWire())
}
