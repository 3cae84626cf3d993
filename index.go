// Secondary indexes: by_key, by_created_at, by_updated_at, by_delete_at.
//
// by_key is a true map (keys are unique across live records, §3) with a
// parallel sorted slice kept in sync via binary-search insert/delete so
// lexical listing never needs to re-sort. The three time indexes key on
// a nanosecond instant that is not guaranteed unique, so they are
// ordered multimaps: a sorted slice of (instant, id) pairs, mirroring
// the binary-search techniques folio's scan.go uses over its own
// sorted on-disk sections.
package alexdb

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// keyIndex is by_key: text -> id, plus lexical ordering.
type keyIndex struct {
	mu      sync.RWMutex
	byKey   map[string]uuid.UUID
	sorted  []string // kept in ascending lexical order
}

func newKeyIndex() *keyIndex {
	return &keyIndex{byKey: make(map[string]uuid.UUID)}
}

// lookup resolves a key to its id. Returns false if absent.
func (x *keyIndex) lookup(key string) (uuid.UUID, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	id, ok := x.byKey[key]
	return id, ok
}

// insert installs key -> id. The caller must have already verified
// key's absence (Insert's uniqueness check) or intends to overwrite.
func (x *keyIndex) insert(key string, id uuid.UUID) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, exists := x.byKey[key]; !exists {
		pos := sort.SearchStrings(x.sorted, key)
		x.sorted = append(x.sorted, "")
		copy(x.sorted[pos+1:], x.sorted[pos:])
		x.sorted[pos] = key
	}
	x.byKey[key] = id
}

// insertIfAbsent installs key -> id only if key is not already present,
// atomically with the presence check. This is what makes Insert's
// uniqueness guarantee (§4.1) race-free under concurrent callers.
func (x *keyIndex) insertIfAbsent(key string, id uuid.UUID) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, exists := x.byKey[key]; exists {
		return false
	}
	pos := sort.SearchStrings(x.sorted, key)
	x.sorted = append(x.sorted, "")
	copy(x.sorted[pos+1:], x.sorted[pos:])
	x.sorted[pos] = key
	x.byKey[key] = id
	return true
}

// remove deletes key from the index.
func (x *keyIndex) remove(key string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, exists := x.byKey[key]; !exists {
		return
	}
	delete(x.byKey, key)
	pos := sort.SearchStrings(x.sorted, key)
	if pos < len(x.sorted) && x.sorted[pos] == key {
		x.sorted = append(x.sorted[:pos], x.sorted[pos+1:]...)
	}
}

// orderedIDs returns the ids in ascending or descending lexical order
// of their keys, resolved under a single lock so a concurrent key
// removal cannot be observed as a separate ordered()+lookup() race.
func (x *keyIndex) orderedIDs(desc bool) []uuid.UUID {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]uuid.UUID, len(x.sorted))
	for i, k := range x.sorted {
		out[i] = x.byKey[k]
	}
	if desc {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

func (x *keyIndex) len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.sorted)
}

// timeEntry is one (instant, id) pair in a timeIndex.
type timeEntry struct {
	ts int64
	id uuid.UUID
}

// timeIndex is an ordered multimap over nanosecond instants, used for
// by_created_at, by_updated_at and by_delete_at. Multiple records can
// legitimately share a nanosecond timestamp, so entries are a sorted
// slice rather than a map.
type timeIndex struct {
	mu      sync.RWMutex
	entries []timeEntry
}

func newTimeIndex() *timeIndex {
	return &timeIndex{}
}

// insert adds (ts, id), keeping entries sorted by ts. Ties are broken
// by insertion order (stable append within the equal-ts run).
func (x *timeIndex) insert(ts int64, id uuid.UUID) {
	x.mu.Lock()
	defer x.mu.Unlock()
	pos := sort.Search(len(x.entries), func(i int) bool { return x.entries[i].ts > ts })
	x.entries = append(x.entries, timeEntry{})
	copy(x.entries[pos+1:], x.entries[pos:])
	x.entries[pos] = timeEntry{ts: ts, id: id}
}

// remove deletes the (ts, id) pair. No-op if absent.
func (x *timeIndex) remove(ts int64, id uuid.UUID) {
	x.mu.Lock()
	defer x.mu.Unlock()
	lo := sort.Search(len(x.entries), func(i int) bool { return x.entries[i].ts >= ts })
	for i := lo; i < len(x.entries) && x.entries[i].ts == ts; i++ {
		if x.entries[i].id == id {
			x.entries = append(x.entries[:i], x.entries[i+1:]...)
			return
		}
	}
}

// idsBefore returns, without mutating the index, every id whose
// instant is strictly less than the given nanosecond cutoff. GC (§4.1)
// takes this snapshot under a read section, releases it, then deletes
// each id individually through DeleteByID so a record present in two
// indexes only briefly (the CSI window, §5) is never force-removed
// from one structure alone.
func (x *timeIndex) idsBefore(cutoff int64) []uuid.UUID {
	x.mu.RLock()
	defer x.mu.RUnlock()
	split := sort.Search(len(x.entries), func(i int) bool { return x.entries[i].ts >= cutoff })
	out := make([]uuid.UUID, split)
	for i := 0; i < split; i++ {
		out[i] = x.entries[i].id
	}
	return out
}

// ordered returns a copy of the ids in ascending or descending
// timestamp order.
func (x *timeIndex) ordered(desc bool) []uuid.UUID {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]uuid.UUID, len(x.entries))
	if desc {
		for i, e := range x.entries {
			out[len(x.entries)-1-i] = e.id
		}
	} else {
		for i, e := range x.entries {
			out[i] = e.id
		}
	}
	return out
}

func (x *timeIndex) len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// snapshotEntries and loadEntries support the save/restore codec
// (snapshot.go), which needs the raw sorted pairs rather than just ids.
func (x *timeIndex) snapshotEntries() []timeEntry {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]timeEntry, len(x.entries))
	copy(out, x.entries)
	return out
}

func (x *timeIndex) loadEntries(entries []timeEntry) {
	x.mu.Lock()
	defer x.mu.Unlock()
	sorted := make([]timeEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ts < sorted[j].ts })
	x.entries = sorted
}

func (x *keyIndex) snapshotMap() map[string]uuid.UUID {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make(map[string]uuid.UUID, len(x.byKey))
	for k, v := range x.byKey {
		out[k] = v
	}
	return out
}

func (x *keyIndex) loadMap(m map[string]uuid.UUID) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.byKey = make(map[string]uuid.UUID, len(m))
	x.sorted = make([]string, 0, len(m))
	for k := range m {
		x.sorted = append(x.sorted, k)
	}
	sort.Strings(x.sorted)
	for k, v := range m {
		x.byKey[k] = v
	}
}
