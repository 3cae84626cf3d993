// Store: the public engine. CRUD, typed mutations, listing, GC and
// snapshot I/O over a concurrent, multi-index, in-memory data set.
//
// Every structure (stats, by_key, the primary map, by_created_at,
// by_delete_at, by_updated_at) is guarded independently. Mutators
// acquire guards in the canonical order above and release in reverse;
// read-only paths drop a guard as soon as it is no longer needed (e.g.
// DeleteByKey releases the key-index guard before entering the id-keyed
// delete path). See index.go for the index implementations themselves.
package alexdb

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sort selects which index List iterates.
type Sort int

const (
	SortKey Sort = iota
	SortCreatedAt
	SortUpdatedAt
)

// Direction selects iteration order.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// ListOptions configures List. Limit and Page are pointers so the
// "both default to 10/1 only if either is set" rule (§4.1) can be
// applied precisely: a nil Limit and nil Page together mean "no
// pagination at all".
type ListOptions struct {
	Sort      Sort
	Direction Direction
	Limit     *int
	Page      *int
}

// Store is the embedded database engine.
type Store struct {
	config Config
	logger *zap.Logger

	stats  statsGuard
	access *accessGate

	byKey       *keyIndex
	byCreatedAt *timeIndex
	byUpdatedAt *timeIndex
	byDeleteAt  *timeIndex

	mu      sync.RWMutex
	primary map[uuid.UUID]*Record

	dirLock *dirLock
	closed  bool
	closeMu sync.Mutex
}

// New constructs a Store from cfg. It does not restore from disk;
// callers that want a warm start call Restore explicitly (§4.1).
func New(cfg Config, opts ...Option) *Store {
	s := &Store{
		config:      cfg,
		logger:      zap.NewNop(),
		access:      newAccessGate(),
		byKey:       newKeyIndex(),
		byCreatedAt: newTimeIndex(),
		byUpdatedAt: newTimeIndex(),
		byDeleteAt:  newTimeIndex(),
		primary:     make(map[uuid.UUID]*Record),
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.DataDir != "" {
		s.dirLock = newDirLock(cfg.DataDir)
	}
	return s
}

// Stats returns a point-in-time copy of the request/read/write counters.
func (s *Store) Stats() Stats { return s.stats.snapshot() }

// Len returns the number of live records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.primary)
}

// AccessGranted reports whether key is a recognized API key, or
// unconditionally true when API-key security is disabled (§6).
func (s *Store) AccessGranted(key uuid.UUID) bool {
	if !s.config.EnableSecurityAPIKeys {
		return true
	}
	return s.access.exists(key)
}

// InitAPIKey mints the first API key if none exist yet (§4.4).
func (s *Store) InitAPIKey() (uuid.UUID, bool) {
	key, minted := s.access.init()
	if minted {
		s.logger.Info("api key bootstrapped", zap.String("fingerprint", fingerprintID(key)))
	}
	return key, minted
}

// isClosed reports whether Close has already been called.
func (s *Store) isClosed() bool {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	return s.closed
}

// Insert creates a new record under key. Returns ErrKeyExists if key
// is already present, or ErrClosed once Close has been called.
func (s *Store) Insert(key string, value Value, ttl *time.Duration) (Record, error) {
	if s.isClosed() {
		return Record{}, ErrClosed
	}
	s.stats.incRequests()

	id := uuid.New()
	now := time.Now().UTC()
	rec := &Record{
		ID:        id,
		Key:       key,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if ttl != nil {
		at := now.Add(*ttl)
		rec.DeleteAt = &at
	}

	if !s.byKey.insertIfAbsent(key, id) {
		return Record{}, ErrKeyExists
	}

	s.mu.Lock()
	s.primary[id] = rec
	s.mu.Unlock()

	s.byCreatedAt.insert(rec.CreatedAt.UnixNano(), id)
	if rec.DeleteAt != nil {
		s.byDeleteAt.insert(rec.DeleteAt.UnixNano(), id)
	}
	s.byUpdatedAt.insert(rec.UpdatedAt.UnixNano(), id)

	s.stats.incWrites()
	s.logger.Info("insert", zap.String("key_fingerprint", fingerprint(key)))
	return rec.clone(), nil
}

// Upsert replaces the value of an existing record, preserving its id
// and created_at, and recomputing delete_at from ttl (§4.1). Returns
// ErrNotFound if key does not exist, or ErrClosed once Close has been
// called.
func (s *Store) Upsert(key string, value Value, ttl *time.Duration) (Record, error) {
	if s.isClosed() {
		return Record{}, ErrClosed
	}
	s.stats.incRequests()

	id, ok := s.byKey.lookup(key)
	if !ok {
		return Record{}, ErrNotFound
	}

	s.mu.Lock()
	existing, ok := s.primary[id]
	if !ok {
		s.mu.Unlock()
		return Record{}, ErrNotFound
	}
	now := time.Now().UTC()
	updated := &Record{
		ID:        existing.ID,
		Key:       key,
		Value:     value,
		CreatedAt: existing.CreatedAt,
		UpdatedAt: now,
	}
	if ttl != nil {
		at := now.Add(*ttl)
		updated.DeleteAt = &at
	}
	oldDeleteAt := existing.DeleteAt
	oldUpdatedAt := existing.UpdatedAt
	s.primary[id] = updated
	s.mu.Unlock()

	if oldDeleteAt != nil {
		s.byDeleteAt.remove(oldDeleteAt.UnixNano(), id)
	}
	if updated.DeleteAt != nil {
		s.byDeleteAt.insert(updated.DeleteAt.UnixNano(), id)
	}
	s.byUpdatedAt.remove(oldUpdatedAt.UnixNano(), id)
	s.byUpdatedAt.insert(updated.UpdatedAt.UnixNano(), id)

	s.stats.incWrites()
	s.logger.Info("upsert", zap.String("key_fingerprint", fingerprint(key)))
	return updated.clone(), nil
}

// SelectByKey looks up a record by key, bumping reads on a hit.
func (s *Store) SelectByKey(key string) (Record, bool) {
	s.stats.incRequests()

	id, ok := s.byKey.lookup(key)
	if !ok {
		return Record{}, false
	}

	s.mu.RLock()
	rec, ok := s.primary[id]
	s.mu.RUnlock()
	if !ok {
		return Record{}, false
	}

	s.stats.incReads()
	return rec.clone(), true
}

// DeleteByKey resolves key via by_key, releases that guard, then
// deletes by id (§4.2: the key-index read guard is dropped before
// entering the id-keyed delete path).
func (s *Store) DeleteByKey(key string) (Record, bool) {
	s.stats.incRequests()

	id, ok := s.byKey.lookup(key)
	if !ok {
		return Record{}, false
	}

	rec, ok := s.deleteByID(id)
	if ok {
		s.stats.incWrites()
		s.logger.Info("delete", zap.String("key_fingerprint", fingerprint(key)))
	}
	return rec, ok
}

// DeleteByID removes the record with the given id from the primary
// map and every index entry that referenced it.
func (s *Store) DeleteByID(id uuid.UUID) (Record, bool) {
	s.stats.incRequests()
	rec, ok := s.deleteByID(id)
	if ok {
		s.stats.incWrites()
		s.logger.Info("delete", zap.String("id", id.String()))
	}
	return rec, ok
}

// deleteByID performs the actual structural removal without touching
// stats, so both public entry points (DeleteByKey, DeleteByID) count
// exactly one request/write regardless of which one resolved the id.
func (s *Store) deleteByID(id uuid.UUID) (Record, bool) {
	s.mu.Lock()
	rec, ok := s.primary[id]
	if !ok {
		s.mu.Unlock()
		return Record{}, false
	}
	delete(s.primary, id)
	s.mu.Unlock()

	// deleteByID is the sole remover of by_key entries, so the entry
	// for rec.Key must still be there; its absence means the primary
	// map and by_key have drifted apart, not a benign concurrent race.
	if _, ok := s.byKey.lookup(rec.Key); !ok {
		poisoned("by_key missing entry for a record resolved via the primary map")
	}

	s.byKey.remove(rec.Key)
	s.byCreatedAt.remove(rec.CreatedAt.UnixNano(), id)
	if rec.DeleteAt != nil {
		s.byDeleteAt.remove(rec.DeleteAt.UnixNano(), id)
	}
	s.byUpdatedAt.remove(rec.UpdatedAt.UnixNano(), id)

	return rec.clone(), true
}

// mutate is the shared plumbing for every typed mutator (Increment,
// Decrement, Append, Prepend, PopBack, PopFront): resolve key, apply
// fn to the current value, and on success swap the value and bump
// updated_at. fn returns ok=false for a type mismatch, which folds
// into Store's "no change" return per §7 (TypeMismatch is a silent
// no-op, never an error). Returns ErrClosed once Close has been called.
func (s *Store) mutate(key string, fn func(Value) (Value, error, bool)) (Record, error, bool) {
	if s.isClosed() {
		return Record{}, ErrClosed, false
	}
	s.stats.incRequests()

	id, ok := s.byKey.lookup(key)
	if !ok {
		return Record{}, nil, false
	}

	s.mu.Lock()
	existing, ok := s.primary[id]
	if !ok {
		s.mu.Unlock()
		return Record{}, nil, false
	}
	newValue, err, matched := fn(existing.Value)
	if err != nil {
		s.mu.Unlock()
		return Record{}, err, matched
	}
	if !matched {
		s.mu.Unlock()
		return Record{}, nil, false
	}
	now := time.Now().UTC()
	updated := &Record{
		ID:        existing.ID,
		Key:       existing.Key,
		Value:     newValue,
		CreatedAt: existing.CreatedAt,
		UpdatedAt: now,
		DeleteAt:  existing.DeleteAt,
	}
	oldUpdatedAt := existing.UpdatedAt
	s.primary[id] = updated
	s.mu.Unlock()

	s.byUpdatedAt.remove(oldUpdatedAt.UnixNano(), id)
	s.byUpdatedAt.insert(updated.UpdatedAt.UnixNano(), id)

	s.stats.incWrites()
	return updated.clone(), nil, true
}

// Increment adds |amount| (default 1) to an Integer value. A non-
// integer value is a silent no-op (ok=false), not an error.
func (s *Store) Increment(key string, amount *int64) (Record, error, bool) {
	delta := int64(1)
	if amount != nil {
		delta = *amount
	}
	return s.mutate(key, func(v Value) (Value, error, bool) {
		if !v.IsInteger() {
			return Value{}, nil, false
		}
		sum, err := checkedAdd(v.Int, absInt64(delta))
		if err != nil {
			return Value{}, err, true
		}
		return Integer(sum), nil, true
	})
}

// Decrement subtracts |amount| (default 1) from an Integer value.
func (s *Store) Decrement(key string, amount *int64) (Record, error, bool) {
	delta := int64(1)
	if amount != nil {
		delta = *amount
	}
	return s.mutate(key, func(v Value) (Value, error, bool) {
		if !v.IsInteger() {
			return Value{}, nil, false
		}
		diff, err := checkedSub(v.Int, absInt64(delta))
		if err != nil {
			return Value{}, err, true
		}
		return Integer(diff), nil, true
	})
}

// Append concatenates onto the tail: Array+Array or String+String.
// Any other combination is a silent no-op.
func (s *Store) Append(key string, arg Value) (Record, error, bool) {
	return s.mutate(key, func(v Value) (Value, error, bool) {
		return concat(v, arg, true)
	})
}

// Prepend concatenates onto the head: Array+Array or String+String.
func (s *Store) Prepend(key string, arg Value) (Record, error, bool) {
	return s.mutate(key, func(v Value) (Value, error, bool) {
		return concat(v, arg, false)
	})
}

func concat(existing, arg Value, tail bool) (Value, error, bool) {
	switch {
	case existing.IsArray() && arg.IsArray():
		out := make([]Value, 0, len(existing.Array)+len(arg.Array))
		if tail {
			out = append(out, existing.Array...)
			out = append(out, arg.Array...)
		} else {
			out = append(out, arg.Array...)
			out = append(out, existing.Array...)
		}
		return Value{Kind: KindArray, Array: out}, nil, true
	case existing.IsString() && arg.IsString():
		if tail {
			return String(existing.Str + arg.Str), nil, true
		}
		return String(arg.Str + existing.Str), nil, true
	default:
		return Value{}, nil, false
	}
}

// PopBack removes up to n (default 1) elements from the tail of an
// Array value and returns them, in their original array order, as a
// new Array.
// An empty source array, or one that becomes empty, is left in place
// rather than deleting the record (§4.1).
func (s *Store) PopBack(key string, n *int) (Record, Value, error, bool) {
	return s.pop(key, n, true)
}

// PopFront is the head-end counterpart of PopBack.
func (s *Store) PopFront(key string, n *int) (Record, Value, error, bool) {
	return s.pop(key, n, false)
}

func (s *Store) pop(key string, n *int, back bool) (Record, Value, error, bool) {
	count := 1
	if n != nil {
		count = *n
	}
	var popped Value
	rec, err, ok := s.mutate(key, func(v Value) (Value, error, bool) {
		if !v.IsArray() {
			return Value{}, nil, false
		}
		take := count
		if take > len(v.Array) {
			take = len(v.Array)
		}
		if take < 0 {
			take = 0
		}
		var poppedItems []Value
		var remaining []Value
		if back {
			split := len(v.Array) - take
			remaining = append([]Value{}, v.Array[:split]...)
			poppedItems = append([]Value{}, v.Array[split:]...)
		} else {
			remaining = append([]Value{}, v.Array[take:]...)
			poppedItems = append([]Value{}, v.Array[:take]...)
		}
		popped = Value{Kind: KindArray, Array: poppedItems}
		return Value{Kind: KindArray, Array: remaining}, nil, true
	})
	if !ok || err != nil {
		return Record{}, Value{}, err, false
	}
	return rec, popped, nil, true
}

// List returns records from the selected index, in the selected
// direction, paginated per opts (§4.1).
func (s *Store) List(opts ListOptions) []Record {
	s.stats.incRequests()

	var ids []uuid.UUID
	switch opts.Sort {
	case SortKey:
		ids = s.byKey.orderedIDs(opts.Direction == Desc)
	case SortCreatedAt:
		ids = s.byCreatedAt.ordered(opts.Direction == Desc)
	case SortUpdatedAt:
		ids = s.byUpdatedAt.ordered(opts.Direction == Desc)
	}

	if opts.Limit != nil || opts.Page != nil {
		limit := 10
		page := 1
		if opts.Limit != nil {
			limit = *opts.Limit
		}
		if opts.Page != nil {
			page = *opts.Page
		}
		skip := (page - 1) * limit
		if skip < 0 {
			skip = 0
		}
		if skip >= len(ids) {
			ids = nil
		} else {
			end := skip + limit
			if end > len(ids) || limit < 0 {
				end = len(ids)
			}
			ids = ids[skip:end]
		}
	}

	out := make([]Record, 0, len(ids))
	s.mu.RLock()
	for _, id := range ids {
		if rec, ok := s.primary[id]; ok {
			out = append(out, rec.clone())
		}
		// A missing primary-map entry for an id observed in an index
		// means a concurrent delete won the race; skip it (§5).
	}
	s.mu.RUnlock()

	s.stats.incReads()
	return out
}

// GC deletes every record whose delete_at has passed. It snapshots
// by_delete_at under a read section, releases it, then deletes each id
// individually through DeleteByID (§4.1).
func (s *Store) GC() int {
	cutoff := time.Now().UTC().UnixNano()
	ids := s.byDeleteAt.idsBefore(cutoff)

	deleted := 0
	for _, id := range ids {
		if _, ok := s.DeleteByID(id); ok {
			deleted++
		}
	}
	if deleted > 0 {
		s.logger.Info("gc", zap.Int("deleted", deleted))
	}
	return deleted
}

// Close marks the store closed. Afterwards Insert, Upsert and the typed
// mutators return ErrClosed; SelectByKey, DeleteByKey, DeleteByID,
// List, GC, Save and Restore do not check the closed flag. No data
// directory lock is held between Save/Restore calls, so Close has none
// to release. A second Close is a no-op.
func (s *Store) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.dirLock != nil {
		return s.dirLock.close()
	}
	return nil
}

func checkedAdd(a, b int64) (int64, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, fmt.Errorf("%w: %d + %d", ErrOverflow, a, b)
	}
	if b < 0 && a < math.MinInt64-b {
		return 0, fmt.Errorf("%w: %d + %d", ErrOverflow, a, b)
	}
	return a + b, nil
}

func checkedSub(a, b int64) (int64, error) {
	if b < 0 && a > math.MaxInt64+b {
		return 0, fmt.Errorf("%w: %d - %d", ErrOverflow, a, b)
	}
	if b > 0 && a < math.MinInt64+b {
		return 0, fmt.Errorf("%w: %d - %d", ErrOverflow, a, b)
	}
	return a - b, nil
}

// absInt64 returns |n|, saturating at math.MaxInt64 for math.MinInt64
// (whose true magnitude doesn't fit in an int64) rather than silently
// wrapping to a negative number.
func absInt64(n int64) int64 {
	if n == math.MinInt64 {
		return math.MaxInt64
	}
	if n < 0 {
		return -n
	}
	return n
}
