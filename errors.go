// Package alexdb is an embedded, in-memory key/value store with typed
// values, secondary-sorted indexes, per-entry TTL, and periodic
// compressed snapshots to disk.
//
// The store is a programmatic core only: request parsing, API-key
// authentication headers, and transport concerns are left to callers.
package alexdb

import "errors"

// Sentinel errors returned by store operations.
var (
	// ErrKeyExists is returned by Insert when the key is already present.
	ErrKeyExists = errors.New("alexdb: key already exists")

	// ErrNotFound is returned by Upsert when the key does not exist. The
	// typed mutators (Increment, Append, PopBack, ...) report a missing
	// key as ok=false with a nil error instead.
	ErrNotFound = errors.New("alexdb: key not found")

	// ErrOverflow is returned by Increment/Decrement when the result
	// would exceed the signed 64-bit range.
	ErrOverflow = errors.New("alexdb: arithmetic overflow")

	// ErrClosed is returned by Insert, Upsert and the typed mutators once
	// the store has been closed.
	ErrClosed = errors.New("alexdb: store is closed")

	// ErrSnapshotCorrupt is returned by Restore when a snapshot file
	// fails its checksum, fails to decompress, or fails to deserialize.
	ErrSnapshotCorrupt = errors.New("alexdb: snapshot corrupt")

	// ErrLocked is returned when a cross-process data directory lock
	// cannot be acquired.
	ErrLocked = errors.New("alexdb: data directory locked by another process")
)

// poisoned panics to signal a guard found in a state the caller's
// invariants say is unreachable. The spec's "PoisonedLock" error is
// fatal by design; Go mutexes cannot poison, so unreachable states are
// surfaced as a panic instead of a silently wrong answer.
func poisoned(what string) {
	panic("alexdb: invariant violated: " + what)
}
