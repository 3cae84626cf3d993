// OS-level file locking for cross-process coordination during Save.
//
// fileLock wraps flock(2) / LockFileEx with a mutex that guards the file
// handle's lifetime, exactly as folio's original fileLock does for its
// single database file. dirLock adapts it to a sentinel ".lock" file
// inside Config.DataDir, so two processes pointed at the same data
// directory cannot interleave Save's six sequential file writes.
package alexdb

import (
	"os"
	"path/filepath"
	"sync"
)

// LockMode selects shared (read) or exclusive (write) locking.
type LockMode int

const (
	LockShared LockMode = iota
	LockExclusive
)

// fileLock coordinates OS-level file locks with safe handle teardown.
// The mu field serialises flock syscalls against setFile so that a
// concurrent Close cannot invalidate the fd mid-syscall.
type fileLock struct {
	mu sync.Mutex
	f  *os.File
}

// Lock acquires a shared or exclusive flock. Returns nil immediately
// if the handle has been cleared via setFile(nil).
func (l *fileLock) Lock(mode LockMode) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	return l.lock(mode)
}

// Unlock releases the flock. Returns nil immediately if the handle
// has been cleared via setFile(nil).
func (l *fileLock) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	return l.unlock()
}

// setFile swaps the underlying file handle. Passing nil drains any
// in-flight flock (blocks until the mutex is available) and disables
// further locking.
func (l *fileLock) setFile(f *os.File) {
	l.mu.Lock()
	l.f = f
	l.mu.Unlock()
}

// dirLock guards Config.DataDir against concurrent Save/Restore from
// another OS process via a ".lock" sentinel file. Each withLock call
// opens, locks, and closes the sentinel independently, so the lock
// cannot outlive a single Save/Restore pass.
type dirLock struct {
	path string
	mu   sync.Mutex
}

func newDirLock(dataDir string) *dirLock {
	return &dirLock{path: filepath.Join(dataDir, ".lock")}
}

// withLock opens (creating if needed) the sentinel file, takes a flock
// of the given mode (shared or exclusive) for the duration of fn, and
// releases it afterward.
func (d *dirLock) withLock(mode LockMode, fn func() error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(d.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	fl := &fileLock{f: f}
	if err := fl.Lock(mode); err != nil {
		f.Close()
		return ErrLocked
	}
	defer func() {
		fl.Unlock()
		fl.setFile(nil)
		f.Close()
	}()

	return fn()
}

// close is a no-op: withLock never holds the sentinel open between
// calls, so there is nothing for Store.Close to release. It exists so
// Store.Close has a stable place to call into if that changes.
func (d *dirLock) close() error { return nil }
