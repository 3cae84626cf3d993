package alexdb

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileLockLockUnlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentinel")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	fl := &fileLock{f: f}
	if err := fl.Lock(LockExclusive); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := fl.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
}

func TestFileLockSetFileNilDisablesLocking(t *testing.T) {
	fl := &fileLock{}
	fl.setFile(nil)

	if err := fl.Lock(LockExclusive); err != nil {
		t.Fatalf("Lock on a cleared handle should be a no-op, got %v", err)
	}
	if err := fl.Unlock(); err != nil {
		t.Fatalf("Unlock on a cleared handle should be a no-op, got %v", err)
	}
}

func TestDirLockWithLockRunsFn(t *testing.T) {
	dl := newDirLock(t.TempDir())

	called := false
	err := dl.withLock(LockExclusive, func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("withLock: %v", err)
	}
	if !called {
		t.Fatal("withLock should invoke fn")
	}
}

func TestDirLockWithLockCreatesSentinel(t *testing.T) {
	dir := t.TempDir()
	dl := newDirLock(dir)

	if err := dl.withLock(LockShared, func() error { return nil }); err != nil {
		t.Fatalf("withLock: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, ".lock")); err != nil {
		t.Fatalf("sentinel file should exist: %v", err)
	}
}

func TestDirLockWithLockIsSequential(t *testing.T) {
	dl := newDirLock(t.TempDir())

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		err := dl.withLock(LockExclusive, func() error {
			order = append(order, i)
			return nil
		})
		if err != nil {
			t.Fatalf("withLock[%d]: %v", i, err)
		}
	}

	for i, v := range order {
		if v != i {
			t.Fatalf("withLock calls ran out of order: %v", order)
		}
	}
}

func TestDirLockWithLockPropagatesFnError(t *testing.T) {
	dl := newDirLock(t.TempDir())

	sentinel := ErrNotFound
	err := dl.withLock(LockExclusive, func() error { return sentinel })
	if err != sentinel {
		t.Fatalf("withLock should propagate fn's error, got %v", err)
	}
}
