package alexdb

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New(Config{DataDir: dir, SaveTriggeredByThreshold: 1})

	ttl := time.Hour
	s.Insert("a", Integer(1), nil)
	s.Insert("b", String("hello"), &ttl)
	s.Insert("c", NewArray(Integer(1), Integer(2)), nil)

	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	restored := New(Config{DataDir: dir})
	if err := restored.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if restored.Len() != 3 {
		t.Fatalf("Len after restore = %d, want 3", restored.Len())
	}

	got, ok := restored.SelectByKey("b")
	if !ok {
		t.Fatal("restored store should contain key b")
	}
	if got.Value.Str != "hello" {
		t.Fatalf("restored value = %+v, want hello", got.Value)
	}
	if got.DeleteAt == nil {
		t.Fatal("restored record should retain its delete_at")
	}
}

func TestRestoreMissingDirectoryIsNoop(t *testing.T) {
	s := New(Config{DataDir: filepath.Join(t.TempDir(), "does-not-exist")})
	if err := s.Restore(); err != nil {
		t.Fatalf("Restore on a cold start should not error, got %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d, want 0 on a cold start", s.Len())
	}
}

func TestRestoreEmptyDataDirIsNoop(t *testing.T) {
	s := New(Config{})
	if err := s.Restore(); err != nil {
		t.Fatalf("Restore with an empty DataDir should be a no-op, got %v", err)
	}
}

func TestRestoreDetectsCorruptedFile(t *testing.T) {
	dir := t.TempDir()
	s := New(Config{DataDir: dir, SaveTriggeredByThreshold: 1})
	s.Insert("a", Integer(1), nil)
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	path := filepath.Join(dir, fileValues)
	if err := os.WriteFile(path, []byte("not a valid snapshot envelope"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	restored := New(Config{DataDir: dir})
	err := restored.Restore()
	if !errors.Is(err, ErrSnapshotCorrupt) {
		t.Fatalf("expected ErrSnapshotCorrupt, got %v", err)
	}
}

func TestFrameUnframeRoundTrip(t *testing.T) {
	data := []byte(`{"hello":"world"}`)
	framed := frame(data)

	back, err := unframe(framed)
	if err != nil {
		t.Fatalf("unframe: %v", err)
	}
	if string(back) != string(data) {
		t.Fatalf("unframe = %q, want %q", back, data)
	}
}

func TestUnframeDetectsChecksumMismatch(t *testing.T) {
	framed := frame([]byte("payload"))
	framed[len(framed)-1] ^= 0xFF // flip a bit in the checksum trailer

	_, err := unframe(framed)
	if !errors.Is(err, ErrSnapshotCorrupt) {
		t.Fatalf("expected ErrSnapshotCorrupt, got %v", err)
	}
}

func TestUnframeDetectsTruncatedEnvelope(t *testing.T) {
	_, err := unframe([]byte{1, 2, 3})
	if !errors.Is(err, ErrSnapshotCorrupt) {
		t.Fatalf("expected ErrSnapshotCorrupt, got %v", err)
	}
}
