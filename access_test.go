package alexdb

import (
	"testing"

	"github.com/google/uuid"
)

func TestAccessGateInitBootstrapsOnce(t *testing.T) {
	g := newAccessGate()

	key, minted := g.init()
	if !minted {
		t.Fatal("first init should mint a key")
	}
	if !g.exists(key) {
		t.Fatal("minted key should exist in the gate")
	}

	_, minted = g.init()
	if minted {
		t.Fatal("second init should not mint another key")
	}
}

func TestAccessGateExists(t *testing.T) {
	g := newAccessGate()
	unknown := uuid.New()
	if g.exists(unknown) {
		t.Fatal("unknown key should not exist")
	}
}

func TestAccessGateReplace(t *testing.T) {
	g := newAccessGate()
	key, _ := g.init()

	replacement := []uuid.UUID{uuid.New(), uuid.New()}
	g.replace(replacement)

	if g.exists(key) {
		t.Fatal("replace should discard prior keys")
	}
	for _, k := range replacement {
		if !g.exists(k) {
			t.Fatalf("replace should install %v", k)
		}
	}
}

func TestAccessGateSnapshotKeys(t *testing.T) {
	g := newAccessGate()
	key, _ := g.init()

	keys := g.snapshotKeys()
	if len(keys) != 1 || keys[0] != key {
		t.Fatalf("snapshotKeys = %v, want [%v]", keys, key)
	}
}
