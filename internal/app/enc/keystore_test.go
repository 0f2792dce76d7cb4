package enc

import (
	"bytes"
	"testing"
)

func TestAppendAdvancesLatest(t *testing.T) {
	s := NewStore()
	s.Append("01A", []byte{1})
	s.Append("01B", []byte{2})

	id, key, ok := s.Current()
	if !ok || id != "01B" || !bytes.Equal(key, []byte{2}) {
		t.Fatalf("Current() = %q %v %v, want latest minted key", id, key, ok)
	}
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
}

func TestIngestDuplicateDropped(t *testing.T) {
	s := NewStore()
	if !s.Ingest("01A", []byte{1}) {
		t.Fatal("first ingest rejected")
	}
	if s.Ingest("01A", []byte{9}) {
		t.Fatal("duplicate ingest accepted")
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 entry after duplicate delivery", s.Len())
	}
}

func TestIngestOlderKeyDoesNotMoveLatest(t *testing.T) {
	s := NewStore()
	s.Append("01B", []byte{2})
	s.Ingest("01A", []byte{1})

	id, _, _ := s.Current()
	if id != "01B" {
		t.Fatalf("Current() = %q, want 01B after ingesting older key", id)
	}
}

func TestIngestNewerKeyMovesLatest(t *testing.T) {
	s := NewStore()
	s.Append("01A", []byte{1})
	s.Ingest("01C", []byte{3})

	id, key, _ := s.Current()
	if id != "01C" || !bytes.Equal(key, []byte{3}) {
		t.Fatalf("Current() = %q %v, want newer ingested key", id, key)
	}
}

func TestStoreOwnsKeyMaterial(t *testing.T) {
	s := NewStore()
	minted := []byte{1, 2, 3, 4}
	s.Append("01A", minted)

	// Mutating the caller's slice must not reach the stored key.
	minted[0] = 99
	_, key, _ := s.Current()
	if !bytes.Equal(key, []byte{1, 2, 3, 4}) {
		t.Fatalf("stored key %v aliased the caller's buffer", key)
	}

	// Mutating a handed-out key must not reach the store either.
	key[0] = 99
	_, again, _ := s.Current()
	if !bytes.Equal(again, []byte{1, 2, 3, 4}) {
		t.Fatalf("stored key %v aliased a handed-out copy", again)
	}
}

func TestClearLeavesHandedOutKeysIntact(t *testing.T) {
	s := NewStore()
	s.Append("01A", []byte{1, 2, 3, 4})
	_, key, _ := s.Current()

	s.Clear()
	if !bytes.Equal(key, []byte{1, 2, 3, 4}) {
		t.Fatalf("key %v was wiped in place while still held by a reader", key)
	}
}

func TestClearWipesEverything(t *testing.T) {
	s := NewStore()
	s.Append("01A", []byte{1, 2, 3})
	s.Clear()

	if s.Len() != 0 {
		t.Fatalf("Len() = %d after Clear, want 0", s.Len())
	}
	if _, _, ok := s.Current(); ok {
		t.Fatal("Current() still returns a key after Clear")
	}
}
