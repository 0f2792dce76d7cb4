// Package enc holds the per-room media-encryption state: the key
// material store, the rotation engine and the key distribution channel.
package enc

import (
	"sync"

	"github.com/aaron777collins/haos-rtc/internal/domain"
)

// Store is one room's ordered key collection. Append-only while the
// session lives, cleared as a whole on teardown.
//
// The "current" key is tracked by an explicit latest pointer, never by
// map iteration order. Key IDs are ULIDs, so lexicographic order is
// recency order; an ingested key only becomes current if it sorts after
// the pointer.
//
// Key bytes never leave the store by reference: Append and Ingest copy
// on the way in, Current copies on the way out. Clear therefore only
// wipes memory the store exclusively owns, even with a distribution
// still in flight.
type Store struct {
	mu     sync.RWMutex
	order  []domain.KeyID
	keys   map[domain.KeyID][]byte
	latest domain.KeyID
}

func NewStore() *Store {
	return &Store{keys: make(map[domain.KeyID][]byte)}
}

// Append records a locally minted key and makes it current.
func (s *Store) Append(id domain.KeyID, key []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[id]; ok {
		return
	}
	s.keys[id] = cloneKey(key)
	s.order = append(s.order, id)
	s.latest = id
}

// Ingest records a key received from a remote participant. Duplicate
// (id) deliveries are dropped; the latest pointer only advances if the
// ingested id is newer than the current one. Reports whether the key
// was stored.
func (s *Store) Ingest(id domain.KeyID, key []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[id]; ok {
		return false
	}
	s.keys[id] = cloneKey(key)
	s.order = append(s.order, id)
	if id > s.latest {
		s.latest = id
	}
	return true
}

// Current returns the most recent key, minted or ingested.
func (s *Store) Current() (domain.KeyID, []byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == "" {
		return "", nil, false
	}
	return s.latest, cloneKey(s.keys[s.latest]), true
}

// Has reports whether a key id is already present.
func (s *Store) Has(id domain.KeyID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keys[id]
	return ok
}

// Len reports the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// KeyIDs returns the ids in insertion order.
func (s *Store) KeyIDs() []domain.KeyID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.KeyID, len(s.order))
	copy(out, s.order)
	return out
}

// Clear wipes all key material. Used on session teardown only.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, key := range s.keys {
		for i := range key {
			key[i] = 0
		}
		delete(s.keys, id)
	}
	s.order = nil
	s.latest = ""
}

func cloneKey(key []byte) []byte {
	out := make([]byte, len(key))
	copy(out, key)
	return out
}
