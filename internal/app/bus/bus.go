// Package bus is the typed publish/subscribe surface for lifecycle and
// error events. Room-scoped subscriptions are dropped deterministically
// when a session is destroyed, so handlers for a dead room cannot fire.
package bus

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/aaron777collins/haos-rtc/internal/domain"
)

// Handler receives one event. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(domain.Event)

type subscription struct {
	id     uint64
	roomID domain.RoomID // empty = any room
	types  map[domain.EventType]struct{}
	fn     Handler
}

func (s *subscription) matches(ev domain.Event) bool {
	if s.roomID != "" && s.roomID != ev.RoomID {
		return false
	}
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[ev.Type]
	return ok
}

type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*subscription
}

func New() *Bus {
	return &Bus{subs: make(map[uint64]*subscription)}
}

// Subscribe registers a handler for the given event types (all types if
// none given). The returned func removes the subscription.
func (b *Bus) Subscribe(fn Handler, types ...domain.EventType) (cancel func()) {
	return b.add("", fn, types)
}

// SubscribeRoom is Subscribe restricted to one room's events.
func (b *Bus) SubscribeRoom(roomID domain.RoomID, fn Handler, types ...domain.EventType) (cancel func()) {
	return b.add(roomID, fn, types)
}

func (b *Bus) add(roomID domain.RoomID, fn Handler, types []domain.EventType) func() {
	sub := &subscription{roomID: roomID, fn: fn}
	if len(types) > 0 {
		sub.types = make(map[domain.EventType]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}
	b.mu.Lock()
	b.nextID++
	sub.id = b.nextID
	b.subs[sub.id] = sub
	b.mu.Unlock()

	id := sub.id
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish fans the event out to every matching subscription.
func (b *Bus) Publish(ev domain.Event) {
	b.mu.RLock()
	matched := make([]Handler, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.matches(ev) {
			matched = append(matched, sub.fn)
		}
	}
	b.mu.RUnlock()

	log.Debug().Str("module", "app.bus").Str("event", string(ev.Type)).Str("room", string(ev.RoomID)).Int("handlers", len(matched)).Msg("publish")
	for _, fn := range matched {
		fn(ev)
	}
}

// DropRoom removes every subscription scoped to the room. Global
// subscriptions are untouched.
func (b *Bus) DropRoom(roomID domain.RoomID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subs {
		if sub.roomID == roomID {
			delete(b.subs, id)
		}
	}
}
