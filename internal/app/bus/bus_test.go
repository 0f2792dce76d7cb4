package bus

import (
	"testing"

	"github.com/aaron777collins/haos-rtc/internal/domain"
)

func TestSubscribeFiltersByType(t *testing.T) {
	b := New()
	var got []domain.EventType
	b.Subscribe(func(ev domain.Event) {
		got = append(got, ev.Type)
	}, domain.EventSessionJoined)

	b.Publish(domain.Event{Type: domain.EventSessionCreated, RoomID: "!a"})
	b.Publish(domain.Event{Type: domain.EventSessionJoined, RoomID: "!a"})

	if len(got) != 1 || got[0] != domain.EventSessionJoined {
		t.Fatalf("got %v, want only session.joined", got)
	}
}

func TestSubscribeAllTypes(t *testing.T) {
	b := New()
	n := 0
	b.Subscribe(func(domain.Event) { n++ })

	b.Publish(domain.Event{Type: domain.EventSessionCreated, RoomID: "!a"})
	b.Publish(domain.Event{Type: domain.EventError, RoomID: "!b"})

	if n != 2 {
		t.Fatalf("got %d events, want 2", n)
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	b := New()
	n := 0
	cancel := b.Subscribe(func(domain.Event) { n++ })

	b.Publish(domain.Event{Type: domain.EventSessionCreated})
	cancel()
	b.Publish(domain.Event{Type: domain.EventSessionCreated})

	if n != 1 {
		t.Fatalf("got %d events after cancel, want 1", n)
	}
}

func TestRoomScopedSubscription(t *testing.T) {
	b := New()
	n := 0
	b.SubscribeRoom("!a", func(domain.Event) { n++ })

	b.Publish(domain.Event{Type: domain.EventSessionJoined, RoomID: "!a"})
	b.Publish(domain.Event{Type: domain.EventSessionJoined, RoomID: "!b"})

	if n != 1 {
		t.Fatalf("got %d events, want 1 for room !a", n)
	}
}

func TestDropRoomRemovesOnlyRoomSubs(t *testing.T) {
	b := New()
	roomEvents, globalEvents := 0, 0
	b.SubscribeRoom("!a", func(domain.Event) { roomEvents++ })
	b.Subscribe(func(domain.Event) { globalEvents++ })

	b.DropRoom("!a")
	b.Publish(domain.Event{Type: domain.EventSessionDestroyed, RoomID: "!a"})

	if roomEvents != 0 {
		t.Fatalf("room-scoped handler fired %d times after DropRoom", roomEvents)
	}
	if globalEvents != 1 {
		t.Fatalf("global handler fired %d times, want 1", globalEvents)
	}
}
