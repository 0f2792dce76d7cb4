package loopback

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/aaron777collins/haos-rtc/internal/adapters/olmbox"
	"github.com/aaron777collins/haos-rtc/internal/app"
	"github.com/aaron777collins/haos-rtc/internal/app/bus"
	"github.com/aaron777collins/haos-rtc/internal/core"
	"github.com/aaron777collins/haos-rtc/internal/domain"
)

// End to end: a full call lifecycle over the in-process hub, with real
// envelope crypto on both ends.
func TestKeyReachesRemoteDevice(t *testing.T) {
	hub := NewHub("@alice:example", "ALICE1")
	hub.AdvertiseFocus(domain.FocusConfig{Kind: domain.FocusKindSFU, ServiceURL: "wss://sfu.test"})
	hub.AddRoom("!abc")

	aliceBox, err := olmbox.New()
	if err != nil {
		t.Fatal(err)
	}
	bobBox, err := olmbox.New()
	if err != nil {
		t.Fatal(err)
	}
	if err := aliceBox.RegisterDevice("@bob:example", "BOB1", bobBox.PublicKey()); err != nil {
		t.Fatal(err)
	}

	var (
		mu       sync.Mutex
		received []domain.KeyTransportMessage
	)
	hub.RegisterDevice("@bob:example", "BOB1", func(eventType string, env core.Envelope) {
		if eventType != domain.KeyTransportEventType {
			return
		}
		plaintext, err := bobBox.Decrypt(context.Background(), env)
		if err != nil {
			t.Errorf("bob cannot open envelope: %v", err)
			return
		}
		var msg domain.KeyTransportMessage
		if err := json.Unmarshal(plaintext, &msg); err != nil {
			t.Errorf("bad transport message: %v", err)
			return
		}
		mu.Lock()
		received = append(received, msg)
		mu.Unlock()
	})

	manager := app.NewManager(app.Deps{
		Client:           hub,
		WellKnown:        hub,
		Directory:        hub,
		Sender:           hub,
		Crypto:           aliceBox,
		Bus:              bus.New(),
		RotationInterval: time.Hour,
	})
	ctx := context.Background()

	if _, err := manager.CreateSession(ctx, "!abc", domain.FocusConfig{}); err != nil {
		t.Fatal(err)
	}
	if err := manager.JoinSession(ctx, "!abc"); err != nil {
		t.Fatal(err)
	}

	// Bob joins the call; the triggered rotation must reach his device.
	manager.OnMembershipChange(ctx, "!abc", []domain.Membership{
		{UserID: "@bob:example", DeviceID: "BOB1"},
	})

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("bob received %d key messages, want 1", len(received))
	}
	msg := received[0]
	if msg.RoomID != "!abc" || msg.Algorithm != domain.KeyAlgorithm {
		t.Fatalf("unexpected transport message %+v", msg)
	}
	key, err := msg.KeyBytes()
	if err != nil {
		t.Fatal(err)
	}
	if len(key) != domain.KeySize {
		t.Fatalf("key length %d, want %d", len(key), domain.KeySize)
	}

	currentID, _, ok := manager.CurrentKey("!abc")
	if !ok || currentID != msg.KeyID {
		t.Fatalf("alice's current key %q, bob got %q", currentID, msg.KeyID)
	}
}
