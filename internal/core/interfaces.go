// Package core declares the capabilities the session layer consumes.
// Implementations live in adapters; the app packages only see these.
package core

import (
	"context"

	"github.com/aaron777collins/haos-rtc/internal/domain"
)

// Envelope is the per-device encrypted wrapper around a key transport
// message. Opaque to everything except the DeviceCrypto that built it.
type Envelope struct {
	Algorithm  string `json:"algorithm"`
	SenderKey  string `json:"sender_key"`
	Ciphertext []byte `json:"ciphertext"`
}

// Client abstracts the chat-protocol client the sessions run on top of.
// Calls that hit the network take a context and may block.
type Client interface {
	// LocalParticipant reports the identity this process acts as.
	LocalParticipant() (domain.UserID, domain.DeviceID)

	// RoomExists reports whether the room is known to the client.
	RoomExists(ctx context.Context, roomID domain.RoomID) (bool, error)

	// RoomMembers enumerates the currently joined call members of a room.
	RoomMembers(ctx context.Context, roomID domain.RoomID) ([]domain.Membership, error)

	// AnnounceJoin and AnnounceLeave publish the local participant's call
	// membership to the room.
	AnnounceJoin(ctx context.Context, roomID domain.RoomID, focus domain.FocusConfig) error
	AnnounceLeave(ctx context.Context, roomID domain.RoomID) error
}

// DeviceDirectory resolves the registered devices of a user.
type DeviceDirectory interface {
	Devices(ctx context.Context, userID domain.UserID) ([]domain.DeviceID, error)
}

// ToDeviceSender delivers an opaque point-to-point message to one device,
// outside the room timeline. Delivery is asynchronous and unreliable.
type ToDeviceSender interface {
	SendToDevice(ctx context.Context, userID domain.UserID, deviceID domain.DeviceID, eventType string, env Envelope) error
}

// DeviceCrypto is the Olm-style per-device encrypt/decrypt capability.
// Treated as opaque; the session layer never inspects ciphertexts.
type DeviceCrypto interface {
	EncryptFor(ctx context.Context, userID domain.UserID, deviceID domain.DeviceID, plaintext []byte) (Envelope, error)
	Decrypt(ctx context.Context, env Envelope) ([]byte, error)
}

// WellKnown looks up the server-advertised focus endpoint candidates.
type WellKnown interface {
	RTCFoci(ctx context.Context) ([]domain.FocusConfig, error)
}
