// Package loopback is an in-process chat client: rooms, device
// directory, focus advertisement and to-device delivery all live in
// memory. It backs the dev-mode binary, where the manager runs without
// a homeserver.
package loopback

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/aaron777collins/haos-rtc/internal/core"
	"github.com/aaron777collins/haos-rtc/internal/domain"
)

// DeliveryFunc receives to-device envelopes addressed to a device.
type DeliveryFunc func(eventType string, env core.Envelope)

// Hub implements core.Client, core.DeviceDirectory, core.ToDeviceSender
// and core.WellKnown against in-memory state.
type Hub struct {
	localUser   domain.UserID
	localDevice domain.DeviceID

	mu       sync.RWMutex
	rooms    map[domain.RoomID][]domain.Membership
	devices  map[domain.UserID][]domain.DeviceID
	handlers map[domain.DeviceID]DeliveryFunc
	foci     []domain.FocusConfig
	joinedAs map[domain.RoomID]domain.FocusConfig
}

func NewHub(localUser domain.UserID, localDevice domain.DeviceID) *Hub {
	return &Hub{
		localUser:   localUser,
		localDevice: localDevice,
		rooms:       make(map[domain.RoomID][]domain.Membership),
		devices:     make(map[domain.UserID][]domain.DeviceID),
		handlers:    make(map[domain.DeviceID]DeliveryFunc),
		joinedAs:    make(map[domain.RoomID]domain.FocusConfig),
	}
}

// AdvertiseFocus sets the focus candidates the hub reports.
func (h *Hub) AdvertiseFocus(foci ...domain.FocusConfig) {
	h.mu.Lock()
	h.foci = foci
	h.mu.Unlock()
}

// AddRoom registers a room.
func (h *Hub) AddRoom(roomID domain.RoomID) {
	h.mu.Lock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = nil
	}
	h.mu.Unlock()
}

// SetMembers replaces a room's call membership.
func (h *Hub) SetMembers(roomID domain.RoomID, members ...domain.Membership) {
	h.mu.Lock()
	h.rooms[roomID] = members
	h.mu.Unlock()
}

// RegisterDevice adds a device to a user's directory entry and installs
// its delivery handler.
func (h *Hub) RegisterDevice(userID domain.UserID, deviceID domain.DeviceID, deliver DeliveryFunc) {
	h.mu.Lock()
	h.devices[userID] = append(h.devices[userID], deviceID)
	if deliver != nil {
		h.handlers[deviceID] = deliver
	}
	h.mu.Unlock()
}

// --- core.Client ---

func (h *Hub) LocalParticipant() (domain.UserID, domain.DeviceID) {
	return h.localUser, h.localDevice
}

func (h *Hub) RoomExists(ctx context.Context, roomID domain.RoomID) (bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[roomID]
	return ok, nil
}

func (h *Hub) RoomMembers(ctx context.Context, roomID domain.RoomID) ([]domain.Membership, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members := h.rooms[roomID]
	out := make([]domain.Membership, len(members))
	copy(out, members)
	return out, nil
}

func (h *Hub) AnnounceJoin(ctx context.Context, roomID domain.RoomID, focus domain.FocusConfig) error {
	h.mu.Lock()
	h.joinedAs[roomID] = focus
	h.mu.Unlock()
	log.Debug().Str("module", "adapters.loopback").Str("room", string(roomID)).Msg("join announced")
	return nil
}

func (h *Hub) AnnounceLeave(ctx context.Context, roomID domain.RoomID) error {
	h.mu.Lock()
	delete(h.joinedAs, roomID)
	h.mu.Unlock()
	log.Debug().Str("module", "adapters.loopback").Str("room", string(roomID)).Msg("leave announced")
	return nil
}

// --- core.DeviceDirectory ---

func (h *Hub) Devices(ctx context.Context, userID domain.UserID) ([]domain.DeviceID, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	devices := h.devices[userID]
	out := make([]domain.DeviceID, len(devices))
	copy(out, devices)
	return out, nil
}

// --- core.ToDeviceSender ---

func (h *Hub) SendToDevice(ctx context.Context, userID domain.UserID, deviceID domain.DeviceID, eventType string, env core.Envelope) error {
	h.mu.RLock()
	deliver := h.handlers[deviceID]
	h.mu.RUnlock()
	if deliver == nil {
		// Devices without a handler just swallow the message, like an
		// offline device would.
		return nil
	}
	deliver(eventType, env)
	return nil
}

// --- core.WellKnown ---

func (h *Hub) RTCFoci(ctx context.Context) ([]domain.FocusConfig, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]domain.FocusConfig, len(h.foci))
	copy(out, h.foci)
	return out, nil
}
