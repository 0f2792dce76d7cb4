package domain

import "time"

type EventType string

const (
	EventSessionCreated   EventType = "session.created"
	EventSessionJoined    EventType = "session.joined"
	EventSessionLeft      EventType = "session.left"
	EventSessionDestroyed EventType = "session.destroyed"
	EventParticipantJoin  EventType = "participant.joined"
	EventParticipantLeave EventType = "participant.left"
	EventKeyRotated       EventType = "encryption.keyRotated"
	EventError            EventType = "error"
)

// Event is one lifecycle notification published on the bus.
// Exactly one of Participant/KeyID/Err is set depending on Type.
type Event struct {
	Type        EventType    `json:"type"`
	RoomID      RoomID       `json:"room_id"`
	Timestamp   time.Time    `json:"timestamp"`
	Participant *Participant `json:"participant,omitempty"`
	KeyID       KeyID        `json:"key_id,omitempty"`
	Err         *RTCError    `json:"error,omitempty"`
}
