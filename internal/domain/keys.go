package domain

import "encoding/base64"

type KeyID string

const (
	// KeyTransportEventType is the to-device event type carrying key material.
	KeyTransportEventType = "m.room.rtc_key"

	// KeyAlgorithm labels the media-encryption algorithm the keys are for.
	KeyAlgorithm = "AES-GCM"

	// KeySize is the symmetric key length in bytes (256 bit).
	KeySize = 32
)

// KeyTransportMessage is the wire entity distributed to remote devices.
// Immutable once constructed; a given (room_id, key_id) is minted exactly once.
type KeyTransportMessage struct {
	RoomID    RoomID    `json:"room_id"`
	SessionID SessionID `json:"session_id"`
	KeyID     KeyID     `json:"key_id"`
	Key       string    `json:"key"`
	Algorithm string    `json:"algorithm"`
	Timestamp int64     `json:"timestamp"`
}

// KeyBytes decodes the base64 key payload.
func (m KeyTransportMessage) KeyBytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(m.Key)
}

// EncodeKey converts raw key bytes to the wire encoding.
func EncodeKey(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}
