package domain

// ParticipantID identifies one device of one user inside a room.
// Exactly one participant exists per (user, device) pair.
type ParticipantID struct {
	UserID   UserID
	DeviceID DeviceID
}

// Participant represents one call member's meta for a room.
// No transport or lifecycle logic here.
type Participant struct {
	UserID      UserID   `json:"user_id"`
	DeviceID    DeviceID `json:"device_id"`
	IsLocal     bool     `json:"is_local"`
	DisplayName string   `json:"display_name,omitempty"`
	AvatarURL   string   `json:"avatar_url,omitempty"`
}

func (p Participant) ID() ParticipantID {
	return ParticipantID{UserID: p.UserID, DeviceID: p.DeviceID}
}

// Membership is a raw joined-member record as the chat client reports it,
// before the tracker turns it into a Participant.
type Membership struct {
	UserID      UserID
	DeviceID    DeviceID
	DisplayName string
	AvatarURL   string
}
