package app

import (
	"sync"

	"github.com/aaron777collins/haos-rtc/internal/app/enc"
	"github.com/aaron777collins/haos-rtc/internal/domain"
)

// SessionState is the read-only snapshot of one room's call handed to
// the UI layer. Joined implies Connected.
type SessionState struct {
	RoomID       domain.RoomID        `json:"room_id"`
	SessionID    domain.SessionID     `json:"session_id"`
	Connected    bool                 `json:"connected"`
	Joined       bool                 `json:"joined"`
	Busy         bool                 `json:"busy"`
	Focus        domain.FocusConfig   `json:"focus"`
	Participants []domain.Participant `json:"participants"`
	LastError    *domain.RTCError     `json:"last_error,omitempty"`
}

// session is the live per-room state. Owned exclusively by the
// Registry; only the Manager's per-room operations touch it.
type session struct {
	roomID    domain.RoomID
	sessionID domain.SessionID
	enc       *enc.State

	mu           sync.Mutex
	connected    bool
	joined       bool
	busy         bool
	focus        domain.FocusConfig
	participants []domain.Participant
	lastError    *domain.RTCError
}

func newSession(roomID domain.RoomID, sessionID domain.SessionID, focus domain.FocusConfig) *session {
	return &session{
		roomID:    roomID,
		sessionID: sessionID,
		focus:     focus,
		enc:       enc.NewState(sessionID),
	}
}

// beginOp claims the session for one lifecycle operation. A false
// return means another operation is outstanding and the caller must be
// rejected, not queued.
func (s *session) beginOp() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

// endOp releases the busy flag. Deferred on every operation exit path.
func (s *session) endOp() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

func (s *session) snapshot() *SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	parts := make([]domain.Participant, len(s.participants))
	copy(parts, s.participants)
	return &SessionState{
		RoomID:       s.roomID,
		SessionID:    s.sessionID,
		Connected:    s.connected,
		Joined:       s.joined,
		Busy:         s.busy,
		Focus:        s.focus,
		Participants: parts,
		LastError:    s.lastError,
	}
}

func (s *session) participantsSnapshot() []domain.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Participant, len(s.participants))
	copy(out, s.participants)
	return out
}

func (s *session) isJoined() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.joined
}

func (s *session) setLastError(err *domain.RTCError) {
	s.mu.Lock()
	s.lastError = err
	s.mu.Unlock()
}
