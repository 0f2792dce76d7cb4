package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/aaron777collins/haos-rtc/internal/domain"
)

// Registry is the single owner of all per-room session state. It is
// constructed explicitly at startup and torn down via the Manager's
// DestroyAll; there is no module-level singleton.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.RoomID]*session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[domain.RoomID]*session)}
}

func (r *Registry) get(roomID domain.RoomID) (*session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[roomID]
	return s, ok
}

// putIfAbsent registers the session unless one already exists for the
// room. At most one session per room, ever.
func (r *Registry) putIfAbsent(s *session) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[s.roomID]; ok {
		return existing, false
	}
	r.sessions[s.roomID] = s
	log.Info().Str("module", "app.registry").Str("room", string(s.roomID)).Str("session", string(s.sessionID)).Msg("session registered")
	return s, true
}

func (r *Registry) remove(roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[roomID]; ok {
		delete(r.sessions, roomID)
		log.Info().Str("module", "app.registry").Str("room", string(roomID)).Msg("session removed")
	}
}

func (r *Registry) roomIDs() []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.RoomID, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	return out
}
