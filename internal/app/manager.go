package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aaron777collins/haos-rtc/internal/app/bus"
	"github.com/aaron777collins/haos-rtc/internal/app/enc"
	"github.com/aaron777collins/haos-rtc/internal/app/focus"
	"github.com/aaron777collins/haos-rtc/internal/core"
	"github.com/aaron777collins/haos-rtc/internal/domain"
)

// Manager is the top-level call-session state machine, one room at a
// time: Created -> Joined <-> Left -> Destroyed. It composes the focus
// resolver, participant tracker and key rotation engine, and
// republishes every transition on the event bus.
type Manager struct {
	client   core.Client
	registry *Registry
	resolver *focus.Resolver
	tracker  *Tracker
	engine   *enc.Engine
	dist     *enc.Distributor
	bus      *bus.Bus
}

// Deps carries the consumed capabilities the manager is wired with.
type Deps struct {
	Client    core.Client
	WellKnown core.WellKnown
	Directory core.DeviceDirectory
	Sender    core.ToDeviceSender
	Crypto    core.DeviceCrypto
	Bus       *bus.Bus

	// RotationInterval defaults to enc.DefaultRotationInterval.
	RotationInterval time.Duration
}

func NewManager(d Deps) *Manager {
	localUser, localDevice := d.Client.LocalParticipant()
	m := &Manager{
		client:   d.Client,
		registry: NewRegistry(),
		resolver: focus.NewResolver(d.WellKnown),
		tracker:  NewTracker(localUser, localDevice),
		bus:      d.Bus,
	}
	lookup := func(roomID domain.RoomID) (enc.SessionInfo, bool) {
		s, ok := m.registry.get(roomID)
		if !ok {
			return enc.SessionInfo{}, false
		}
		return enc.SessionInfo{State: s.enc, Participants: s.participantsSnapshot()}, true
	}
	m.dist = enc.NewDistributor(d.Directory, d.Sender, d.Crypto, lookup, d.Bus)
	m.engine = enc.NewEngine(d.RotationInterval, lookup, m.dist, d.Bus)
	return m
}

// Bus exposes the event surface to the UI layer.
func (m *Manager) Bus() *bus.Bus { return m.bus }

// CreateSession registers a session for the room, resolving a focus
// first. Idempotent: an existing session is returned unchanged. On
// failure nothing is registered.
func (m *Manager) CreateSession(ctx context.Context, roomID domain.RoomID, focusOverride domain.FocusConfig) (*SessionState, error) {
	if s, ok := m.registry.get(roomID); ok {
		return s.snapshot(), nil
	}

	exists, err := m.client.RoomExists(ctx, roomID)
	if err != nil {
		return nil, m.fail(nil, roomID, domain.NewRTCError(domain.CodeSessionCreate, "room lookup failed", err))
	}
	if !exists {
		return nil, m.fail(nil, roomID, domain.Errorf(domain.CodeSessionCreate, "room %s not found", roomID))
	}

	f, err := m.resolver.Resolve(ctx, roomID, focusOverride)
	if err != nil {
		return nil, m.fail(nil, roomID, domain.NewRTCError(domain.CodeSessionCreate, "focus resolution failed", err))
	}

	s := newSession(roomID, domain.SessionID(uuid.NewString()), f)
	if existing, stored := m.registry.putIfAbsent(s); !stored {
		return existing.snapshot(), nil
	}

	log.Info().Str("module", "app.manager").Str("room", string(roomID)).Str("focus", f.ServiceURL).Msg("session created")
	m.publish(domain.Event{Type: domain.EventSessionCreated, RoomID: roomID, Timestamp: time.Now()})
	return s.snapshot(), nil
}

// JoinSession announces the local participant, marks the session
// joined and connected, starts the rotation ticker and mints the first
// key. Rejected with SESSION_BUSY_ERROR while another operation is
// outstanding.
func (m *Manager) JoinSession(ctx context.Context, roomID domain.RoomID) error {
	s, ok := m.registry.get(roomID)
	if !ok {
		return m.fail(nil, roomID, domain.Errorf(domain.CodeSessionJoin, "no session for room %s, create it first", roomID))
	}
	if !s.beginOp() {
		return m.fail(nil, roomID, domain.Errorf(domain.CodeSessionBusy, "another operation is in progress for room %s", roomID))
	}
	defer s.endOp()

	s.mu.Lock()
	f := s.focus
	s.mu.Unlock()

	if err := m.client.AnnounceJoin(ctx, roomID, f); err != nil {
		return m.fail(s, roomID, domain.NewRTCError(domain.CodeSessionJoin, "failed to announce call membership", err))
	}

	// Best-effort initial membership; the next membership notification
	// recomputes the list anyway.
	members, err := m.client.RoomMembers(ctx, roomID)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.manager").Str("room", string(roomID)).Msg("initial membership fetch failed")
		members = nil
	}

	s.mu.Lock()
	s.joined = true
	s.connected = true
	s.lastError = nil
	s.participants = m.tracker.Recompute(members, true)
	s.mu.Unlock()

	m.engine.StartTicker(roomID)

	log.Info().Str("module", "app.manager").Str("room", string(roomID)).Msg("session joined")
	m.publish(domain.Event{Type: domain.EventSessionJoined, RoomID: roomID, Timestamp: time.Now()})

	// Initial mint + distribution. A distribution failure is reported
	// on the bus but does not undo the join.
	if _, err := m.engine.Rotate(ctx, roomID); err != nil {
		log.Warn().Err(err).Str("module", "app.manager").Str("room", string(roomID)).Msg("initial key rotation failed")
	}
	return nil
}

// LeaveSession stops rotation and clears membership. Leaving a session
// that was never joined is a no-op success.
func (m *Manager) LeaveSession(ctx context.Context, roomID domain.RoomID) error {
	s, ok := m.registry.get(roomID)
	if !ok {
		return m.fail(nil, roomID, domain.Errorf(domain.CodeSessionLeave, "no session for room %s", roomID))
	}
	if !s.beginOp() {
		return m.fail(nil, roomID, domain.Errorf(domain.CodeSessionBusy, "another operation is in progress for room %s", roomID))
	}
	defer s.endOp()
	return m.doLeave(ctx, s)
}

// doLeave performs the leave transition. The caller holds the busy
// flag.
func (m *Manager) doLeave(ctx context.Context, s *session) error {
	if !s.isJoined() {
		return nil
	}

	// Announce first; the session stays joined on failure, so periodic
	// rotation must keep running until the retraction actually lands.
	if err := m.client.AnnounceLeave(ctx, s.roomID); err != nil {
		return m.fail(s, s.roomID, domain.NewRTCError(domain.CodeSessionLeave, "failed to retract call membership", err))
	}

	m.engine.StopTicker(s.roomID)

	s.mu.Lock()
	s.joined = false
	s.connected = false
	s.participants = nil
	s.lastError = nil
	s.mu.Unlock()

	log.Info().Str("module", "app.manager").Str("room", string(s.roomID)).Msg("session left")
	m.publish(domain.Event{Type: domain.EventSessionLeft, RoomID: s.roomID, Timestamp: time.Now()})
	return nil
}

// DestroySession leaves if joined, tears the encryption state down and
// removes the session. Idempotent: destroying an unknown or already
// destroyed room is a no-op.
func (m *Manager) DestroySession(ctx context.Context, roomID domain.RoomID) error {
	s, ok := m.registry.get(roomID)
	if !ok {
		return nil
	}
	if !s.beginOp() {
		return m.fail(nil, roomID, domain.Errorf(domain.CodeSessionBusy, "another operation is in progress for room %s", roomID))
	}
	defer s.endOp()

	if err := m.doLeave(ctx, s); err != nil {
		// Teardown proceeds regardless; the error was already published.
		log.Warn().Err(err).Str("module", "app.manager").Str("room", string(roomID)).Msg("leave during destroy failed")
	}

	s.enc.Teardown()
	m.registry.remove(roomID)

	log.Info().Str("module", "app.manager").Str("room", string(roomID)).Msg("session destroyed")
	m.publish(domain.Event{Type: domain.EventSessionDestroyed, RoomID: roomID, Timestamp: time.Now()})
	m.bus.DropRoom(roomID)
	return nil
}

// DestroyAll tears down every session. Called once at shutdown.
func (m *Manager) DestroyAll(ctx context.Context) {
	for _, roomID := range m.registry.roomIDs() {
		if err := m.DestroySession(ctx, roomID); err != nil {
			log.Warn().Err(err).Str("module", "app.manager").Str("room", string(roomID)).Msg("destroy at shutdown failed")
		}
	}
}

// GetSessionState returns a snapshot, or nil if the room has no session.
func (m *Manager) GetSessionState(roomID domain.RoomID) *SessionState {
	s, ok := m.registry.get(roomID)
	if !ok {
		return nil
	}
	return s.snapshot()
}

// IsSessionActive reports whether a session exists and is connected.
func (m *Manager) IsSessionActive(roomID domain.RoomID) bool {
	s, ok := m.registry.get(roomID)
	if !ok {
		return false
	}
	st := s.snapshot()
	return st.Connected
}

// ActiveSessions returns snapshots of all connected sessions.
func (m *Manager) ActiveSessions() map[domain.RoomID]*SessionState {
	out := make(map[domain.RoomID]*SessionState)
	for _, roomID := range m.registry.roomIDs() {
		s, ok := m.registry.get(roomID)
		if !ok {
			continue
		}
		st := s.snapshot()
		if st.Connected {
			out[roomID] = st
		}
	}
	return out
}

// OnMembershipChange is the inbound path for membership notifications.
// The participant list is fully replaced; diffs are published and, when
// a remote participant appeared or disappeared, trigger a rotation.
// Notifications for rooms with no session are ignored, not queued.
func (m *Manager) OnMembershipChange(ctx context.Context, roomID domain.RoomID, snapshot []domain.Membership) {
	s, ok := m.registry.get(roomID)
	if !ok {
		return
	}

	s.mu.Lock()
	old := s.participants
	next := m.tracker.Recompute(snapshot, s.joined)
	s.participants = next
	s.mu.Unlock()

	joined, left := DiffParticipants(old, next)
	now := time.Now()
	remoteJoined, remoteLeft := false, false
	for i := range joined {
		p := joined[i]
		if !p.IsLocal {
			remoteJoined = true
		}
		m.publish(domain.Event{Type: domain.EventParticipantJoin, RoomID: roomID, Timestamp: now, Participant: &p})
	}
	for i := range left {
		p := left[i]
		if !p.IsLocal {
			remoteLeft = true
		}
		m.publish(domain.Event{Type: domain.EventParticipantLeave, RoomID: roomID, Timestamp: now, Participant: &p})
	}

	// Local-only changes (our own membership echo) never re-key: the
	// join path already minted for us.
	if !s.isJoined() {
		return
	}
	switch {
	case remoteJoined:
		m.engine.OnParticipantJoined(ctx, roomID)
	case remoteLeft:
		m.engine.OnParticipantLeft(ctx, roomID)
	}
}

// OnToDeviceMessage is the inbound path for key transport envelopes.
func (m *Manager) OnToDeviceMessage(ctx context.Context, eventType string, env core.Envelope) {
	if eventType != domain.KeyTransportEventType {
		return
	}
	m.dist.Ingest(ctx, env)
}

// CurrentKey returns the room's most recent key, minted or ingested.
func (m *Manager) CurrentKey(roomID domain.RoomID) (domain.KeyID, []byte, bool) {
	s, ok := m.registry.get(roomID)
	if !ok {
		return "", nil, false
	}
	return s.enc.Keys.Current()
}

// fail records the error on the session (when there is one), publishes
// it and returns it.
func (m *Manager) fail(s *session, roomID domain.RoomID, rtcErr *domain.RTCError) error {
	if s != nil {
		s.setLastError(rtcErr)
	}
	log.Error().Err(rtcErr).Str("module", "app.manager").Str("room", string(roomID)).Msg("lifecycle operation failed")
	m.publish(domain.Event{Type: domain.EventError, RoomID: roomID, Timestamp: time.Now(), Err: rtcErr})
	return rtcErr
}

func (m *Manager) publish(ev domain.Event) {
	m.bus.Publish(ev)
}
