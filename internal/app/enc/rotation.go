package enc

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"

	"github.com/aaron777collins/haos-rtc/internal/app/bus"
	"github.com/aaron777collins/haos-rtc/internal/domain"
)

// DefaultRotationInterval is the periodic rotation period.
const DefaultRotationInterval = 5 * time.Minute

// SessionInfo is the slice of per-room state a rotation needs.
type SessionInfo struct {
	State        *State
	Participants []domain.Participant
}

// Lookup resolves the live encryption state of a room. Owned by the
// lifecycle manager, so a ticker tick racing a destroy simply finds no
// room and does nothing.
type Lookup func(domain.RoomID) (SessionInfo, bool)

// Engine decides when a new key is minted and serializes rotations per
// room via the state's rotating flag.
type Engine struct {
	interval time.Duration
	lookup   Lookup
	dist     *Distributor
	bus      *bus.Bus

	// ULID entropy is monotonic within a millisecond, so key ids never
	// collide under rapid successive rotations.
	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy
}

func NewEngine(interval time.Duration, lookup Lookup, dist *Distributor, b *bus.Bus) *Engine {
	if interval <= 0 {
		interval = DefaultRotationInterval
	}
	return &Engine{
		interval: interval,
		lookup:   lookup,
		dist:     dist,
		bus:      b,
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}
}

func (e *Engine) newKeyID() (domain.KeyID, error) {
	e.entropyMu.Lock()
	defer e.entropyMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), e.entropy)
	if err != nil {
		return "", err
	}
	return domain.KeyID(id.String()), nil
}

// Rotate mints a new key for the room and fans it out. Concurrent
// triggers for the same room are coalesced: whoever loses the rotating
// flag returns immediately with no key. A missing room is a no-op.
func (e *Engine) Rotate(ctx context.Context, roomID domain.RoomID) (domain.KeyID, error) {
	info, ok := e.lookup(roomID)
	if !ok {
		return "", nil
	}
	if !info.State.tryBeginRotation() {
		log.Debug().Str("module", "enc.engine").Str("room", string(roomID)).Msg("rotation already in flight, trigger coalesced")
		return "", nil
	}

	keyID, err := e.newKeyID()
	if err != nil {
		info.State.endRotation(false)
		e.publishError(roomID, domain.NewRTCError(domain.CodeKeyRotation, "key id generation failed", err))
		return "", err
	}
	key := make([]byte, domain.KeySize)
	if _, err := rand.Read(key); err != nil {
		info.State.endRotation(false)
		e.publishError(roomID, domain.NewRTCError(domain.CodeKeyRotation, "key generation failed", err))
		return "", err
	}

	// The key is stored before distribution; it stays valid for local
	// encryption even if fan-out fails below.
	info.State.Keys.Append(keyID, key)

	if err := e.dist.Distribute(ctx, roomID, info.State.SessionID, keyID, key, info.Participants); err != nil {
		info.State.endRotation(false)
		e.publishError(roomID, domain.NewRTCError(domain.CodeKeyRotation, "key distribution failed", err))
		// No retry here; the next scheduled trigger makes the next attempt.
		return keyID, err
	}

	info.State.endRotation(true)
	log.Info().Str("module", "enc.engine").Str("room", string(roomID)).Str("key_id", string(keyID)).Msg("key rotated")
	e.bus.Publish(domain.Event{
		Type:      domain.EventKeyRotated,
		RoomID:    roomID,
		Timestamp: time.Now(),
		KeyID:     keyID,
	})
	return keyID, nil
}

// StartTicker begins periodic rotation for a joined room. Any previous
// ticker for the room is stopped first.
func (e *Engine) StartTicker(roomID domain.RoomID) {
	info, ok := e.lookup(roomID)
	if !ok {
		return
	}
	stop := make(chan struct{})
	info.State.setTickerStop(stop)

	go func() {
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				// Errors are already published on the bus; they must
				// never escape the tick or later ticks would be lost.
				if _, err := e.Rotate(context.Background(), roomID); err != nil {
					log.Warn().Err(err).Str("module", "enc.engine").Str("room", string(roomID)).Msg("scheduled rotation failed")
				}
			}
		}
	}()
}

// StopTicker cancels the room's periodic rotation. Idempotent; safe on
// rooms that never started one.
func (e *Engine) StopTicker(roomID domain.RoomID) {
	info, ok := e.lookup(roomID)
	if !ok {
		return
	}
	info.State.stopTicker()
}

// OnParticipantJoined is the membership-join rotation trigger.
func (e *Engine) OnParticipantJoined(ctx context.Context, roomID domain.RoomID) {
	if _, err := e.Rotate(ctx, roomID); err != nil {
		log.Warn().Err(err).Str("module", "enc.engine").Str("room", string(roomID)).Msg("join-triggered rotation failed")
	}
}

// OnParticipantLeft is the membership-leave rotation trigger.
func (e *Engine) OnParticipantLeft(ctx context.Context, roomID domain.RoomID) {
	if _, err := e.Rotate(ctx, roomID); err != nil {
		log.Warn().Err(err).Str("module", "enc.engine").Str("room", string(roomID)).Msg("leave-triggered rotation failed")
	}
}

func (e *Engine) publishError(roomID domain.RoomID, rtcErr *domain.RTCError) {
	e.bus.Publish(domain.Event{
		Type:      domain.EventError,
		RoomID:    roomID,
		Timestamp: time.Now(),
		Err:       rtcErr,
	})
}
