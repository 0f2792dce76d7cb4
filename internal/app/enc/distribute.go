package enc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aaron777collins/haos-rtc/internal/app/bus"
	"github.com/aaron777collins/haos-rtc/internal/core"
	"github.com/aaron777collins/haos-rtc/internal/domain"
)

// Distributor fans newly minted keys out to every device of every
// remote participant, and ingests keys arriving from others. Both
// directions tolerate the room being gone by the time they run.
type Distributor struct {
	directory core.DeviceDirectory
	sender    core.ToDeviceSender
	crypto    core.DeviceCrypto
	lookup    Lookup
	bus       *bus.Bus
}

func NewDistributor(directory core.DeviceDirectory, sender core.ToDeviceSender, crypto core.DeviceCrypto, lookup Lookup, b *bus.Bus) *Distributor {
	return &Distributor{
		directory: directory,
		sender:    sender,
		crypto:    crypto,
		lookup:    lookup,
		bus:       b,
	}
}

type target struct {
	userID   domain.UserID
	deviceID domain.DeviceID
}

// Distribute wraps the key in a transport message and sends one
// encrypted envelope per remote device, concurrently. Per-device
// failures are reported as error events and do not fail the call; only
// a fan-out where every send failed returns an error.
func (d *Distributor) Distribute(ctx context.Context, roomID domain.RoomID, sessionID domain.SessionID, keyID domain.KeyID, key []byte, participants []domain.Participant) error {
	users := make(map[domain.UserID]struct{})
	for _, p := range participants {
		if p.IsLocal {
			continue
		}
		users[p.UserID] = struct{}{}
	}
	if len(users) == 0 {
		log.Debug().Str("module", "enc.distribute").Str("room", string(roomID)).Msg("no remote recipients")
		return nil
	}

	msg := domain.KeyTransportMessage{
		RoomID:    roomID,
		SessionID: sessionID,
		KeyID:     keyID,
		Key:       domain.EncodeKey(key),
		Algorithm: domain.KeyAlgorithm,
		Timestamp: time.Now().UnixMilli(),
	}
	plaintext, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	var targets []target
	lookupFailed := false
	for userID := range users {
		devices, err := d.directory.Devices(ctx, userID)
		if err != nil {
			d.publishDeviceError(roomID, userID, "", err)
			lookupFailed = true
			continue
		}
		for _, deviceID := range devices {
			targets = append(targets, target{userID: userID, deviceID: deviceID})
		}
	}
	if len(targets) == 0 {
		// Remote users with genuinely no devices is a quiet success;
		// zero targets because lookups errored is a total failure.
		if lookupFailed {
			return fmt.Errorf("no reachable devices for room %s, device lookups failed", roomID)
		}
		log.Debug().Str("module", "enc.distribute").Str("room", string(roomID)).Msg("no reachable devices")
		return nil
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	for _, tg := range targets {
		wg.Add(1)
		go func(tg target) {
			defer wg.Done()
			if err := d.sendOne(ctx, tg, plaintext); err != nil {
				d.publishDeviceError(roomID, tg.userID, tg.deviceID, err)
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(tg)
	}
	wg.Wait()

	if failed == len(targets) {
		return fmt.Errorf("all %d device sends failed for room %s", failed, roomID)
	}
	log.Info().Str("module", "enc.distribute").Str("room", string(roomID)).Str("key_id", string(keyID)).Int("devices", len(targets)).Int("failed", failed).Msg("key distributed")
	return nil
}

func (d *Distributor) sendOne(ctx context.Context, tg target, plaintext []byte) error {
	env, err := d.crypto.EncryptFor(ctx, tg.userID, tg.deviceID, plaintext)
	if err != nil {
		return err
	}
	return d.sender.SendToDevice(ctx, tg.userID, tg.deviceID, domain.KeyTransportEventType, env)
}

// Ingest is the inbound path, called from the transport's delivery
// callback. Duplicate (room, key id) deliveries and keys for rooms
// with no active session are dropped.
func (d *Distributor) Ingest(ctx context.Context, env core.Envelope) {
	plaintext, err := d.crypto.Decrypt(ctx, env)
	if err != nil {
		log.Warn().Err(err).Str("module", "enc.distribute").Msg("undecryptable key envelope dropped")
		return
	}
	var msg domain.KeyTransportMessage
	if err := json.Unmarshal(plaintext, &msg); err != nil {
		log.Warn().Err(err).Str("module", "enc.distribute").Msg("malformed key transport message dropped")
		return
	}
	if msg.RoomID == "" || msg.KeyID == "" {
		log.Warn().Str("module", "enc.distribute").Msg("key transport message missing room or key id")
		return
	}

	info, ok := d.lookup(msg.RoomID)
	if !ok {
		log.Debug().Str("module", "enc.distribute").Str("room", string(msg.RoomID)).Msg("key for inactive room dropped")
		return
	}
	key, err := msg.KeyBytes()
	if err != nil {
		log.Warn().Err(err).Str("module", "enc.distribute").Str("room", string(msg.RoomID)).Msg("undecodable key payload dropped")
		return
	}
	if !info.State.Keys.Ingest(msg.KeyID, key) {
		log.Debug().Str("module", "enc.distribute").Str("room", string(msg.RoomID)).Str("key_id", string(msg.KeyID)).Msg("duplicate key delivery dropped")
		return
	}
	log.Info().Str("module", "enc.distribute").Str("room", string(msg.RoomID)).Str("key_id", string(msg.KeyID)).Msg("remote key ingested")
}

func (d *Distributor) publishDeviceError(roomID domain.RoomID, userID domain.UserID, deviceID domain.DeviceID, err error) {
	who := string(userID)
	if deviceID != "" {
		who = fmt.Sprintf("%s/%s", userID, deviceID)
	}
	d.bus.Publish(domain.Event{
		Type:      domain.EventError,
		RoomID:    roomID,
		Timestamp: time.Now(),
		Err:       domain.NewRTCError(domain.CodeKeyDistribution, fmt.Sprintf("key delivery to %s failed", who), err),
	})
}
