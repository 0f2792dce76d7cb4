package app

import (
	"github.com/aaron777collins/haos-rtc/internal/domain"
)

// Tracker derives a room's participant list from membership snapshots.
// Stateless: every notification fully replaces the previous list, so a
// missed event cannot cause drift.
type Tracker struct {
	localUser   domain.UserID
	localDevice domain.DeviceID
}

func NewTracker(localUser domain.UserID, localDevice domain.DeviceID) *Tracker {
	return &Tracker{localUser: localUser, localDevice: localDevice}
}

// Recompute builds the participant list from a membership snapshot.
// The local participant is included iff joined, even when the transport
// has not yet echoed local membership back. Re-observing a (user,
// device) pair replaces it, never duplicates.
func (t *Tracker) Recompute(snapshot []domain.Membership, joined bool) []domain.Participant {
	out := make([]domain.Participant, 0, len(snapshot)+1)
	seen := make(map[domain.ParticipantID]int)

	if joined {
		p := domain.Participant{UserID: t.localUser, DeviceID: t.localDevice, IsLocal: true}
		seen[p.ID()] = len(out)
		out = append(out, p)
	}

	for _, m := range snapshot {
		p := domain.Participant{
			UserID:      m.UserID,
			DeviceID:    m.DeviceID,
			IsLocal:     m.UserID == t.localUser && m.DeviceID == t.localDevice,
			DisplayName: m.DisplayName,
			AvatarURL:   m.AvatarURL,
		}
		if p.IsLocal && !joined {
			// Stale echo of our own membership after we left.
			continue
		}
		if i, ok := seen[p.ID()]; ok {
			if !p.IsLocal {
				out[i] = p
			}
			continue
		}
		seen[p.ID()] = len(out)
		out = append(out, p)
	}
	return out
}

// DiffParticipants reports which participants appeared and disappeared
// between two recomputes. Used to emit participant events and to
// trigger membership-change key rotations.
func DiffParticipants(old, new []domain.Participant) (joined, left []domain.Participant) {
	oldSet := make(map[domain.ParticipantID]struct{}, len(old))
	for _, p := range old {
		oldSet[p.ID()] = struct{}{}
	}
	newSet := make(map[domain.ParticipantID]struct{}, len(new))
	for _, p := range new {
		newSet[p.ID()] = struct{}{}
		if _, ok := oldSet[p.ID()]; !ok {
			joined = append(joined, p)
		}
	}
	for _, p := range old {
		if _, ok := newSet[p.ID()]; !ok {
			left = append(left, p)
		}
	}
	return joined, left
}
