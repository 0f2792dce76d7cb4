package app

import (
	"testing"

	"github.com/aaron777collins/haos-rtc/internal/domain"
)

func member(user, device string) domain.Membership {
	return domain.Membership{UserID: domain.UserID(user), DeviceID: domain.DeviceID(device)}
}

func TestRecomputeIncludesLocalOnlyWhenJoined(t *testing.T) {
	tr := NewTracker("@alice:example", "ALICE1")

	got := tr.Recompute([]domain.Membership{member("@bob:example", "BOB1")}, true)
	if len(got) != 2 || !got[0].IsLocal {
		t.Fatalf("joined recompute = %v, want local first plus bob", got)
	}

	got = tr.Recompute([]domain.Membership{member("@bob:example", "BOB1")}, false)
	if len(got) != 1 || got[0].IsLocal {
		t.Fatalf("not-joined recompute = %v, want bob only", got)
	}
}

func TestRecomputeLocalIncludedBeforeEcho(t *testing.T) {
	tr := NewTracker("@alice:example", "ALICE1")

	// Transport has not echoed our membership yet; the snapshot is
	// remote-only but we are joined.
	got := tr.Recompute(nil, true)
	if len(got) != 1 || !got[0].IsLocal {
		t.Fatalf("recompute = %v, want just the local participant", got)
	}
}

func TestRecomputeDeduplicatesPairs(t *testing.T) {
	tr := NewTracker("@alice:example", "ALICE1")

	snap := []domain.Membership{
		member("@bob:example", "BOB1"),
		{UserID: "@bob:example", DeviceID: "BOB1", DisplayName: "Bob"},
		member("@alice:example", "ALICE1"), // echo of ourselves
	}
	got := tr.Recompute(snap, true)
	if len(got) != 2 {
		t.Fatalf("recompute = %v, want local + one bob", got)
	}
	if got[1].DisplayName != "Bob" {
		t.Fatalf("re-observed pair not replaced: %v", got[1])
	}
}

func TestRecomputeDropsStaleLocalEcho(t *testing.T) {
	tr := NewTracker("@alice:example", "ALICE1")

	got := tr.Recompute([]domain.Membership{member("@alice:example", "ALICE1")}, false)
	if len(got) != 0 {
		t.Fatalf("recompute = %v, want stale local echo dropped after leave", got)
	}
}

func TestDiffParticipants(t *testing.T) {
	a := domain.Participant{UserID: "@a:x", DeviceID: "D1"}
	b := domain.Participant{UserID: "@b:x", DeviceID: "D1"}
	c := domain.Participant{UserID: "@c:x", DeviceID: "D1"}

	joined, left := DiffParticipants([]domain.Participant{a, b}, []domain.Participant{b, c})
	if len(joined) != 1 || joined[0].UserID != "@c:x" {
		t.Fatalf("joined = %v, want c", joined)
	}
	if len(left) != 1 || left[0].UserID != "@a:x" {
		t.Fatalf("left = %v, want a", left)
	}
}
