package enc

import (
	"sync"
	"time"

	"github.com/aaron777collins/haos-rtc/internal/domain"
)

// State is one room's encryption state. It exists iff the room's
// session state exists; both are created and destroyed together.
type State struct {
	SessionID domain.SessionID
	Keys      *Store

	mu           sync.Mutex
	enabled      bool
	rotating     bool
	lastRotation time.Time
	tickerStop   chan struct{}
}

func NewState(sessionID domain.SessionID) *State {
	return &State{
		SessionID: sessionID,
		Keys:      NewStore(),
		enabled:   true,
	}
}

// tryBeginRotation flips the rotating flag. It must be called before
// the first suspension point of a rotation; a false return means
// another rotation is in flight and this trigger is coalesced.
func (st *State) tryBeginRotation() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.enabled || st.rotating {
		return false
	}
	st.rotating = true
	return true
}

// endRotation clears the rotating flag on every exit path so a failed
// distribution cannot block future triggers.
func (st *State) endRotation(ok bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.rotating = false
	if ok {
		st.lastRotation = time.Now()
	}
}

func (st *State) Rotating() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.rotating
}

func (st *State) Enabled() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.enabled
}

func (st *State) LastRotation() time.Time {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.lastRotation
}

// setTickerStop stores the rotation ticker's stop channel, stopping any
// previous ticker first.
func (st *State) setTickerStop(stop chan struct{}) {
	st.mu.Lock()
	prev := st.tickerStop
	st.tickerStop = stop
	st.mu.Unlock()
	if prev != nil {
		close(prev)
	}
}

// stopTicker cancels the periodic rotation ticker. Idempotent.
func (st *State) stopTicker() {
	st.mu.Lock()
	stop := st.tickerStop
	st.tickerStop = nil
	st.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}

// Teardown stops the ticker, disables rotation and wipes the key store.
func (st *State) Teardown() {
	st.stopTicker()
	st.mu.Lock()
	st.enabled = false
	st.mu.Unlock()
	st.Keys.Clear()
}
