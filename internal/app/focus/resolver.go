// Package focus resolves the media-routing endpoint (the "focus") a
// session connects through. Pure lookup over server-advertised
// candidates, no state.
package focus

import (
	"context"

	"github.com/aaron777collins/haos-rtc/internal/core"
	"github.com/aaron777collins/haos-rtc/internal/domain"
)

// Resolver picks one usable focus per room from the well-known
// candidates, or falls back to an explicit override.
type Resolver struct {
	wellKnown core.WellKnown
}

func NewResolver(wk core.WellKnown) *Resolver {
	return &Resolver{wellKnown: wk}
}

// Resolve returns the focus for a room. The override, if non-zero, wins
// over discovery. The room ID becomes the focus alias either way.
func (r *Resolver) Resolve(ctx context.Context, roomID domain.RoomID, override domain.FocusConfig) (domain.FocusConfig, error) {
	if !override.IsZero() {
		f := override
		if f.Kind == "" {
			f.Kind = domain.FocusKindSFU
		}
		f.RoomAlias = string(roomID)
		return f, nil
	}

	candidates, err := r.wellKnown.RTCFoci(ctx)
	if err != nil {
		return domain.FocusConfig{}, domain.NewRTCError(domain.CodeFocusResolution, "well-known lookup failed", err)
	}
	for _, c := range candidates {
		if c.Kind != domain.FocusKindSFU || c.IsZero() {
			continue
		}
		c.RoomAlias = string(roomID)
		return c, nil
	}
	return domain.FocusConfig{}, domain.Errorf(domain.CodeFocusResolution, "no sfu focus advertised for room %s", roomID)
}
