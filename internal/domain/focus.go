package domain

// FocusKindSFU is the only focus kind the session layer understands.
const FocusKindSFU = "sfu"

// FocusConfig is the resolved media-routing endpoint for one session.
// Resolved once per createSession and only replaced by the next one.
type FocusConfig struct {
	Kind       string `json:"kind"`
	ServiceURL string `json:"service_url"`
	RoomAlias  string `json:"room_alias"`
}

// IsZero reports whether no focus has been resolved.
func (f FocusConfig) IsZero() bool { return f.ServiceURL == "" }
