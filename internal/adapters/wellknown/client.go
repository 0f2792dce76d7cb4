// Package wellknown fetches the homeserver's advertised focus
// candidates from its client well-known document.
package wellknown

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aaron777collins/haos-rtc/internal/domain"
)

// FociKey is the well-known entry listing RTC focus candidates.
const FociKey = "org.matrix.msc4143.rtc_foci"

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type fociEntry struct {
	Type              string `json:"type"`
	LivekitServiceURL string `json:"livekit_service_url,omitempty"`
	ServiceURL        string `json:"service_url,omitempty"`
}

// RTCFoci fetches and normalizes the advertised candidates. LiveKit
// entries are reported as the generic sfu kind.
func (c *Client) RTCFoci(ctx context.Context) ([]domain.FocusConfig, error) {
	url := c.baseURL + "/.well-known/matrix/client"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wellknown: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wellknown: %s returned %d", url, resp.StatusCode)
	}

	var doc map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("wellknown: decode: %w", err)
	}
	raw, ok := doc[FociKey]
	if !ok {
		return nil, nil
	}
	var entries []fociEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("wellknown: decode foci: %w", err)
	}

	out := make([]domain.FocusConfig, 0, len(entries))
	for _, e := range entries {
		switch e.Type {
		case "livekit":
			out = append(out, domain.FocusConfig{Kind: domain.FocusKindSFU, ServiceURL: e.LivekitServiceURL})
		case domain.FocusKindSFU:
			out = append(out, domain.FocusConfig{Kind: domain.FocusKindSFU, ServiceURL: e.ServiceURL})
		default:
			log.Debug().Str("module", "adapters.wellknown").Str("type", e.Type).Msg("unsupported focus kind skipped")
		}
	}
	return out, nil
}
