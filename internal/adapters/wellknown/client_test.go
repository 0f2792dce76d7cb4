package wellknown

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aaron777collins/haos-rtc/internal/domain"
)

func TestRTCFociNormalizesLivekit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/matrix/client" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{
			"m.homeserver": {"base_url": "https://example.com"},
			"org.matrix.msc4143.rtc_foci": [
				{"type": "livekit", "livekit_service_url": "wss://sfu.example.com"},
				{"type": "nextgen", "service_url": "wss://other"}
			]
		}`))
	}))
	defer srv.Close()

	foci, err := NewClient(srv.URL).RTCFoci(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(foci) != 1 {
		t.Fatalf("foci = %v, want one normalized sfu entry", foci)
	}
	if foci[0].Kind != domain.FocusKindSFU || foci[0].ServiceURL != "wss://sfu.example.com" {
		t.Fatalf("foci[0] = %v", foci[0])
	}
}

func TestRTCFociMissingKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"m.homeserver": {"base_url": "https://example.com"}}`))
	}))
	defer srv.Close()

	foci, err := NewClient(srv.URL).RTCFoci(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(foci) != 0 {
		t.Fatalf("foci = %v, want none", foci)
	}
}

func TestRTCFociServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).RTCFoci(context.Background()); err == nil {
		t.Fatal("expected error on 500")
	}
}
