package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/aaron777collins/haos-rtc/internal/adapters/httpapi"
	"github.com/aaron777collins/haos-rtc/internal/adapters/loopback"
	"github.com/aaron777collins/haos-rtc/internal/adapters/olmbox"
	"github.com/aaron777collins/haos-rtc/internal/adapters/wellknown"
	"github.com/aaron777collins/haos-rtc/internal/app"
	"github.com/aaron777collins/haos-rtc/internal/app/bus"
	"github.com/aaron777collins/haos-rtc/internal/config"
	"github.com/aaron777collins/haos-rtc/internal/core"
	"github.com/aaron777collins/haos-rtc/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	localUser := domain.UserID(cfg.LocalUser)
	localDevice := domain.DeviceID(cfg.LocalDevice)

	// The loopback hub stands in for a homeserver connection: rooms,
	// device directory and to-device delivery are all in-process.
	hub := loopback.NewHub(localUser, localDevice)
	hub.AdvertiseFocus(domain.FocusConfig{Kind: domain.FocusKindSFU, ServiceURL: "wss://sfu.dev.localhost"})

	deviceCrypto, err := olmbox.New()
	if err != nil {
		log.Fatal().Err(err).Msg("device crypto init failed")
	}

	var wk core.WellKnown = hub
	if cfg.WellKnownURL != "" {
		wk = wellknown.NewClient(cfg.WellKnownURL)
		log.Info().Str("url", cfg.WellKnownURL).Msg("using remote well-known for focus discovery")
	}

	b := bus.New()
	manager := app.NewManager(app.Deps{
		Client:           hub,
		WellKnown:        wk,
		Directory:        hub,
		Sender:           hub,
		Crypto:           deviceCrypto,
		Bus:              b,
		RotationInterval: cfg.RotationInterval,
	})

	// Route envelopes addressed to our own device into the ingestion path.
	hub.RegisterDevice(localUser, localDevice, func(eventType string, env core.Envelope) {
		manager.OnToDeviceMessage(context.Background(), eventType, env)
	})

	r := httpapi.SetupRouter(ctx, cfg, manager)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("rtcd server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	manager.DestroyAll(context.Background())
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
