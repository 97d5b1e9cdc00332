package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bholsinger09/layover/internal/adapters/httpapi"
	"github.com/bholsinger09/layover/internal/adapters/wsgroup"
	"github.com/bholsinger09/layover/internal/config"
	"github.com/bholsinger09/layover/internal/domain"
	"github.com/bholsinger09/layover/internal/library"
	"github.com/bholsinger09/layover/internal/playback"
	"github.com/bholsinger09/layover/internal/session"
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
		log.Fatal().Err(err).Msg("failed to load config")
	}

	user, err := domain.NewUser(cfg.Agent.DeviceName)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid device name")
	}

	lib, err := library.New(cfg.Agent.LibraryPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open content library")
	}
	defer lib.Close()

	provider := wsgroup.New(cfg.Agent.RelayURL, user.DisplayName, uuid.NewString())
	if err := provider.Connect(ctx); err != nil {
		// The agent stays useful offline: activation reports disabled
		// until the relay comes back.
		log.Warn().Err(err).Str("relay", cfg.Agent.RelayURL).Msg("relay unreachable, starting detached")
	}

	player := playback.LogCoordinator{}
	reconciler := session.NewReconciler(player)
	registry := session.NewRegistry()
	registry.Subscribe(func(active bool) {
		log.Info().Bool("active", active).Msg("session presence changed")
	})

	tracker := session.NewTracker(provider, reconciler, registry, player)
	go tracker.Run(ctx)

	poller := session.NewPoller(tracker, registry, cfg.Agent.PollInterval)
	go poller.Run(ctx)

	srv := &http.Server{
		Addr: cfg.Agent.ListenAddr,
		Handler: httpapi.SetupRouter(cfg, &httpapi.Server{
			Tracker:    tracker,
			Reconciler: reconciler,
			Library:    lib,
			User:       user,
			Grace:      cfg.Agent.ActivationGrace,
		}),
	}

	go func() {
		log.Info().Str("addr", cfg.Agent.ListenAddr).Msg("Layover agent started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Agent exited gracefully")
}
