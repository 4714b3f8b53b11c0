package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"chatcore/internal/config"
	"chatcore/internal/httpserver"
	"chatcore/internal/realtime"
	"chatcore/internal/security"
	"chatcore/internal/service"
	"chatcore/internal/store/sqlite"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	db, err := sqlite.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := sqlite.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	convRepo := sqlite.NewConversationRepo(db)
	memberRepo := sqlite.NewMemberRepo(db)
	groupRepo := sqlite.NewGroupRepo(db)
	msgRepo := sqlite.NewMessageRepo(db)

	tokens := security.NewTokenService(cfg.JWTSecret)

	registry := realtime.NewRegistry()
	resolver := realtime.NewResolver(convRepo, memberRepo, groupRepo)
	engine := realtime.NewBroadcaster(registry, memberRepo)
	bridge := realtime.NewBridge(resolver, engine, groupRepo)
	bus := realtime.NewBus(cfg.EventBuffer, bridge)
	go bus.Run(ctx)

	msgSvc := service.NewMessageService(convRepo, memberRepo, msgRepo, bus, cfg.MaxMessageChars)
	convSvc := service.NewConversationService(convRepo, memberRepo, groupRepo, msgRepo, bus)

	lifecycle := realtime.NewLifecycle(registry, tokens, cfg.PermissiveWSAuth, cfg.TestUserID)
	wsRouter := realtime.NewRouter(resolver, engine, msgSvc)
	wsHandler := realtime.NewHandler(lifecycle, wsRouter, realtime.HandlerConfig{
		AllowedOrigins:   cfg.CORSOrigins,
		ReadLimit:        cfg.ReadLimit,
		PingPeriod:       cfg.PingPeriod,
		PongWait:         cfg.PongWait,
		HandshakeTimeout: cfg.HandshakeTimeout,
	})

	router := httpserver.NewRouter(cfg, tokens, convSvc, wsHandler)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	bus.Wait()
	log.Info().Msg("server exited")
}
