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
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	router "github.com/meetwise/signaling/internal/adapters/http"
	ws "github.com/meetwise/signaling/internal/adapters/signal"
	"github.com/meetwise/signaling/internal/app"
	"github.com/meetwise/signaling/internal/config"
	"github.com/meetwise/signaling/internal/egress"
	"github.com/meetwise/signaling/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	meetings, err := store.New(db)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	coord := app.NewCoordinator(meetings)
	gateway := ws.NewGateway(coord, cfg)
	go gateway.RunSweeper(ctx)

	api := &router.API{
		Cfg:    cfg,
		Store:  meetings,
		Egress: egress.NewClient(cfg.EgressURL),
		GW:     gateway,
	}

	r := router.SetupRouter(ctx, cfg, api)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("signaling server started")
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
	log.Info().Msg("Server exited gracefully")
}
