package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mcdev12/reflex/go/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := setupServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up services")
	}
	defer services.Close()

	var wg sync.WaitGroup
	runBackground(ctx, &wg, services)

	server := setupServer(cfg.Port, services)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("reflex server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	// The gateway closes every open session on its way out.
	cancel()
	wg.Wait()

	log.Info().Msg("reflex shutdown complete")
}

func runBackground(ctx context.Context, wg *sync.WaitGroup, services *Services) {
	wg.Add(2)
	go func() {
		defer wg.Done()
		services.Gateway.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := services.Dispatcher.Run(ctx); err != nil {
			log.Error().Err(err).Msg("event dispatcher failed")
		}
	}()

	if services.Notifier != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := services.Notifier.Start(ctx); err != nil {
				log.Error().Err(err).Msg("leaderboard notifier failed")
			}
		}()
	}
}
