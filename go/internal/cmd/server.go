package main

import (
	"fmt"
	"net/http"

	"github.com/mcdev12/reflex/go/internal/events"
	"github.com/mcdev12/reflex/go/internal/leaderboard"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func setupServer(port string, services *Services) *http.Server {
	mux := http.NewServeMux()

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	registerServices(mux, services)

	// h2c only intercepts "Upgrade: h2c", so WebSocket upgrades reach the
	// gateway untouched.
	handler := c.Handler(mux)

	return &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}

func registerServices(mux *http.ServeMux, services *Services) {
	leaderboardPath, leaderboardHandler := leaderboard.NewServiceHandler(services.Leaderboard)
	mux.Handle(leaderboardPath, leaderboardHandler)

	services.Gateway.RegisterRoutes(mux)

	mux.Handle("/metrics", services.Metrics.Handler())
	mux.Handle("/health", services.Health)

	if services.Replayer != nil {
		mux.Handle(events.ReplayRoute, events.NewReplayHandler(services.Replayer, replayTimeout))
	}
}
