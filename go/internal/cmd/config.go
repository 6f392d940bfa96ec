package main

import (
	"time"

	"github.com/mcdev12/reflex/go/internal/config"
	"github.com/mcdev12/reflex/go/internal/events"
	"github.com/mcdev12/reflex/go/internal/gateway"
	"github.com/mcdev12/reflex/go/internal/leaderboard"
)

func gatewayConfig(cfg *config.Config) gateway.Config {
	gw := gateway.DefaultConfig()
	gw.ConnectionConfig.KeysPerSecond = cfg.KeysPerSecond
	gw.ConnectionConfig.KeyBurst = cfg.KeyBurst
	gw.ConnectionConfig.SendBufferSize = cfg.SendBufferSize
	gw.ConnectionConfig.RecorderTimeout = cfg.RecorderTimeout
	gw.LeaderboardTopN = leaderboard.NormalizeTopN(cfg.LeaderboardTopN)
	return gw
}

func jetStreamConfig(cfg *config.Config) events.JetStreamConfig {
	js := events.DefaultJetStreamConfig()
	js.URL = cfg.NATSURL
	return js
}

func notifierConfig(cfg *config.Config) leaderboard.NotifierConfig {
	n := leaderboard.DefaultNotifierConfig()
	n.DatabaseURL = cfg.Database.DSN()
	return n
}

const (
	shutdownTimeout = 10 * time.Second
	replayTimeout   = 5 * time.Second
)
