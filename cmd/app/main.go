package main

import (
	"glow/config"
	"glow/di"
	"glow/shared/logger"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Get()

	logger.InitLogger()

	logger.SetLogLevel(cfg)

	app := di.InitializeApp()

	if err := app.Scheduler.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start background sweeps.")
	}

	defer app.Scheduler.Stop()

	app.HTTP.Serve()
}
