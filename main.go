package main

import (
	"os"
	"time"

	"github.com/matiasinsaurralde/relatorio/pkg/app"
	"github.com/matiasinsaurralde/relatorio/pkg/config"

	"github.com/rs/zerolog"
)

// newLogger writes to stderr, stdout carries the MCP protocol and command output:
func newLogger(level zerolog.Level) zerolog.Logger {
	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	})
	return logger.Level(level).
		With().Timestamp().
		Logger()
}

func main() {
	logger := newLogger(zerolog.DebugLevel)
	cfg, err := config.Load("config.json")
	if err != nil {
		logger.Fatal().Err(err).Msg("error loading config")
	}
	logger = newLogger(cfg.Level())
	logger.Info().Msg("starting")
	app := app.New(cfg, logger)
	if err := app.Init(); err != nil {
		logger.Fatal().Err(err).Msg("initialization error")
	}
	if err := app.Run(os.Args); err != nil {
		logger.Fatal().Err(err).Msg("error running app")
	}
	logger.Info().Msg("done")
}
