// Command charlotte launches the browser tool server and serves its tool
// dispatcher over stdin/stdout until the input stream closes or the
// process receives an interrupt.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	charlotte "github.com/ticktockbent/charlotte"
	"github.com/ticktockbent/charlotte/internal/config"
)

// CHARLOTTE_CONFIG names an optional YAML config file. CLI flags (parsed
// inside config.Load from os.Args) take precedence over it, so the
// flag set lives in exactly one place rather than being split between a
// top-level FlagSet here and config's own.
func main() {
	cfg, err := config.Load(os.Getenv("CHARLOTTE_CONFIG"), os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("charlotte: load config")
	}

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := charlotte.New(cfg)
	if err := srv.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("charlotte: start")
	}
	defer srv.Close()

	log.Info().Bool("headless", cfg.Headless).Msg("charlotte: serving tools on stdio")
	if err := srv.Serve(ctx, os.Stdin, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("charlotte: serve")
	}
}
