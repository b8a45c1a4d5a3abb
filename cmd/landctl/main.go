// Command landctl is the engine's CLI front end: an object/verb dispatcher
// over the Land Orchestrator, with a signal-handled context and a health
// server running alongside every invocation.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/landcrawl/landcrawl/internal/config"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	if len(os.Args) < 3 {
		usage()
		os.Exit(1)
	}

	object, verb := os.Args[1], os.Args[2]

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	setLogLevel(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	app, err := newApp(ctx, cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize engine")
	}
	defer app.Close()

	if err := dispatch(ctx, app, object, verb, os.Args[3:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, app *app, object, verb string, args []string) error {
	switch object {
	case "db":
		return runDB(ctx, app, verb, args)
	case "land":
		return runLand(ctx, app, verb, args)
	case "domain":
		return runDomain(ctx, app, verb, args)
	case "tag":
		return runTag(ctx, app, verb, args)
	case "heuristic":
		return runHeuristic(ctx, app, verb, args)
	default:
		usage()
		return fmt.Errorf("unknown object %q", object)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: landctl <object> <verb> [flags]

objects/verbs:
  db        setup, migrate
  land      list, create, delete, crawl, readable, export, addterm, addurl, consolidate, medianalyse
  domain    crawl
  tag       export
  heuristic update`)
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
