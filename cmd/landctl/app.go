package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/landcrawl/landcrawl/internal/canonical"
	"github.com/landcrawl/landcrawl/internal/config"
	"github.com/landcrawl/landcrawl/internal/ladder"
	"github.com/landcrawl/landcrawl/internal/land"
	"github.com/landcrawl/landcrawl/internal/lemma"
	"github.com/landcrawl/landcrawl/internal/observability"
	"github.com/landcrawl/landcrawl/internal/processor"
	"github.com/landcrawl/landcrawl/internal/relevance"
	"github.com/landcrawl/landcrawl/internal/relevancegate"
	"github.com/landcrawl/landcrawl/internal/scheduler"
	"github.com/landcrawl/landcrawl/internal/seed"
	"github.com/landcrawl/landcrawl/internal/store/postgres"
)

// app bundles every wired collaborator the CLI's object/verb handlers need.
// It is the landctl-specific composition root; nothing under internal/
// depends on it.
type app struct {
	cfg          *config.Config
	store        *postgres.Store
	orchestrator *land.Orchestrator
	health       *observability.Server
	logger       *zerolog.Logger
}

func newApp(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*app, error) {
	st, err := postgres.New(ctx, cfg.PostgresDSN, logger)
	if err != nil {
		return nil, fmt.Errorf("connect store: %w", err)
	}

	rawHeuristics, err := cfg.LoadHeuristics()
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("load heuristics: %w", err)
	}

	heuristics, compileErrs := canonical.CompileHeuristics(toCanonicalHeuristics(rawHeuristics))
	for _, e := range compileErrs {
		logger.Warn().Err(e).Msg("skipping malformed heuristic")
	}

	httpClient := &http.Client{Timeout: cfg.DefaultTimeout}

	ld := ladder.New(ladder.Config{
		UserAgent:       cfg.UserAgent,
		TotalTimeout:    cfg.DefaultTimeout,
		ArchivalTimeout: cfg.ArchivalTimeout,
		ArchiveRawHTML:  cfg.Archive,
	}, httpClient, logger)

	stemmer := lemma.New()
	scorer := relevance.New(stemmer)

	var gate *relevancegate.Gate
	if cfg.RelevanceGateEnabled {
		gate = relevancegate.New(cfg.RelevanceGateAPIKey, cfg.RelevanceGateBaseURL, cfg.RelevanceGateModel,
			cfg.RelevanceGateMaxPerRun, cfg.RelevanceGateTextCap, logger)
	}

	archiveDir := ""
	if cfg.Archive {
		archiveDir = cfg.DataLocation
	}

	// No headless-browser media extractor ships with landctl; the nil
	// capability keeps DYNAMIC_MEDIA_EXTRACTION a silent no-op until an
	// external implementation is plugged in here.
	proc := processor.New(st, ld, scorer, heuristics, gate, nil, archiveDir, logger)
	sched := scheduler.New(st, proc, ld, scorer, cfg.ParallelConnections, float64(cfg.ParallelConnections), logger)
	feedExpander := seed.New(cfg.UserAgent, logger)

	orchestrator := land.New(st, sched, stemmer, scorer, heuristics, feedExpander, cfg.DataLocation, logger)

	health := observability.NewServer(st, orchestrator, cfg.HealthPort)

	a := &app{
		cfg:          cfg,
		store:        st,
		orchestrator: orchestrator,
		health:       health,
		logger:       logger,
	}

	go func() {
		logger.Info().Int("port", cfg.HealthPort).Msg("starting health server")

		if err := health.Start(ctx); err != nil {
			logger.Error().Err(err).Msg("health server error")
		}
	}()

	health.SetReady(true)

	return a, nil
}

func (a *app) Close() {
	a.store.Close()
}

func toCanonicalHeuristics(raw []config.Heuristic) []canonical.RawHeuristic {
	out := make([]canonical.RawHeuristic, 0, len(raw))
	for _, r := range raw {
		out = append(out, canonical.RawHeuristic{Suffix: r.Suffix, Pattern: r.Regex})
	}

	return out
}
