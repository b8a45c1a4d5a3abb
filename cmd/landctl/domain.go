package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"

	"github.com/landcrawl/landcrawl/internal/ladder"
)

func runDomain(ctx context.Context, a *app, verb string, args []string) error {
	switch verb {
	case "crawl":
		return domainCrawl(ctx, a, args)
	default:
		return fmt.Errorf("domain: unknown verb %q", verb)
	}
}

func domainCrawl(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("domain crawl", flag.ContinueOnError)
	name := fs.String("land", "", "land name")
	limit := fs.Int("limit", 0, "max domains to crawl (0 = unbounded)")
	httpStatus := fs.String("http", "", "only recrawl domains with this http status")

	if err := fs.Parse(args); err != nil {
		return err
	}

	l, err := requireLand(ctx, a, *name)
	if err != nil {
		return err
	}

	ld := ladder.New(ladder.Config{
		UserAgent:       a.cfg.UserAgent,
		TotalTimeout:    a.cfg.DefaultTimeout,
		ArchivalTimeout: a.cfg.ArchivalTimeout,
	}, &http.Client{Timeout: a.cfg.DefaultTimeout}, a.logger)

	processed, err := a.orchestrator.CrawlDomains(ctx, ld, l.ID, *limit, *httpStatus)
	if err != nil {
		return fmt.Errorf("domain crawl: %w", err)
	}

	fmt.Printf("crawled %d domain(s)\n", processed)

	return nil
}
