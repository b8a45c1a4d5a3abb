// Package ladder implements the Fetch Ladder: the deterministic chain of
// extraction attempts applied to one URL (direct fetch -> readability ->
// structural HTML fallback -> archival mirror -> give up), plus the
// metadata fallback chain and link/media extraction shared by every stage
// that produces HTML.
//
// Each stage returns a Result rather than raising: the Processor never
// needs to distinguish "stage failed" from "stage had nothing to say", it
// only inspects Result.Readable/Result.Status.
package ladder

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/landcrawl/landcrawl/internal/domain"
)

const (
	minContentLength = 100

	statusTransportFailure = "000"
	statusSymbolicError    = "ERR"

	// Per-stage timeouts.
	DefaultTotalTimeout    = 15 * time.Second
	DefaultArchivalTimeout = 10 * time.Second
)

// MediaRef is one media reference discovered during extraction.
type MediaRef struct {
	URL  string
	Type domain.MediaType
}

// Result is the ladder's outcome for one URL. It behaves like a tagged
// union over the stage outcomes (success, no content, failure): Status is
// always set; Readable is non-empty only on a successful stage.
type Result struct {
	Status      string
	HTML        string
	Readable    string
	Title       string
	Description string
	Keywords    string
	Lang        string
	PublishedAt time.Time
	Links       []string
	Media       []MediaRef

	// Stage records which stage produced content, for logging only.
	Stage string
}

// HasContent reports whether the ladder produced usable readable content.
func (r Result) HasContent() bool {
	return r.Readable != ""
}

// Config bundles the Ladder's tunables, sourced from the engine Config.
type Config struct {
	UserAgent       string
	TotalTimeout    time.Duration
	ArchivalTimeout time.Duration
	ArchiveRawHTML  bool
}

// Ladder runs the extraction chain for a single URL using a shared,
// connection-pooled HTTP client.
type Ladder struct {
	cfg        Config
	httpClient *http.Client
	logger     *zerolog.Logger
}

// New constructs a Ladder. client is the shared HTTP client supplied by
// the caller; the Ladder never constructs its own.
func New(cfg Config, client *http.Client, logger *zerolog.Logger) *Ladder {
	if cfg.TotalTimeout <= 0 {
		cfg.TotalTimeout = DefaultTotalTimeout
	}

	if cfg.ArchivalTimeout <= 0 {
		cfg.ArchivalTimeout = DefaultArchivalTimeout
	}

	return &Ladder{
		cfg:        cfg,
		httpClient: client,
		logger:     logger,
	}
}

// Run executes the full ladder for rawURL: direct fetch, then readability,
// structural fallback and archival mirror as needed, and finally the
// metadata enrichment pass. It never returns an error; all failure modes
// are encoded in the returned Result.Status.
func (l *Ladder) Run(ctx context.Context, rawURL string) Result {
	base, err := url.Parse(rawURL)
	if err != nil {
		return Result{Status: statusSymbolicError}
	}

	ctx, cancel := context.WithTimeout(ctx, l.cfg.TotalTimeout)
	defer cancel()

	status, body, contentType, ferr := l.directFetch(ctx, rawURL)

	result := Result{Status: status}

	if ferr != nil || body == nil {
		return result
	}

	if status != "200" {
		// HttpNon200: content, if any, is not used for direct extraction;
		// the archival mirror stage may still salvage content below.
		return l.tryArchival(ctx, base, result)
	}

	if !isHTMLContentType(contentType) {
		return l.tryArchival(ctx, base, result)
	}

	if stageResult, ok := l.readabilityStage(body, base); ok {
		stageResult.Status = status
		l.enrichMetadata(&stageResult, string(body), base)
		l.attachRawHTML(&stageResult, body)

		return stageResult
	}

	if stageResult, ok := l.structuralStage(body, base); ok {
		stageResult.Status = status
		l.enrichMetadata(&stageResult, string(body), base)
		l.attachRawHTML(&stageResult, body)

		return stageResult
	}

	return l.tryArchival(ctx, base, result)
}

// attachRawHTML replaces the result's HTML with the raw body only when the
// engine's archive flag is set; otherwise HTML keeps what the stage set
// (the readability stage's main-content projection, or the full body for
// the structural stage).
func (l *Ladder) attachRawHTML(result *Result, body []byte) {
	if l.cfg.ArchiveRawHTML {
		result.HTML = string(body)
	}
}

func isHTMLContentType(ct string) bool {
	return strings.Contains(strings.ToLower(ct), "html")
}
