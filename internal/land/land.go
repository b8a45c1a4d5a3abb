// Package land implements the Land Orchestrator: the top-level entry point
// wiring the canonicalizer, dictionary, scheduler and scorer around a
// Land's lifecycle (create_land, add_term, add_url, crawl, readable,
// consolidate, delete, export hook), plus the domain-crawl and
// heuristic-update supplemented operations.
package land

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/landcrawl/landcrawl/internal/canonical"
	"github.com/landcrawl/landcrawl/internal/domain"
	"github.com/landcrawl/landcrawl/internal/lemma"
	"github.com/landcrawl/landcrawl/internal/relevance"
	"github.com/landcrawl/landcrawl/internal/scheduler"
	"github.com/landcrawl/landcrawl/internal/seed"
	"github.com/landcrawl/landcrawl/internal/store"
)

const landDirPerm = 0o755

// Orchestrator is the engine's top-level entry point: one instance per
// process, holding the shared Store, Scheduler, Stemmer and heuristics the
// CLI's object/verb handlers call into.
type Orchestrator struct {
	store        store.Store
	scheduler    *scheduler.Scheduler
	stemmer      *lemma.Stemmer
	scorer       *relevance.Scorer
	heuristics   []canonical.Heuristic
	feedExpander *seed.FeedExpander
	dataLocation string
	logger       *zerolog.Logger
}

// New constructs an Orchestrator from its already-wired collaborators.
func New(
	st store.Store,
	sched *scheduler.Scheduler,
	stemmer *lemma.Stemmer,
	scorer *relevance.Scorer,
	heuristics []canonical.Heuristic,
	feedExpander *seed.FeedExpander,
	dataLocation string,
	logger *zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		store:        st,
		scheduler:    sched,
		stemmer:      stemmer,
		scorer:       scorer,
		heuristics:   heuristics,
		feedExpander: feedExpander,
		dataLocation: dataLocation,
		logger:       logger,
	}
}

// CreateLand inserts a Land and ensures its per-land data subdirectory
// (for optional archived-HTML snapshots) exists.
func (o *Orchestrator) CreateLand(ctx context.Context, name, description string, langs []string) (domain.Land, error) {
	l, err := o.store.CreateLand(ctx, domain.Land{Name: name, Description: description, Lang: langs})
	if err != nil {
		return domain.Land{}, err
	}

	if err := os.MkdirAll(o.landDir(l.ID), landDirPerm); err != nil {
		o.logger.Warn().Err(err).Str("land", l.ID).Msg("create land data directory")
	}

	return l, nil
}

func (o *Orchestrator) landDir(landID string) string {
	return filepath.Join(o.dataLocation, "lands", landID)
}

// DeleteLand cascades delete of a Land and everything scoped to it.
func (o *Orchestrator) DeleteLand(ctx context.Context, landID string) error {
	if err := o.store.DeleteLand(ctx, landID); err != nil {
		return err
	}

	if err := os.RemoveAll(o.landDir(landID)); err != nil {
		o.logger.Warn().Err(err).Str("land", landID).Msg("remove land data directory")
	}

	return nil
}

// DeleteExpressions deletes Expressions within a Land matching filter
// (e.g. below a relevance threshold), the selective variant of land
// deletion.
func (o *Orchestrator) DeleteExpressions(ctx context.Context, filter store.ExpressionFilter) (int, error) {
	return o.store.DeleteExpressions(ctx, filter)
}

// AddTerm inserts one Word per term (lemma = stemmed, whitespace-joined
// tokens), adds LandDictionary memberships in a single transaction, then
// triggers a relevance recompute (a consolidation pass) over every
// expression in the land that has stored readable content, so existing
// expressions immediately reflect the richer dictionary and previously
// unapproved ones can become approved (relevance monotonicity: this can
// only raise scores).
func (o *Orchestrator) AddTerm(ctx context.Context, l domain.Land, terms []string) error {
	words := make([]domain.Word, 0, len(terms))

	err := o.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		for _, term := range terms {
			term = strings.TrimSpace(term)
			if term == "" {
				continue
			}

			lemmaValue := o.stemmer.StemTerm(term)

			w, err := tx.GetOrCreateWord(ctx, term, lemmaValue)
			if err != nil {
				return fmt.Errorf("get or create word %q: %w", term, err)
			}

			words = append(words, w)
		}

		return tx.AddToDictionary(ctx, l.ID, words)
	})
	if err != nil {
		return fmt.Errorf("add term: %w", err)
	}

	dict, err := o.Dictionary(ctx, l.ID)
	if err != nil {
		return fmt.Errorf("load dictionary after add term: %w", err)
	}

	if _, err := o.scheduler.Consolidate(ctx, l, dict); err != nil {
		o.logger.Warn().Err(err).Str("land", l.ID).Msg("relevance recompute after add_term")
	}

	return nil
}

// Dictionary loads the land's current Word set as a Scorer-ready
// lemma.Dictionary.
func (o *Orchestrator) Dictionary(ctx context.Context, landID string) (lemma.Dictionary, error) {
	words, err := o.store.LandDictionary(ctx, landID)
	if err != nil {
		return lemma.Dictionary{}, err
	}

	lemmas := make([]string, 0, len(words))
	for _, w := range words {
		lemmas = append(lemmas, w.Lemma)
	}

	return lemma.NewDictionary(lemmas), nil
}

// AddURL ensures a pending depth-0 Expression exists for each of urls in
// land. A url that itself resolves to an RSS/Atom feed is expanded into
// its item links first, so operators can seed a land from a feed's index
// page instead of enumerating every item URL.
func (o *Orchestrator) AddURL(ctx context.Context, l domain.Land, urls []string) (created int, err error) {
	expanded := make([]string, 0, len(urls))

	for _, raw := range urls {
		if o.feedExpander != nil {
			if items, ok := o.feedExpander.Expand(ctx, raw); ok {
				expanded = append(expanded, items...)
				continue
			}
		}

		expanded = append(expanded, raw)
	}

	for _, raw := range expanded {
		canonicalURL := canonical.Canonicalize(raw)
		if !canonical.IsCrawlable(canonicalURL) {
			continue
		}

		if _, err := o.store.GetExpressionByURL(ctx, l.ID, canonicalURL); err == nil {
			continue
		}

		domainName := canonical.DomainOf(canonicalURL, o.heuristics)

		webDomain, err := o.store.GetOrCreateDomain(ctx, domainName)
		if err != nil {
			o.logger.Warn().Err(err).Str("url", canonicalURL).Msg("add_url: get or create domain")
			continue
		}

		if _, err := o.store.CreateExpression(ctx, domain.Expression{
			LandID:   l.ID,
			URL:      canonicalURL,
			DomainID: webDomain.ID,
			Depth:    0,
		}); err != nil {
			o.logger.Warn().Err(err).Str("url", canonicalURL).Msg("add_url: create expression")
			continue
		}

		created++
	}

	return created, nil
}

// Crawl runs the Batch Scheduler's normal fetch-and-enrich pass over land.
func (o *Orchestrator) Crawl(ctx context.Context, l domain.Land, limit int, httpStatusFilter string, depth *int) (processed, errored int, err error) {
	dict, err := o.Dictionary(ctx, l.ID)
	if err != nil {
		return 0, 0, fmt.Errorf("load dictionary: %w", err)
	}

	return o.scheduler.Crawl(ctx, l, dict, depth, limit, httpStatusFilter)
}

// Readable runs the readable-reprocess mode over land.
func (o *Orchestrator) Readable(ctx context.Context, l domain.Land, strategy scheduler.MergeStrategy, limit int) (processed, errored int, err error) {
	dict, err := o.Dictionary(ctx, l.ID)
	if err != nil {
		return 0, 0, fmt.Errorf("load dictionary: %w", err)
	}

	return o.scheduler.Reprocess(ctx, l, dict, strategy, limit)
}

// Consolidate runs the consolidation mode over land.
func (o *Orchestrator) Consolidate(ctx context.Context, l domain.Land) (processed int, err error) {
	dict, err := o.Dictionary(ctx, l.ID)
	if err != nil {
		return 0, fmt.Errorf("load dictionary: %w", err)
	}

	return o.scheduler.Consolidate(ctx, l, dict)
}

// Stats reports the per-Land expression totals and HTTP-status histogram
// shown by the land listing.
func (o *Orchestrator) Stats(ctx context.Context, landID string) (total int, byStatus map[string]int, err error) {
	return o.store.CountExpressions(ctx, landID)
}

// ListLands returns every configured Land, for the `land list` verb.
func (o *Orchestrator) ListLands(ctx context.Context) ([]domain.Land, error) {
	return o.store.ListLands(ctx)
}

// GetLand fetches a Land by name, the shape every CLI verb taking --land
// resolves against.
func (o *Orchestrator) GetLand(ctx context.Context, name string) (domain.Land, error) {
	return o.store.GetLandByName(ctx, name)
}

// EngineStats aggregates per-land Expression totals for the /stats
// endpoint, satisfying observability.StatsSource.
func (o *Orchestrator) EngineStats(ctx context.Context) (map[string]any, error) {
	lands, err := o.store.ListLands(ctx)
	if err != nil {
		return nil, fmt.Errorf("list lands: %w", err)
	}

	perLand := make(map[string]any, len(lands))

	for _, l := range lands {
		total, byStatus, err := o.store.CountExpressions(ctx, l.ID)
		if err != nil {
			o.logger.Warn().Err(err).Str("land", l.ID).Msg("stats: count expressions")
			continue
		}

		perLand[l.Name] = map[string]any{
			"total":      total,
			"by_status":  byStatus,
		}
	}

	return map[string]any{"lands": perLand}, nil
}
