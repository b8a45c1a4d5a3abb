// Package processor implements the Expression Processor: applies the Fetch
// Ladder to one pending Expression, scores relevance, writes media, and
// spawns depth-bounded child Expressions and ExpressionLinks.
package processor

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/landcrawl/landcrawl/internal/canonical"
	"github.com/landcrawl/landcrawl/internal/domain"
	"github.com/landcrawl/landcrawl/internal/ladder"
	"github.com/landcrawl/landcrawl/internal/lemma"
	"github.com/landcrawl/landcrawl/internal/observability"
	"github.com/landcrawl/landcrawl/internal/relevance"
	"github.com/landcrawl/landcrawl/internal/relevancegate"
	"github.com/landcrawl/landcrawl/internal/store"
)

// gateBaselineRelevance is the relevance score assigned when the lexical
// Scorer found nothing but the relevance gate judges the page relevant
// anyway. It is deliberately the smallest positive value: the gate only
// ever rescues a page from zero, it never outranks a lexical match.
const gateBaselineRelevance = 1

// gateConfidenceThreshold is the minimum confidence the gate must report
// before its opinion is trusted to flip an Expression into approval.
const gateConfidenceThreshold = 0.6

// maxSpawnDepth caps link traversal: children are spawned only while
// parent.depth < maxSpawnDepth, so the deepest child Expression ever
// created has depth == maxSpawnDepth and never spawns further.
const maxSpawnDepth = 3

const statusPending = "000"

// DynamicMediaExtractor is the optional headless-browser capability that
// can surface media URLs a static DOM walk never sees (script-injected
// galleries, lazy-loaded players). It is consulted only after approval,
// and its absence is silent.
type DynamicMediaExtractor interface {
	ExtractMedia(ctx context.Context, pageURL string) ([]ladder.MediaRef, error)
}

// Processor runs the ladder for one Expression at a time and persists the
// result. It holds no per-run state and is safe to share across concurrent
// invocations within a batch, provided the Store itself is safe for
// concurrent use.
type Processor struct {
	store        store.Store
	ladder       *ladder.Ladder
	scorer       *relevance.Scorer
	heuristics   []canonical.Heuristic
	gate         *relevancegate.Gate
	dynamicMedia DynamicMediaExtractor
	archiveDir   string
	logger       *zerolog.Logger
}

// New constructs a Processor. gate and dynamicMedia may be nil: both are
// optional capabilities, and a nil one is never consulted. archiveDir may
// be empty, in which case raw HTML is never written to disk regardless of
// what the ladder fetched.
func New(st store.Store, ld *ladder.Ladder, scorer *relevance.Scorer, heuristics []canonical.Heuristic, gate *relevancegate.Gate, dynamicMedia DynamicMediaExtractor, archiveDir string, logger *zerolog.Logger) *Processor {
	return &Processor{
		store:        st,
		ladder:       ld,
		scorer:       scorer,
		heuristics:   heuristics,
		gate:         gate,
		dynamicMedia: dynamicMedia,
		archiveDir:   archiveDir,
		logger:       logger,
	}
}

// Process runs the ladder against expr and persists the resulting field
// mutations. It never panics or propagates an error for a single
// Expression's failure: the boolean return is the only success signal, so
// a sibling failure can never abort a batch.
func (p *Processor) Process(ctx context.Context, land domain.Land, dict lemma.Dictionary, expr domain.Expression) bool {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Interface("panic", r).Str("url", expr.URL).Msg("recovered from panic in processor")
		}
	}()

	now := time.Now()
	expr.FetchedAt = &now
	expr.HTTPStatus = statusPending

	result := p.ladder.Run(ctx, expr.URL)
	expr.HTTPStatus = result.Status

	if !result.HasContent() {
		if err := p.store.UpdateExpression(ctx, expr); err != nil {
			p.logger.Warn().Err(err).Str("url", expr.URL).Msg("persist failed expression")
		}

		return false
	}

	p.applyContent(&expr, result)
	p.archiveRaw(expr, result)

	expr.Relevance = p.scorer.ScoreGated(expr.Title, expr.Readable, expr.Lang, land.Lang, dict)

	if expr.Relevance == 0 && p.gate != nil {
		p.consultGate(ctx, land, &expr)
	}

	media := result.Media

	if expr.Relevance > 0 {
		approvedAt := time.Now()
		expr.ApprovedAt = &approvedAt
		observability.ExpressionsApprovedTotal.Inc()

		media = append(media, p.extractDynamicMedia(ctx, expr.URL)...)
	}

	err := p.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.UpdateExpression(ctx, expr); err != nil {
			return err
		}

		if err := p.writeMedia(ctx, tx, expr, media); err != nil {
			return err
		}

		// ExpressionLinks are deleted then recreated on any successful
		// content write, never accumulated across reprocessing passes.
		if err := tx.DeleteLinksFrom(ctx, expr.ID); err != nil {
			return err
		}

		if expr.Relevance > 0 && expr.Depth < maxSpawnDepth {
			return p.spawnChildren(ctx, tx, land, expr, result.Links)
		}

		return nil
	})
	if err != nil {
		p.logger.Warn().Err(err).Str("url", expr.URL).Msg("persistence error processing expression")
		return false
	}

	return true
}

// consultGate asks the opaque relevance gate for a second opinion on an
// Expression the lexical Scorer rejected. A gate error (disabled, circuit
// open, budget exhausted) is logged at debug level and otherwise ignored:
// the gate can only ever rescue a page, never fail the crawl.
func (p *Processor) consultGate(ctx context.Context, land domain.Land, expr *domain.Expression) {
	observability.RelevanceGateCallsTotal.Inc()

	result, err := p.gate.Check(ctx, land.Name+" "+land.Description, expr.Title, expr.Readable)
	if err != nil {
		observability.RelevanceGateErrorsTotal.Inc()
		p.logger.Debug().Err(err).Str("url", expr.URL).Msg("relevance gate not consulted")

		return
	}

	if result.Relevant && result.Confidence >= gateConfidenceThreshold {
		expr.Relevance = gateBaselineRelevance
	}
}

// extractDynamicMedia runs the optional headless-browser media pass on an
// approved Expression. A nil extractor or an extraction error yields no
// extra media and never fails the Expression.
func (p *Processor) extractDynamicMedia(ctx context.Context, pageURL string) []ladder.MediaRef {
	if p.dynamicMedia == nil {
		return nil
	}

	refs, err := p.dynamicMedia.ExtractMedia(ctx, pageURL)
	if err != nil {
		p.logger.Debug().Err(err).Str("url", pageURL).Msg("dynamic media extraction failed")
		return nil
	}

	return refs
}

const (
	archiveFilePerm = 0o644
	archiveDirPerm  = 0o755
)

// archiveRaw persists a fetched page's raw HTML under the Orchestrator's
// per-land data directory, gated by the engine's archive flag (carried as
// p.archiveDir being non-empty). A write failure is logged, never fatal:
// the snapshot is a convenience, not part of the persisted entity model.
func (p *Processor) archiveRaw(expr domain.Expression, result ladder.Result) {
	if p.archiveDir == "" || result.HTML == "" {
		return
	}

	dir := filepath.Join(p.archiveDir, "lands", expr.LandID)
	if err := os.MkdirAll(dir, archiveDirPerm); err != nil {
		p.logger.Debug().Err(err).Str("url", expr.URL).Msg("create archive directory")
		return
	}

	path := filepath.Join(dir, expr.ID+".html")

	if err := os.WriteFile(path, []byte(result.HTML), archiveFilePerm); err != nil {
		p.logger.Debug().Err(err).Str("url", expr.URL).Msg("archive raw HTML")
	}
}

func (p *Processor) applyContent(expr *domain.Expression, result ladder.Result) {
	expr.Title = result.Title
	if expr.Title == "" {
		expr.Title = expr.URL
	}

	expr.Description = result.Description
	expr.Keywords = result.Keywords
	expr.Lang = result.Lang
	expr.Readable = result.Readable

	if !result.PublishedAt.IsZero() {
		published := result.PublishedAt
		expr.PublishedAt = &published
	}

	readableAt := time.Now()
	expr.ReadableAt = &readableAt
}

func (p *Processor) writeMedia(ctx context.Context, tx store.Store, expr domain.Expression, refs []ladder.MediaRef) error {
	existing, err := tx.ListMedia(ctx, expr.ID)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(existing))
	for _, m := range existing {
		seen[m.URL] = struct{}{}
	}

	for _, ref := range refs {
		if _, ok := seen[ref.URL]; ok {
			continue
		}

		seen[ref.URL] = struct{}{}

		if err := tx.CreateMedia(ctx, domain.Media{
			ExpressionID: expr.ID,
			URL:          ref.URL,
			Type:         ref.Type,
		}); err != nil {
			return err
		}
	}

	return nil
}

func (p *Processor) spawnChildren(ctx context.Context, tx store.Store, land domain.Land, parent domain.Expression, links []string) error {
	for _, raw := range links {
		if !canonical.IsCrawlable(raw) {
			continue
		}

		canonicalURL := canonical.Canonicalize(raw)

		child, err := p.ensureChildExpression(ctx, tx, land, canonicalURL, parent.Depth+1)
		if err != nil {
			continue
		}

		if err := tx.CreateLink(ctx, domain.ExpressionLink{SourceID: parent.ID, TargetID: child.ID}); err != nil {
			// IntegrityConflict on a duplicate edge is benign; any other
			// error is logged and the link is skipped, not fatal to the
			// parent's processing.
			p.logger.Debug().Err(err).Str("source", parent.ID).Str("target", child.ID).Msg("link create skipped")
		}
	}

	return nil
}

func (p *Processor) ensureChildExpression(ctx context.Context, tx store.Store, land domain.Land, url string, depth int) (domain.Expression, error) {
	existing, err := tx.GetExpressionByURL(ctx, land.ID, url)
	if err == nil {
		return existing, nil
	}

	domainName := canonical.DomainOf(url, p.heuristics)

	webDomain, err := tx.GetOrCreateDomain(ctx, domainName)
	if err != nil {
		return domain.Expression{}, err
	}

	return tx.CreateExpression(ctx, domain.Expression{
		LandID:   land.ID,
		URL:      url,
		DomainID: webDomain.ID,
		Depth:    depth,
	})
}
