package scheduler

import (
	"context"
	"net/url"
	"time"

	"github.com/landcrawl/landcrawl/internal/canonical"
	"github.com/landcrawl/landcrawl/internal/domain"
	"github.com/landcrawl/landcrawl/internal/ladder"
	"github.com/landcrawl/landcrawl/internal/lemma"
	"github.com/landcrawl/landcrawl/internal/store"
)

// MergeStrategy controls how a reprocessed Expression's new fields combine
// with its existing ones, named exactly as the CLI's --merge values.
type MergeStrategy string

const (
	// SmartMerge prefers the longer of the existing/incoming title and
	// description, but always takes the new readable body.
	SmartMerge MergeStrategy = "smart_merge"
	// MercuryPriority takes the incoming value whenever it is non-empty
	// (the extractor is trusted over whatever is already stored).
	MercuryPriority MergeStrategy = "mercury_priority"
	// PreserveExisting keeps the existing value whenever it is non-empty.
	PreserveExisting MergeStrategy = "preserve_existing"
)

func mergeField(existing, incoming string, strategy MergeStrategy) string {
	if existing == "" {
		return incoming
	}

	if incoming == "" {
		return existing
	}

	switch strategy {
	case MercuryPriority:
		return incoming
	case PreserveExisting:
		return existing
	case SmartMerge:
		fallthrough
	default:
		if len(incoming) > len(existing) {
			return incoming
		}

		return existing
	}
}

// Reprocess re-runs the ladder against every Expression in land that is
// already fetched but still has an empty Readable, and merges the result
// into the stored fields using strategy. Unlike Crawl, it never spawns
// children: it only refreshes title/description/keywords/lang/readable,
// recomputes relevance, and recreates links to already-known Expressions.
func (s *Scheduler) Reprocess(ctx context.Context, land domain.Land, dict lemma.Dictionary, strategy MergeStrategy, limit int) (processed, errored int, err error) {
	offset := 0

	for {
		if limit > 0 && processed >= limit {
			return processed, errored, nil
		}

		filter := store.ExpressionFilter{LandID: land.ID, Limit: pageSize, Offset: offset}

		batch, lerr := s.store.ListExpressions(ctx, filter)
		if lerr != nil {
			return processed, errored, lerr
		}

		if len(batch) == 0 {
			return processed, errored, nil
		}

		for _, expr := range batch {
			if ctx.Err() != nil {
				return processed, errored, nil
			}

			if limit > 0 && processed >= limit {
				return processed, errored, nil
			}

			if expr.FetchedAt == nil {
				continue
			}

			if expr.Readable != "" {
				continue
			}

			if s.reprocessOne(ctx, land, dict, expr, strategy) {
				processed++
			} else {
				errored++
			}
		}

		offset += len(batch)
	}
}

func (s *Scheduler) reprocessOne(ctx context.Context, land domain.Land, dict lemma.Dictionary, expr domain.Expression, strategy MergeStrategy) bool {
	result := s.ladder.Run(ctx, expr.URL)
	if !result.HasContent() {
		return false
	}

	expr.Title = mergeField(expr.Title, result.Title, strategy)
	expr.Description = mergeField(expr.Description, result.Description, strategy)
	expr.Keywords = mergeField(expr.Keywords, result.Keywords, strategy)

	if expr.Lang == "" {
		expr.Lang = result.Lang
	}

	// The readable body always takes the new extraction: a stale stored
	// body is never preferable to a fresh one regardless of strategy.
	expr.Readable = result.Readable

	readableAt := time.Now()
	expr.ReadableAt = &readableAt

	expr.Relevance = s.scorer.ScoreGated(expr.Title, expr.Readable, expr.Lang, land.Lang, dict)
	if expr.Relevance > 0 && expr.ApprovedAt == nil {
		approvedAt := time.Now()
		expr.ApprovedAt = &approvedAt
	} else if expr.Relevance == 0 {
		expr.ApprovedAt = nil
	}

	links := make([]string, 0, len(result.Links))

	for _, raw := range result.Links {
		if canonical.IsCrawlable(raw) {
			links = append(links, canonical.Canonicalize(raw))
		}
	}

	txErr := s.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.UpdateExpression(ctx, expr); err != nil {
			return err
		}

		if err := tx.DeleteLinksFrom(ctx, expr.ID); err != nil {
			return err
		}

		for _, target := range links {
			targetExpr, err := tx.GetExpressionByURL(ctx, land.ID, target)
			if err != nil || targetExpr.ID == expr.ID {
				continue
			}

			if err := tx.CreateLink(ctx, domain.ExpressionLink{SourceID: expr.ID, TargetID: targetExpr.ID}); err != nil {
				s.logger.Debug().Err(err).Str("source", expr.ID).Str("target", targetExpr.ID).Msg("reprocessed link skipped")
			}
		}

		return nil
	})
	if txErr != nil {
		s.logger.Warn().Err(txErr).Str("url", expr.URL).Msg("persist reprocessed expression")
		return false
	}

	return true
}

// Consolidate recomputes relevance, links and media for every Expression in
// land that already has stored readable content, without any network
// access: links and media are re-derived from the stored Markdown-like
// readable text (the same shape the readability stage produces) rather
// than from a refetch. Running it twice on stable input reproduces the
// same link and media sets, since extraction is a pure function of the
// stored readable text.
func (s *Scheduler) Consolidate(ctx context.Context, land domain.Land, dict lemma.Dictionary) (processed int, err error) {
	offset := 0

	for {
		filter := store.ExpressionFilter{LandID: land.ID, Limit: pageSize, Offset: offset}

		batch, lerr := s.store.ListExpressions(ctx, filter)
		if lerr != nil {
			return processed, lerr
		}

		if len(batch) == 0 {
			return processed, nil
		}

		for _, expr := range batch {
			if ctx.Err() != nil {
				return processed, nil
			}

			if expr.Readable == "" {
				continue
			}

			if s.consolidateOne(ctx, land, dict, expr) {
				processed++
			}
		}

		offset += len(batch)
	}
}

func (s *Scheduler) consolidateOne(ctx context.Context, land domain.Land, dict lemma.Dictionary, expr domain.Expression) bool {
	relevance := s.scorer.ScoreGated(expr.Title, expr.Readable, expr.Lang, land.Lang, dict)

	base, err := url.Parse(expr.URL)
	if err != nil {
		base = &url.URL{}
	}

	links := ladder.ExtractMarkdownLinks(expr.Readable, base)
	media := ladder.ExtractMarkdownMedia(expr.Readable, base)

	txErr := s.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		if relevance != expr.Relevance {
			expr.Relevance = relevance

			if relevance > 0 && expr.ApprovedAt == nil {
				approvedAt := time.Now()
				expr.ApprovedAt = &approvedAt
			} else if relevance == 0 {
				expr.ApprovedAt = nil
			}

			if err := tx.UpdateExpression(ctx, expr); err != nil {
				return err
			}
		}

		if err := tx.DeleteLinksFrom(ctx, expr.ID); err != nil {
			return err
		}

		for _, target := range links {
			targetExpr, err := tx.GetExpressionByURL(ctx, land.ID, target)
			if err != nil || targetExpr.ID == expr.ID {
				continue
			}

			if err := tx.CreateLink(ctx, domain.ExpressionLink{SourceID: expr.ID, TargetID: targetExpr.ID}); err != nil {
				s.logger.Debug().Err(err).Str("source", expr.ID).Str("target", targetExpr.ID).Msg("consolidated link skipped")
			}
		}

		if err := tx.DeleteMediaFor(ctx, expr.ID); err != nil {
			return err
		}

		for _, ref := range media {
			if err := tx.CreateMedia(ctx, domain.Media{ExpressionID: expr.ID, URL: ref.URL, Type: ref.Type}); err != nil {
				s.logger.Debug().Err(err).Str("expression", expr.ID).Str("url", ref.URL).Msg("consolidated media skipped")
			}
		}

		return nil
	})
	if txErr != nil {
		s.logger.Warn().Err(txErr).Str("url", expr.URL).Msg("persist consolidated expression")
		return false
	}

	return true
}
