package land

import (
	"context"
	"fmt"
	"time"

	"github.com/landcrawl/landcrawl/internal/domain"
	"github.com/landcrawl/landcrawl/internal/store"
)

// MediaAnalyzerBounds carries the analyzer's configured limits through to
// the external analyzer; the engine never interprets them itself.
type MediaAnalyzerBounds struct {
	MinWidth   int
	MinHeight  int
	MaxBytes   int64
	Timeout    time.Duration
	MaxRetries int
}

// MediaAnalyzer is the external collaborator performing byte-level media
// analysis (dimensions, dominant color, EXIF). AnalyzeMedia below is only
// the delegation point the `land medianalyse` CLI verb needs: selecting
// which Media rows need analysis and persisting whatever the analyzer
// reports back.
type MediaAnalyzer interface {
	Analyze(ctx context.Context, m domain.Media, bounds MediaAnalyzerBounds) (domain.Media, error)
}

// AnalyzeMedia runs analyzer over every not-yet-analyzed Media row
// belonging to land's Expressions, persisting whatever fields analyzer
// fills in. A single Media row's analyzer error is logged and skipped, not
// fatal to the pass.
func (o *Orchestrator) AnalyzeMedia(ctx context.Context, analyzer MediaAnalyzer, l domain.Land, bounds MediaAnalyzerBounds) (analyzed int, err error) {
	if analyzer == nil {
		return 0, fmt.Errorf("analyze media: no analyzer configured")
	}

	offset := 0

	for {
		batch, err := o.store.ListExpressions(ctx, store.ExpressionFilter{
			LandID: l.ID,
			Limit:  heuristicPageSize,
			Offset: offset,
		})
		if err != nil {
			return analyzed, fmt.Errorf("list expressions: %w", err)
		}

		if len(batch) == 0 {
			break
		}

		for _, expr := range batch {
			media, err := o.store.ListMedia(ctx, expr.ID)
			if err != nil {
				o.logger.Warn().Err(err).Str("expression", expr.ID).Msg("medianalyse: list media")
				continue
			}

			for _, m := range media {
				if m.AnalyzedAt != nil {
					continue
				}

				result, err := analyzer.Analyze(ctx, m, bounds)
				if err != nil {
					o.logger.Debug().Err(err).Str("url", m.URL).Msg("medianalyse: analyze failed")
					continue
				}

				result.ID = m.ID

				if err := o.store.UpdateMedia(ctx, result); err != nil {
					o.logger.Warn().Err(err).Str("url", m.URL).Msg("medianalyse: persist analyzed media")
					continue
				}

				analyzed++
			}
		}

		offset += len(batch)
	}

	return analyzed, nil
}
