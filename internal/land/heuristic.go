package land

import (
	"context"
	"fmt"

	"github.com/landcrawl/landcrawl/internal/canonical"
	"github.com/landcrawl/landcrawl/internal/store"
)

const heuristicPageSize = 200

// UpdateHeuristic re-derives every Expression's canonical Domain name in
// land against the Orchestrator's current heuristics, reassigning the
// Expression to a (possibly newly created) WebDomain whenever the name has
// drifted. It exists to re-home Expressions after an operator edits the
// heuristics file rather than re-crawling everything from scratch.
func (o *Orchestrator) UpdateHeuristic(ctx context.Context, landID string) (updated int, err error) {
	offset := 0

	domainCache := map[string]string{} // domain name -> domain id

	for {
		batch, err := o.store.ListExpressions(ctx, store.ExpressionFilter{
			LandID: landID,
			Limit:  heuristicPageSize,
			Offset: offset,
		})
		if err != nil {
			return updated, fmt.Errorf("list expressions: %w", err)
		}

		if len(batch) == 0 {
			break
		}

		for _, expr := range batch {
			name := canonical.DomainOf(expr.URL, o.heuristics)

			domainID, ok := domainCache[name]
			if !ok {
				webDomain, err := o.store.GetOrCreateDomain(ctx, name)
				if err != nil {
					o.logger.Warn().Err(err).Str("domain", name).Msg("update_heuristic: get or create domain")
					continue
				}

				domainID = webDomain.ID
				domainCache[name] = domainID
			}

			if domainID == expr.DomainID {
				continue
			}

			expr.DomainID = domainID

			if err := o.store.UpdateExpression(ctx, expr); err != nil {
				o.logger.Warn().Err(err).Str("url", expr.URL).Msg("update_heuristic: reassign domain")
				continue
			}

			updated++
		}

		offset += len(batch)
	}

	o.logger.Info().Int("updated", updated).Str("land", landID).Msg("heuristic update complete")

	return updated, nil
}
