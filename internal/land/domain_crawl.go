package land

import (
	"context"
	"time"

	"github.com/landcrawl/landcrawl/internal/domain"
	"github.com/landcrawl/landcrawl/internal/ladder"
)

// CrawlDomains fetches the root page of every Domain referenced by land
// that has not yet been fetched (or, when httpStatusFilter is non-empty,
// whose stored status matches it), populating http_status, title,
// description, keywords and fetched_at.
func (o *Orchestrator) CrawlDomains(ctx context.Context, ld *ladder.Ladder, landID string, limit int, httpStatusFilter string) (processed int, err error) {
	domains, err := o.store.ListLandDomains(ctx, landID)
	if err != nil {
		return 0, err
	}

	for _, d := range domains {
		if limit > 0 && processed >= limit {
			break
		}

		if !domainNeedsCrawl(d, httpStatusFilter) {
			continue
		}

		result := ld.Run(ctx, "https://"+d.Name)

		now := time.Now()
		d.HTTPStatus = result.Status
		d.FetchedAt = &now

		if result.Title != "" {
			d.Title = result.Title
		}

		if result.Description != "" {
			d.Description = result.Description
		}

		if result.Keywords != "" {
			d.Keywords = result.Keywords
		}

		if err := o.store.UpdateDomain(ctx, d); err != nil {
			o.logger.Warn().Err(err).Str("domain", d.Name).Msg("persist crawled domain")
			continue
		}

		processed++
	}

	return processed, nil
}

func domainNeedsCrawl(d domain.WebDomain, httpStatusFilter string) bool {
	if httpStatusFilter != "" {
		return d.HTTPStatus == httpStatusFilter
	}

	return d.FetchedAt == nil
}
