// Package scheduler implements the Batch Scheduler: it selects pending
// Expressions depth-by-depth, dispatches each depth's work in
// parallel-connections-sized batches with a barrier between batches. It
// also drives the consolidation and readable-reprocess modes, which page
// through a Land's Expressions one at a time in stored (created_at, id)
// order rather than by depth; of the two, only readable reprocessing
// fetches.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/landcrawl/landcrawl/internal/domain"
	"github.com/landcrawl/landcrawl/internal/ladder"
	"github.com/landcrawl/landcrawl/internal/lemma"
	"github.com/landcrawl/landcrawl/internal/observability"
	"github.com/landcrawl/landcrawl/internal/processor"
	"github.com/landcrawl/landcrawl/internal/relevance"
	"github.com/landcrawl/landcrawl/internal/store"
)

const pageSize = 100

// Scheduler runs batch-barrier traversals of a Land's Expressions.
type Scheduler struct {
	store     store.Store
	processor *processor.Processor
	ladder    *ladder.Ladder
	scorer    *relevance.Scorer
	batchSize int
	limiter   *rate.Limiter
	logger    *zerolog.Logger
}

// New constructs a Scheduler. batchSize is the engine's
// parallel_connections value: both the concurrency cap within one batch
// and the batch size itself. ld and scorer back the readable-reprocess and
// consolidation modes, which run outside the ordinary Processor flow.
func New(st store.Store, proc *processor.Processor, ld *ladder.Ladder, scorer *relevance.Scorer, batchSize int, rps float64, logger *zerolog.Logger) *Scheduler {
	if batchSize <= 0 {
		batchSize = 1
	}

	return &Scheduler{
		store:     st,
		processor: proc,
		ladder:    ld,
		scorer:    scorer,
		batchSize: batchSize,
		limiter:   rate.NewLimiter(rate.Limit(rps), batchSize),
		logger:    logger,
	}
}

// Crawl processes Expressions matching (fetched_at is null) or
// (http_status == httpStatusFilter, when non-empty) for land, ascending by
// depth, stopping early once limit Expressions have succeeded (limit <= 0
// means unbounded). When depth is non-nil, only that depth is processed.
// It returns the number processed and the number that ended in a
// non-content outcome.
//
// Pending depths are re-enumerated after each depth completes, so children
// spawned at depth d+1 while processing depth d are crawled within the
// same run. Each depth's candidate set is snapshotted before its first
// batch: an Expression that fails again with the filtered status is not
// re-selected until the next invocation.
func (s *Scheduler) Crawl(ctx context.Context, land domain.Land, dict lemma.Dictionary, depth *int, limit int, httpStatusFilter string) (processed, errored int, err error) {
	baseFilter := store.ExpressionFilter{LandID: land.ID, Pending: true, HTTPStatus: httpStatusFilter}

	succeeded := 0
	lastDepth := -1

	for {
		d, found, derr := s.nextDepth(ctx, baseFilter, depth, lastDepth)
		if derr != nil {
			return processed, errored, derr
		}

		if !found {
			return processed, errored, nil
		}

		lastDepth = d

		candidates, cerr := s.collectDepth(ctx, baseFilter, d)
		if cerr != nil {
			return processed, errored, cerr
		}

		for start := 0; start < len(candidates); start += s.batchSize {
			if limit > 0 && succeeded >= limit {
				return processed, errored, nil
			}

			end := start + s.batchSize
			if end > len(candidates) {
				end = len(candidates)
			}

			ok, fail := s.runBatch(ctx, land, dict, candidates[start:end])
			processed += ok + fail
			errored += fail
			succeeded += ok

			if ctx.Err() != nil {
				return processed, errored, nil
			}
		}

		if depth != nil {
			return processed, errored, nil
		}
	}
}

// collectDepth snapshots every candidate Expression at depth d in stable
// order, paging through the store in pageSize windows.
func (s *Scheduler) collectDepth(ctx context.Context, baseFilter store.ExpressionFilter, d int) ([]domain.Expression, error) {
	var out []domain.Expression

	offset := 0

	for {
		filter := baseFilter
		filter.Depth = &d
		filter.Limit = pageSize
		filter.Offset = offset

		batch, err := s.store.ListExpressions(ctx, filter)
		if err != nil {
			return nil, err
		}

		out = append(out, batch...)

		if len(batch) < pageSize {
			return out, nil
		}

		offset += len(batch)
	}
}

// runBatch processes one batch to completion (the barrier): it returns only
// after every Expression in the batch has been processed, so the next depth
// never starts before this one finishes.
func (s *Scheduler) runBatch(ctx context.Context, land domain.Land, dict lemma.Dictionary, batch []domain.Expression) (succeeded, failed int) {
	start := time.Now()
	defer func() { observability.BatchDuration.Observe(time.Since(start).Seconds()) }()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		okCount   int
		failCount int
	)

	for _, expr := range batch {
		if ctx.Err() != nil {
			break
		}

		if err := s.limiter.Wait(ctx); err != nil {
			break
		}

		wg.Add(1)

		go func(e domain.Expression) {
			defer wg.Done()

			ok := s.processor.Process(ctx, land, dict, e)

			mu.Lock()
			if ok {
				okCount++
				observability.ExpressionsProcessedTotal.Inc()
			} else {
				failCount++
				observability.ExpressionsErroredTotal.Inc()
			}
			mu.Unlock()
		}(expr)
	}

	wg.Wait()

	return okCount, failCount
}

// nextDepth resolves the next depth to process: the caller's explicit
// depth (exactly once), or the smallest pending depth strictly greater
// than lastDepth. Strict ascent guarantees termination even when filtered
// re-crawls leave the same Expressions eligible.
func (s *Scheduler) nextDepth(ctx context.Context, baseFilter store.ExpressionFilter, depth *int, lastDepth int) (int, bool, error) {
	if depth != nil {
		return *depth, lastDepth == -1, nil
	}

	depths, err := s.store.DistinctPendingDepths(ctx, baseFilter)
	if err != nil {
		return 0, false, err
	}

	for _, d := range depths {
		if d > lastDepth {
			return d, true, nil
		}
	}

	return 0, false, nil
}
