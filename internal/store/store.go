// Package store defines the abstract persistence port the engine depends on.
// The core never imports a driver directly; cmd/landctl wires a concrete
// adapter (internal/store/postgres) behind this interface.
package store

import (
	"context"

	"github.com/landcrawl/landcrawl/internal/domain"
)

// Store is the full persistence port required by the Land Orchestrator, the
// Batch Scheduler and the Expression Processor. All methods are safe to call
// concurrently; implementations must enforce (land, url) and (source,
// target) uniqueness so that racing upserts fail benignly into GetByURL /
// benign-ignore rather than duplicate rows.
type Store interface {
	LandStore
	DomainStore
	ExpressionStore
	LinkStore
	WordStore
	MediaStore

	// WithTx runs fn inside a single atomic transaction. Nested calls to
	// WithTx on the same Store must not deadlock; implementations may
	// flatten them onto the outermost transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

type LandStore interface {
	CreateLand(ctx context.Context, l domain.Land) (domain.Land, error)
	GetLand(ctx context.Context, id string) (domain.Land, error)
	GetLandByName(ctx context.Context, name string) (domain.Land, error)
	ListLands(ctx context.Context) ([]domain.Land, error)
	DeleteLand(ctx context.Context, id string) error
}

type DomainStore interface {
	GetOrCreateDomain(ctx context.Context, name string) (domain.WebDomain, error)
	UpdateDomain(ctx context.Context, d domain.WebDomain) error
	ListLandDomains(ctx context.Context, landID string) ([]domain.WebDomain, error)
}

// ExpressionFilter selects a subset of a Land's Expressions for batching.
type ExpressionFilter struct {
	LandID       string
	Depth        *int
	HTTPStatus   string
	Pending      bool // fetched_at is null
	MaxRelevance *int // relevance <= *MaxRelevance, used by selective delete
	Limit        int
	Offset       int
}

type ExpressionStore interface {
	CreateExpression(ctx context.Context, e domain.Expression) (domain.Expression, error)
	GetExpression(ctx context.Context, id string) (domain.Expression, error)
	GetExpressionByURL(ctx context.Context, landID, url string) (domain.Expression, error)
	UpdateExpression(ctx context.Context, e domain.Expression) error
	DeleteExpressions(ctx context.Context, filter ExpressionFilter) (int, error)

	// ListExpressions returns rows matching filter in stable (created_at,
	// id) order, used both for depth enumeration and for windowed batch
	// paging.
	ListExpressions(ctx context.Context, filter ExpressionFilter) ([]domain.Expression, error)

	// DistinctPendingDepths returns the ascending distinct depths among
	// expressions matching filter (ignoring filter.Depth).
	DistinctPendingDepths(ctx context.Context, filter ExpressionFilter) ([]int, error)

	CountExpressions(ctx context.Context, landID string) (total int, byStatus map[string]int, err error)
}

type LinkStore interface {
	CreateLink(ctx context.Context, l domain.ExpressionLink) error
	DeleteLinksFrom(ctx context.Context, sourceID string) error
	ListLinksFrom(ctx context.Context, sourceID string) ([]domain.ExpressionLink, error)
}

type WordStore interface {
	GetOrCreateWord(ctx context.Context, term, lemma string) (domain.Word, error)
	AddToDictionary(ctx context.Context, landID string, words []domain.Word) error
	LandDictionary(ctx context.Context, landID string) ([]domain.Word, error)
}

type MediaStore interface {
	CreateMedia(ctx context.Context, m domain.Media) error
	// UpdateMedia persists m's analyzer fields (width, height, size,
	// dominant color, analyzed_at) onto an already-existing row, matched by
	// id. Used by the external media-analyzer collaborator to write back
	// its findings without disturbing the row's (expression, url) identity.
	UpdateMedia(ctx context.Context, m domain.Media) error
	DeleteMediaFor(ctx context.Context, expressionID string) error
	ListMedia(ctx context.Context, expressionID string) ([]domain.Media, error)
}
