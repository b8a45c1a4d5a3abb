package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/landcrawl/landcrawl/internal/domain"
	"github.com/landcrawl/landcrawl/internal/store"
)

func (s *Store) CreateExpression(ctx context.Context, e domain.Expression) (domain.Expression, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	const q = `INSERT INTO expressions
		(id, land_id, url, domain_id, http_status, lang, title, description, keywords, readable,
		 published_at, fetched_at, approved_at, readable_at, relevance, depth)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING created_at`

	err := s.q.QueryRow(ctx, q, e.ID, e.LandID, e.URL, e.DomainID, e.HTTPStatus, e.Lang, e.Title,
		e.Description, e.Keywords, e.Readable, e.PublishedAt, e.FetchedAt, e.ApprovedAt, e.ReadableAt,
		e.Relevance, e.Depth).Scan(&e.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			existing, gerr := s.GetExpressionByURL(ctx, e.LandID, e.URL)
			if gerr == nil {
				return existing, nil
			}

			return domain.Expression{}, domain.ErrConflict
		}

		return domain.Expression{}, fmt.Errorf("create expression: %w", err)
	}

	return e, nil
}

const expressionColumns = `id, land_id, url, domain_id, http_status, lang, title, description, keywords,
	readable, created_at, published_at, fetched_at, approved_at, readable_at, relevance, depth`

func (s *Store) scanExpression(row pgx.Row) (domain.Expression, error) {
	var e domain.Expression

	err := row.Scan(&e.ID, &e.LandID, &e.URL, &e.DomainID, &e.HTTPStatus, &e.Lang, &e.Title,
		&e.Description, &e.Keywords, &e.Readable, &e.CreatedAt, &e.PublishedAt, &e.FetchedAt,
		&e.ApprovedAt, &e.ReadableAt, &e.Relevance, &e.Depth)
	if err != nil {
		if isNoRows(err) {
			return domain.Expression{}, domain.ErrNotFound
		}

		return domain.Expression{}, fmt.Errorf("scan expression: %w", err)
	}

	return e, nil
}

func (s *Store) GetExpression(ctx context.Context, id string) (domain.Expression, error) {
	q := `SELECT ` + expressionColumns + ` FROM expressions WHERE id = $1`

	return s.scanExpression(s.q.QueryRow(ctx, q, id))
}

func (s *Store) GetExpressionByURL(ctx context.Context, landID, url string) (domain.Expression, error) {
	q := `SELECT ` + expressionColumns + ` FROM expressions WHERE land_id = $1 AND url = $2`

	return s.scanExpression(s.q.QueryRow(ctx, q, landID, url))
}

func (s *Store) UpdateExpression(ctx context.Context, e domain.Expression) error {
	const q = `UPDATE expressions SET domain_id=$2, http_status=$3, lang=$4, title=$5, description=$6,
		keywords=$7, readable=$8, published_at=$9, fetched_at=$10, approved_at=$11, readable_at=$12,
		relevance=$13, depth=$14 WHERE id=$1`

	_, err := s.q.Exec(ctx, q, e.ID, e.DomainID, e.HTTPStatus, e.Lang, e.Title, e.Description,
		e.Keywords, e.Readable, e.PublishedAt, e.FetchedAt, e.ApprovedAt, e.ReadableAt, e.Relevance, e.Depth)
	if err != nil {
		return fmt.Errorf("update expression: %w", err)
	}

	return nil
}

func (s *Store) DeleteExpressions(ctx context.Context, filter store.ExpressionFilter) (int, error) {
	where, args := buildExpressionWhere(filter)

	q := `DELETE FROM expressions WHERE ` + where

	tag, err := s.q.Exec(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("delete expressions: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

func (s *Store) ListExpressions(ctx context.Context, filter store.ExpressionFilter) ([]domain.Expression, error) {
	where, args := buildExpressionWhere(filter)

	q := `SELECT ` + expressionColumns + ` FROM expressions WHERE ` + where + ` ORDER BY created_at, id`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.q.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list expressions: %w", err)
	}
	defer rows.Close()

	var out []domain.Expression

	for rows.Next() {
		e, err := s.scanExpression(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, e)
	}

	return out, rows.Err()
}

func (s *Store) DistinctPendingDepths(ctx context.Context, filter store.ExpressionFilter) ([]int, error) {
	filter.Depth = nil
	where, args := buildExpressionWhere(filter)

	q := `SELECT DISTINCT depth FROM expressions WHERE ` + where + ` ORDER BY depth`

	rows, err := s.q.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("distinct pending depths: %w", err)
	}
	defer rows.Close()

	var out []int

	for rows.Next() {
		var d int
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan depth: %w", err)
		}

		out = append(out, d)
	}

	return out, rows.Err()
}

func (s *Store) CountExpressions(ctx context.Context, landID string) (int, map[string]int, error) {
	const q = `SELECT http_status, count(*) FROM expressions WHERE land_id = $1 GROUP BY http_status`

	rows, err := s.q.Query(ctx, q, landID)
	if err != nil {
		return 0, nil, fmt.Errorf("count expressions: %w", err)
	}
	defer rows.Close()

	byStatus := make(map[string]int)
	total := 0

	for rows.Next() {
		var (
			status string
			count  int
		)

		if err := rows.Scan(&status, &count); err != nil {
			return 0, nil, fmt.Errorf("scan status count: %w", err)
		}

		byStatus[status] = count
		total += count
	}

	return total, byStatus, rows.Err()
}

// buildExpressionWhere translates an ExpressionFilter into a SQL WHERE
// clause (without the "WHERE" keyword) and its positional arguments.
//
// Pending and HTTPStatus combine with OR (a crawl selects expressions
// that are either never-fetched or stuck on the filtered status); Depth
// narrows the result with AND.
func buildExpressionWhere(filter store.ExpressionFilter) (string, []any) {
	clauses := []string{"land_id = $1"}
	args := []any{filter.LandID}

	switch {
	case filter.Pending && filter.HTTPStatus != "":
		args = append(args, filter.HTTPStatus)
		clauses = append(clauses, fmt.Sprintf("(fetched_at IS NULL OR http_status = $%d)", len(args)))
	case filter.Pending:
		clauses = append(clauses, "fetched_at IS NULL")
	case filter.HTTPStatus != "":
		args = append(args, filter.HTTPStatus)
		clauses = append(clauses, fmt.Sprintf("http_status = $%d", len(args)))
	}

	if filter.Depth != nil {
		args = append(args, *filter.Depth)
		clauses = append(clauses, fmt.Sprintf("depth = $%d", len(args)))
	}

	if filter.MaxRelevance != nil {
		args = append(args, *filter.MaxRelevance)
		clauses = append(clauses, fmt.Sprintf("relevance <= $%d", len(args)))
	}

	return strings.Join(clauses, " AND "), args
}
