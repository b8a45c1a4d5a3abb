package postgres

import (
	"context"
	"fmt"

	"github.com/landcrawl/landcrawl/internal/domain"
)

func (s *Store) CreateLink(ctx context.Context, l domain.ExpressionLink) error {
	const q = `INSERT INTO expression_links (source_id, target_id) VALUES ($1, $2)
		ON CONFLICT (source_id, target_id) DO NOTHING`

	if _, err := s.q.Exec(ctx, q, l.SourceID, l.TargetID); err != nil {
		if isUniqueViolation(err) {
			return nil
		}

		return fmt.Errorf("create link: %w", err)
	}

	return nil
}

func (s *Store) DeleteLinksFrom(ctx context.Context, sourceID string) error {
	const q = `DELETE FROM expression_links WHERE source_id = $1`

	if _, err := s.q.Exec(ctx, q, sourceID); err != nil {
		return fmt.Errorf("delete links from: %w", err)
	}

	return nil
}

func (s *Store) ListLinksFrom(ctx context.Context, sourceID string) ([]domain.ExpressionLink, error) {
	const q = `SELECT source_id, target_id FROM expression_links WHERE source_id = $1`

	rows, err := s.q.Query(ctx, q, sourceID)
	if err != nil {
		return nil, fmt.Errorf("list links from: %w", err)
	}
	defer rows.Close()

	var out []domain.ExpressionLink

	for rows.Next() {
		var l domain.ExpressionLink
		if err := rows.Scan(&l.SourceID, &l.TargetID); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}

		out = append(out, l)
	}

	return out, rows.Err()
}
