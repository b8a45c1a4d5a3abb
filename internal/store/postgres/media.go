package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/landcrawl/landcrawl/internal/domain"
)

func (s *Store) CreateMedia(ctx context.Context, m domain.Media) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	const q = `INSERT INTO media (id, expression_id, url, type, width, height, size_bytes, dominant_hex, analyzed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (expression_id, url) DO NOTHING`

	_, err := s.q.Exec(ctx, q, m.ID, m.ExpressionID, m.URL, string(m.Type), m.Width, m.Height,
		m.SizeBytes, m.DominantHex, m.AnalyzedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil
		}

		return fmt.Errorf("create media: %w", err)
	}

	return nil
}

func (s *Store) UpdateMedia(ctx context.Context, m domain.Media) error {
	const q = `UPDATE media SET width = $2, height = $3, size_bytes = $4, dominant_hex = $5, analyzed_at = $6
		WHERE id = $1`

	if _, err := s.q.Exec(ctx, q, m.ID, m.Width, m.Height, m.SizeBytes, m.DominantHex, m.AnalyzedAt); err != nil {
		return fmt.Errorf("update media: %w", err)
	}

	return nil
}

func (s *Store) DeleteMediaFor(ctx context.Context, expressionID string) error {
	const q = `DELETE FROM media WHERE expression_id = $1`

	if _, err := s.q.Exec(ctx, q, expressionID); err != nil {
		return fmt.Errorf("delete media for: %w", err)
	}

	return nil
}

func (s *Store) ListMedia(ctx context.Context, expressionID string) ([]domain.Media, error) {
	const q = `SELECT id, expression_id, url, type, width, height, size_bytes, dominant_hex, analyzed_at
		FROM media WHERE expression_id = $1`

	rows, err := s.q.Query(ctx, q, expressionID)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	defer rows.Close()

	var out []domain.Media

	for rows.Next() {
		var (
			m        domain.Media
			mediaType string
		)

		if err := rows.Scan(&m.ID, &m.ExpressionID, &m.URL, &mediaType, &m.Width, &m.Height,
			&m.SizeBytes, &m.DominantHex, &m.AnalyzedAt); err != nil {
			return nil, fmt.Errorf("scan media: %w", err)
		}

		m.Type = domain.MediaType(mediaType)
		out = append(out, m)
	}

	return out, rows.Err()
}
