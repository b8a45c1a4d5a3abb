package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/landcrawl/landcrawl/internal/domain"
)

// GetOrCreateDomain returns the WebDomain row for name, creating it if this
// is the first reference. A racing insert from another connection is
// benign: the unique-violation path falls back to a plain get.
func (s *Store) GetOrCreateDomain(ctx context.Context, name string) (domain.WebDomain, error) {
	if d, err := s.getDomainByName(ctx, name); err == nil {
		return d, nil
	} else if err != domain.ErrNotFound {
		return domain.WebDomain{}, err
	}

	const insert = `INSERT INTO web_domains (id, name) VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING`

	if _, err := s.q.Exec(ctx, insert, uuid.NewString(), name); err != nil {
		return domain.WebDomain{}, fmt.Errorf("create domain: %w", err)
	}

	return s.getDomainByName(ctx, name)
}

func (s *Store) getDomainByName(ctx context.Context, name string) (domain.WebDomain, error) {
	const q = `SELECT id, name, http_status, title, description, keywords, created_at, fetched_at
		FROM web_domains WHERE name = $1`

	return s.scanDomain(s.q.QueryRow(ctx, q, name))
}

func (s *Store) scanDomain(row pgx.Row) (domain.WebDomain, error) {
	var d domain.WebDomain

	if err := row.Scan(&d.ID, &d.Name, &d.HTTPStatus, &d.Title, &d.Description, &d.Keywords, &d.CreatedAt, &d.FetchedAt); err != nil {
		if isNoRows(err) {
			return domain.WebDomain{}, domain.ErrNotFound
		}

		return domain.WebDomain{}, fmt.Errorf("scan domain: %w", err)
	}

	return d, nil
}

func (s *Store) UpdateDomain(ctx context.Context, d domain.WebDomain) error {
	const q = `UPDATE web_domains SET http_status = $2, title = $3, description = $4,
		keywords = $5, fetched_at = $6 WHERE id = $1`

	if _, err := s.q.Exec(ctx, q, d.ID, d.HTTPStatus, d.Title, d.Description, d.Keywords, d.FetchedAt); err != nil {
		return fmt.Errorf("update domain: %w", err)
	}

	return nil
}

func (s *Store) ListLandDomains(ctx context.Context, landID string) ([]domain.WebDomain, error) {
	const q = `SELECT DISTINCT d.id, d.name, d.http_status, d.title, d.description, d.keywords, d.created_at, d.fetched_at
		FROM web_domains d
		JOIN expressions e ON e.domain_id = d.id
		WHERE e.land_id = $1
		ORDER BY d.name`

	rows, err := s.q.Query(ctx, q, landID)
	if err != nil {
		return nil, fmt.Errorf("list land domains: %w", err)
	}
	defer rows.Close()

	var out []domain.WebDomain

	for rows.Next() {
		var d domain.WebDomain
		if err := rows.Scan(&d.ID, &d.Name, &d.HTTPStatus, &d.Title, &d.Description, &d.Keywords, &d.CreatedAt, &d.FetchedAt); err != nil {
			return nil, fmt.Errorf("scan domain: %w", err)
		}

		out = append(out, d)
	}

	return out, rows.Err()
}
