package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/landcrawl/landcrawl/internal/domain"
)

func (s *Store) CreateLand(ctx context.Context, l domain.Land) (domain.Land, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}

	const q = `INSERT INTO lands (id, name, description, lang) VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	if err := s.q.QueryRow(ctx, q, l.ID, l.Name, l.Description, l.Lang).Scan(&l.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.Land{}, domain.ErrLandNameTaken
		}

		return domain.Land{}, fmt.Errorf("create land: %w", err)
	}

	return l, nil
}

func (s *Store) GetLand(ctx context.Context, id string) (domain.Land, error) {
	const q = `SELECT id, name, description, lang, created_at FROM lands WHERE id = $1`

	return s.scanLand(s.q.QueryRow(ctx, q, id))
}

func (s *Store) GetLandByName(ctx context.Context, name string) (domain.Land, error) {
	const q = `SELECT id, name, description, lang, created_at FROM lands WHERE name = $1`

	return s.scanLand(s.q.QueryRow(ctx, q, name))
}

func (s *Store) scanLand(row interface {
	Scan(dest ...any) error
},
) (domain.Land, error) {
	var l domain.Land

	if err := row.Scan(&l.ID, &l.Name, &l.Description, &l.Lang, &l.CreatedAt); err != nil {
		if isNoRows(err) {
			return domain.Land{}, domain.ErrNotFound
		}

		return domain.Land{}, fmt.Errorf("scan land: %w", err)
	}

	return l, nil
}

func (s *Store) ListLands(ctx context.Context) ([]domain.Land, error) {
	const q = `SELECT id, name, description, lang, created_at FROM lands ORDER BY created_at`

	rows, err := s.q.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list lands: %w", err)
	}
	defer rows.Close()

	var out []domain.Land

	for rows.Next() {
		var l domain.Land
		if err := rows.Scan(&l.ID, &l.Name, &l.Description, &l.Lang, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan land: %w", err)
		}

		out = append(out, l)
	}

	return out, rows.Err()
}

func (s *Store) DeleteLand(ctx context.Context, id string) error {
	const q = `DELETE FROM lands WHERE id = $1`

	if _, err := s.q.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("delete land: %w", err)
	}

	return nil
}
