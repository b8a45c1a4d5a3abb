package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/landcrawl/landcrawl/internal/domain"
)

// GetOrCreateWord returns the Word row for (term, lemma), creating it if
// this is the first reference. A racing insert is benign: the
// unique-violation path falls back to a plain get.
func (s *Store) GetOrCreateWord(ctx context.Context, term, lemma string) (domain.Word, error) {
	const insert = `INSERT INTO words (id, term, lemma) VALUES ($1, $2, $3)
		ON CONFLICT (term, lemma) DO NOTHING`

	id := uuid.NewString()
	if _, err := s.q.Exec(ctx, insert, id, term, lemma); err != nil {
		return domain.Word{}, fmt.Errorf("create word: %w", err)
	}

	const sel = `SELECT id, term, lemma FROM words WHERE term = $1 AND lemma = $2`

	var w domain.Word
	if err := s.q.QueryRow(ctx, sel, term, lemma).Scan(&w.ID, &w.Term, &w.Lemma); err != nil {
		return domain.Word{}, fmt.Errorf("get word: %w", err)
	}

	return w, nil
}

// AddToDictionary inserts a batch of Word memberships for landID inside the
// caller's transaction. Idempotent: re-adding a term that is already a
// member is a benign no-op via ON CONFLICT DO NOTHING.
func (s *Store) AddToDictionary(ctx context.Context, landID string, words []domain.Word) error {
	const q = `INSERT INTO land_dictionary (land_id, word_id) VALUES ($1, $2)
		ON CONFLICT (land_id, word_id) DO NOTHING`

	for _, w := range words {
		if _, err := s.q.Exec(ctx, q, landID, w.ID); err != nil {
			return fmt.Errorf("add to dictionary: %w", err)
		}
	}

	return nil
}

func (s *Store) LandDictionary(ctx context.Context, landID string) ([]domain.Word, error) {
	const q = `SELECT w.id, w.term, w.lemma FROM words w
		JOIN land_dictionary ld ON ld.word_id = w.id
		WHERE ld.land_id = $1`

	rows, err := s.q.Query(ctx, q, landID)
	if err != nil {
		return nil, fmt.Errorf("land dictionary: %w", err)
	}
	defer rows.Close()

	var out []domain.Word

	for rows.Next() {
		var w domain.Word
		if err := rows.Scan(&w.ID, &w.Term, &w.Lemma); err != nil {
			return nil, fmt.Errorf("scan word: %w", err)
		}

		out = append(out, w)
	}

	return out, rows.Err()
}
