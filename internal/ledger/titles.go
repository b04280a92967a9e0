package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// GetTitle returns the cached analysis payload for a title and model.
func (s *Store) GetTitle(ctx context.Context, title, model string) (string, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM title_cache WHERE title = ? AND model = ?`,
		normalizeTitleKey(title), model,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read title cache: %w", err)
	}
	return payload, true, nil
}

// PutTitle stores or replaces the analysis payload for a title and model.
func (s *Store) PutTitle(ctx context.Context, title, model, payload string) error {
	_, err := s.execWithRetry(ctx,
		`INSERT INTO title_cache (title, model, payload, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(title, model) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at`,
		normalizeTitleKey(title), model, payload, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("write title cache: %w", err)
	}
	return nil
}

func normalizeTitleKey(title string) string {
	return strings.Join(strings.Fields(title), " ")
}
