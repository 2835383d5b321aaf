package store

import (
	"context"
	"fmt"

	"github.com/roach88/accumulog/internal/ir"
)

// GetLastSeq returns the highest seq number in the call log, or 0 if empty.
// Used at startup to resume the logical clock from the correct position.
func (s *Store) GetLastSeq(ctx context.Context) (int64, error) {
	var maxSeq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM calls
	`).Scan(&maxSeq)
	if err != nil {
		return 0, fmt.Errorf("get last seq from calls: %w", err)
	}
	return maxSeq, nil
}

// ListTokens returns all distinct correlation tokens in the call log.
// Results ordered alphabetically by token.
func (s *Store) ListTokens(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT token FROM calls
		ORDER BY token
	`)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	tokens := []string{}
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}
	return tokens, nil
}

// ReadCallsForToken returns the calls submitted under one correlation token,
// in execution order.
func (s *Store) ReadCallsForToken(ctx context.Context, token string) ([]ir.CallRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+callColumns+`
		FROM calls
		WHERE token = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, token)
	if err != nil {
		return nil, fmt.Errorf("query calls for token: %w", err)
	}
	return collectCalls(rows)
}
