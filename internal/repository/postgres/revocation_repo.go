package postgres

import (
	"context"
	"fmt"
	"time"
)

type RevocationRepo struct {
	q DBTX
}

func (r *RevocationRepo) Add(ctx context.Context, token string, now time.Time) error {
	query := `
	INSERT INTO revoked_tokens (token, created_at)
	VALUES ($1, $2)
	ON CONFLICT (token) DO NOTHING;
	`
	if _, err := r.q.ExecContext(ctx, query, token, now); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (r *RevocationRepo) Contains(ctx context.Context, token string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token = $1);`
	var revoked bool
	if err := r.q.QueryRowContext(ctx, query, token).Scan(&revoked); err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return revoked, nil
}

func (r *RevocationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.q.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE created_at < $1;`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune revoked tokens: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned revoked tokens: %w", err)
	}
	return n, nil
}
