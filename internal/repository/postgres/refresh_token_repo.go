package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Chung305/threadline/internal/domain"
)

type RefreshTokenRepo struct {
	q DBTX
}

func (r *RefreshTokenRepo) Create(ctx context.Context, record *domain.RefreshTokenRecord) error {
	query := `
	INSERT INTO refresh_tokens (token, account_id, expires_at, created_at)
	VALUES ($1, $2, $3, NOW())
	RETURNING created_at;
	`
	err := r.q.QueryRowContext(ctx, query, record.Token, record.AccountID, record.ExpiresAt).
		Scan(&record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepo) Get(ctx context.Context, token string) (*domain.RefreshTokenRecord, error) {
	query := `SELECT token, account_id, expires_at, created_at FROM refresh_tokens WHERE token = $1;`
	var record domain.RefreshTokenRecord
	err := r.q.QueryRowContext(ctx, query, token).
		Scan(&record.Token, &record.AccountID, &record.ExpiresAt, &record.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load refresh token: %w", err)
	}
	return &record, nil
}

func (r *RefreshTokenRepo) Delete(ctx context.Context, token string) (int64, error) {
	result, err := r.q.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = $1;`, token)
	if err != nil {
		return 0, fmt.Errorf("failed to delete refresh token: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted refresh tokens: %w", err)
	}
	return n, nil
}

func (r *RefreshTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.q.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1;`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired refresh tokens: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count expired refresh tokens: %w", err)
	}
	return n, nil
}
