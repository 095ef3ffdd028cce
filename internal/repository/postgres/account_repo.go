package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Chung305/threadline/internal/domain"
)

type AccountRepo struct {
	q DBTX
}

const accountSelectFields = `id, username, email, password_hash, roles, display_name, avatar_url, web_message_at, created_at, updated_at`

func (r *AccountRepo) Create(ctx context.Context, account *domain.Account) error {
	query := `
	INSERT INTO accounts (id, username, email, password_hash, roles, display_name, avatar_url, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	RETURNING created_at, updated_at;
	`
	err := r.q.QueryRowContext(ctx, query,
		account.ID,
		account.Username,
		account.Email,
		account.PasswordHash,
		pq.Array(account.Roles),
		account.DisplayName,
		account.AvatarURL,
	).Scan(&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return mapUniqueViolation(err, "failed to create account")
	}
	return nil
}

func (r *AccountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountSelectFields + ` FROM accounts WHERE id = $1;`
	return scanAccount(r.q.QueryRowContext(ctx, query, id))
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountSelectFields + ` FROM accounts WHERE email = $1;`
	return scanAccount(r.q.QueryRowContext(ctx, query, email))
}

func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	query := `SELECT ` + accountSelectFields + ` FROM accounts WHERE username = $1;`
	return scanAccount(r.q.QueryRowContext(ctx, query, username))
}

func (r *AccountRepo) GetByCredential(ctx context.Context, credential string) (*domain.Account, error) {
	query := `SELECT ` + accountSelectFields + ` FROM accounts WHERE username = $1 OR email = $1;`
	return scanAccount(r.q.QueryRowContext(ctx, query, credential))
}

func (r *AccountRepo) List(ctx context.Context) ([]domain.Account, error) {
	query := `SELECT ` + accountSelectFields + ` FROM accounts ORDER BY created_at;`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

func (r *AccountRepo) Update(ctx context.Context, account *domain.Account) error {
	query := `
	UPDATE accounts
	SET username = $2, email = $3, display_name = $4, avatar_url = $5, updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at;
	`
	err := r.q.QueryRowContext(ctx, query,
		account.ID,
		account.Username,
		account.Email,
		account.DisplayName,
		account.AvatarURL,
	).Scan(&account.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound("user not found")
	}
	if err != nil {
		return mapUniqueViolation(err, "failed to update account")
	}
	return nil
}

func (r *AccountRepo) SetWebMessageAt(ctx context.Context, accountID string, at time.Time) error {
	query := `UPDATE accounts SET web_message_at = $2, updated_at = NOW() WHERE id = $1;`
	result, err := r.q.ExecContext(ctx, query, accountID, at)
	if err != nil {
		return fmt.Errorf("failed to set message timestamp: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domain.NotFound("user not found")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var account domain.Account
	var webMessageAt sql.NullTime
	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		pq.Array(&account.Roles),
		&account.DisplayName,
		&account.AvatarURL,
		&webMessageAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	if webMessageAt.Valid {
		at := webMessageAt.Time
		account.WebMessageAt = &at
	}
	return &account, nil
}

// mapUniqueViolation turns a 23505 into the duplicate error naming the
// conflicting field. The constraint, not any pre-check, is the arbiter
// under concurrent duplicate attempts.
func mapUniqueViolation(err error, fallback string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		switch pqErr.Constraint {
		case "accounts_email_key":
			return domain.Duplicate("email already registered")
		case "accounts_username_key":
			return domain.Duplicate("username already taken")
		}
		return domain.Duplicate("account already exists")
	}
	return fmt.Errorf("%s: %w", fallback, err)
}
