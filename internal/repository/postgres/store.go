package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/Chung305/threadline/internal/domain"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, letting every repository
// run equally outside and inside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store bundles the repositories over one database handle and implements
// the unit of work: InTx rebinds every repository to a single transaction
// so multi-record writes commit or roll back together.
type Store struct {
	db *sql.DB // nil when bound to a transaction

	accounts    *AccountRepo
	tokens      *RefreshTokenRepo
	revocations *RevocationRepo
	messages    *WebMessageRepo
}

func NewStore(db *sql.DB) *Store {
	return bind(db, db)
}

func bind(db *sql.DB, q DBTX) *Store {
	return &Store{
		db:          db,
		accounts:    &AccountRepo{q: q},
		tokens:      &RefreshTokenRepo{q: q},
		revocations: &RevocationRepo{q: q},
		messages:    &WebMessageRepo{q: q},
	}
}

func (s *Store) Accounts() domain.AccountStore           { return s.accounts }
func (s *Store) RefreshTokens() domain.RefreshTokenStore { return s.tokens }
func (s *Store) Revocations() domain.RevocationStore     { return s.revocations }
func (s *Store) WebMessages() domain.WebMessageStore     { return s.messages }

func (s *Store) InTx(ctx context.Context, fn func(domain.Stores) error) error {
	if s.db == nil {
		return fmt.Errorf("postgres: nested transactions are not supported")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}

	if err := fn(bind(nil, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Printf("[DB] Rollback failed: %v", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}
