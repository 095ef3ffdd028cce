package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Chung305/threadline/internal/domain"
)

type WebMessageRepo struct {
	q DBTX
}

func (r *WebMessageRepo) Create(ctx context.Context, message *domain.WebMessage) error {
	query := `
	INSERT INTO web_messages (id, author_id, message, claimed, created_at)
	VALUES ($1, $2, $3, FALSE, NOW())
	RETURNING created_at;
	`
	err := r.q.QueryRowContext(ctx, query, message.ID, message.AuthorID, message.Message).
		Scan(&message.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store message: %w", err)
	}
	return nil
}

func (r *WebMessageRepo) RandomUnclaimed(ctx context.Context, excludeAuthor string) (*domain.WebMessage, error) {
	query := `
	SELECT id, author_id, claimer_id, message, claimed, created_at
	FROM web_messages
	WHERE claimed = FALSE AND author_id <> $1
	ORDER BY RANDOM()
	LIMIT 1;
	`
	message, err := scanMessage(r.q.QueryRowContext(ctx, query, excludeAuthor))
	if err != nil {
		return nil, fmt.Errorf("failed to pick message: %w", err)
	}
	return message, nil
}

func (r *WebMessageRepo) Claim(ctx context.Context, messageID, claimerID string) (*domain.WebMessage, error) {
	// The claimed = FALSE guard makes the first claim win; ties lose on the
	// row lock, not on a read-then-write race.
	query := `
	UPDATE web_messages
	SET claimed = TRUE, claimer_id = $2
	WHERE id = $1 AND claimed = FALSE
	RETURNING id, author_id, claimer_id, message, claimed, created_at;
	`
	message, err := scanMessage(r.q.QueryRowContext(ctx, query, messageID, claimerID))
	if err != nil {
		return nil, fmt.Errorf("failed to claim message: %w", err)
	}
	if message == nil {
		var exists bool
		err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM web_messages WHERE id = $1);`, messageID).
			Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("failed to check message: %w", err)
		}
		if !exists {
			return nil, domain.NotFound("message not found")
		}
		return nil, domain.Validation("message already claimed")
	}
	return message, nil
}

func scanMessage(row rowScanner) (*domain.WebMessage, error) {
	var message domain.WebMessage
	var claimerID sql.NullString
	err := row.Scan(
		&message.ID,
		&message.AuthorID,
		&claimerID,
		&message.Message,
		&message.Claimed,
		&message.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if claimerID.Valid {
		id := claimerID.String
		message.ClaimerID = &id
	}
	return &message, nil
}
