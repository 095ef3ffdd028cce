// Package message implements the "message in the web" feature: short notes
// left for a random stranger to claim, rate limited to one per author per
// cooldown window.
package message

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Chung305/threadline/internal/domain"
)

type Service struct {
	accounts domain.AccountStore
	messages domain.WebMessageStore
	now      func() time.Time
}

func NewService(accounts domain.AccountStore, messages domain.WebMessageStore) *Service {
	return &Service{
		accounts: accounts,
		messages: messages,
		now:      time.Now,
	}
}

// Create leaves a new message in the web. Authors on cooldown are refused;
// the author's timestamp only advances after the message is stored.
func (s *Service) Create(ctx context.Context, authorID, text string) (*domain.WebMessage, error) {
	if text == "" {
		return nil, domain.Validation("message text is required")
	}

	account, err := s.accounts.GetByID(ctx, authorID)
	if err != nil {
		return nil, s.internal("failed to create message", err)
	}
	if account == nil {
		return nil, domain.NotFound("user not found")
	}

	now := s.now().UTC()
	if account.WebMessageAt != nil && now.Sub(*account.WebMessageAt) < domain.WebMessageCooldown {
		return nil, domain.Validation("you can only send one message in the web every 24 hours")
	}

	msg := &domain.WebMessage{
		ID:        uuid.NewString(),
		AuthorID:  authorID,
		Message:   text,
		CreatedAt: now,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, s.internal("failed to create message", err)
	}
	if err := s.accounts.SetWebMessageAt(ctx, authorID, now); err != nil {
		return nil, s.internal("failed to create message", err)
	}
	return msg, nil
}

// Random returns an unclaimed message by some other author, or nil when the
// web is empty.
func (s *Service) Random(ctx context.Context, accountID string) (*domain.WebMessage, error) {
	msg, err := s.messages.RandomUnclaimed(ctx, accountID)
	if err != nil {
		return nil, s.internal("failed to fetch message", err)
	}
	return msg, nil
}

// Claim marks a message as taken by accountID.
func (s *Service) Claim(ctx context.Context, messageID, accountID string) (*domain.WebMessage, error) {
	msg, err := s.messages.Claim(ctx, messageID, accountID)
	if err != nil {
		return nil, s.internal("failed to claim message", err)
	}
	return msg, nil
}

func (s *Service) internal(message string, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return de
	}
	log.Printf("[MESSAGE] %s: %v", message, err)
	return domain.E(domain.KindUnknown, message, err)
}
