package session

import (
	"context"

	"github.com/Chung305/threadline/internal/domain"
)

// UpdateUserParams carries a partial account update. Nil fields are left
// unchanged.
type UpdateUserParams struct {
	ID          string
	Email       *string
	Username    *string
	DisplayName *string
	AvatarURL   *string
}

// GetUsers lists every account with password hashes stripped.
func (s *Service) GetUsers(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.store.Accounts().List(ctx)
	if err != nil {
		return nil, s.internal("failed to list users", err)
	}
	for i := range accounts {
		accounts[i] = accounts[i].Sanitized()
	}
	return accounts, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.store.Accounts().GetByID(ctx, id)
	if err != nil {
		return nil, s.internal("failed to get user", err)
	}
	if account == nil {
		return nil, domain.NotFound("user not found")
	}
	sanitized := account.Sanitized()
	return &sanitized, nil
}

func (s *Service) UpdateUser(ctx context.Context, params UpdateUserParams) (*domain.Account, error) {
	if params.ID == "" {
		return nil, domain.Validation("user id is required")
	}

	account, err := s.store.Accounts().GetByID(ctx, params.ID)
	if err != nil {
		return nil, s.internal("failed to update user", err)
	}
	if account == nil {
		return nil, domain.NotFound("user not found")
	}

	if params.Email != nil {
		account.Email = *params.Email
	}
	if params.Username != nil {
		account.Username = *params.Username
	}
	if params.DisplayName != nil {
		account.DisplayName = *params.DisplayName
	}
	if params.AvatarURL != nil {
		account.AvatarURL = *params.AvatarURL
	}

	if err := s.store.Accounts().Update(ctx, account); err != nil {
		return nil, s.internal("failed to update user", err)
	}
	sanitized := account.Sanitized()
	return &sanitized, nil
}
