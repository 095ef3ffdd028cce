// Package session orchestrates registration, login, refresh rotation,
// logout, and token housekeeping. It is the only entry point callers use;
// the cross-record invariants live here.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Chung305/threadline/internal/domain"
	"github.com/Chung305/threadline/pkg/password"
	"github.com/Chung305/threadline/pkg/token"
)

const revokedKeyPrefix = "revoked_token:"

// Cache is an optional fast path for revocation lookups. Backed by Redis in
// production; a nil Cache disables it and the stores remain authoritative.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// AuthResult is the outcome of any operation that authenticates a caller.
// The account is always sanitized before it gets here.
type AuthResult struct {
	Account      domain.Account `json:"user"`
	AccessToken  string         `json:"token"`
	RefreshToken string         `json:"refresh_token"`
}

type Service struct {
	store  domain.UnitOfWork
	hasher *password.Hasher
	issuer *token.Issuer
	cache  Cache
	now    func() time.Time
}

func NewService(store domain.UnitOfWork, hasher *password.Hasher, issuer *token.Issuer, cache Cache) *Service {
	return &Service{
		store:  store,
		hasher: hasher,
		issuer: issuer,
		cache:  cache,
		now:    time.Now,
	}
}

// Register creates an account and signs it in. Account creation, token
// issuance, and refresh-record persistence commit as one unit: a caller can
// never observe an account without its session or vice versa.
func (s *Service) Register(ctx context.Context, email, username, plaintext string) (*AuthResult, error) {
	if email == "" || username == "" || plaintext == "" {
		return nil, domain.Validation("email, username, and password are required")
	}

	// Pre-check both constraints concurrently. This is a fast path for the
	// common collision; the store's uniqueness constraint inside the
	// transaction remains the arbiter under races.
	var (
		wg          sync.WaitGroup
		byEmail     *domain.Account
		byUsername  *domain.Account
		emailErr    error
		usernameErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		byEmail, emailErr = s.store.Accounts().GetByEmail(ctx, email)
	}()
	go func() {
		defer wg.Done()
		byUsername, usernameErr = s.store.Accounts().GetByUsername(ctx, username)
	}()
	wg.Wait()
	if emailErr != nil {
		return nil, s.internal("failed to register user", emailErr)
	}
	if usernameErr != nil {
		return nil, s.internal("failed to register user", usernameErr)
	}
	if byEmail != nil {
		return nil, domain.Duplicate("email already registered")
	}
	if byUsername != nil {
		return nil, domain.Duplicate("username already taken")
	}

	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return nil, s.internal("failed to register user", err)
	}

	account := &domain.Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Roles:        []string{domain.RoleUser},
		CreatedAt:    s.now().UTC(),
	}

	var result AuthResult
	err = s.store.InTx(ctx, func(st domain.Stores) error {
		if err := st.Accounts().Create(ctx, account); err != nil {
			return err
		}
		access, refresh, err := s.issuePair(ctx, st, account.ID)
		if err != nil {
			return err
		}
		result = AuthResult{Account: account.Sanitized(), AccessToken: access, RefreshToken: refresh}
		return nil
	})
	if err != nil {
		return nil, s.internal("failed to register user", err)
	}

	log.Printf("[SESSION] User registered: %s (%s)", email, username)
	return &result, nil
}

// Login authenticates by username or email. Unknown identifier and wrong
// password produce the identical failure so callers cannot enumerate
// accounts.
func (s *Service) Login(ctx context.Context, credential, plaintext string) (*AuthResult, error) {
	account, err := s.store.Accounts().GetByCredential(ctx, credential)
	if err != nil {
		return nil, s.internal("failed to log in", err)
	}
	if account == nil {
		return nil, domain.NotAuthenticated("invalid credentials")
	}

	ok, err := s.hasher.Verify(account.PasswordHash, plaintext)
	if err != nil || !ok {
		return nil, domain.NotAuthenticated("invalid credentials")
	}

	var result AuthResult
	err = s.store.InTx(ctx, func(st domain.Stores) error {
		access, refresh, err := s.issuePair(ctx, st, account.ID)
		if err != nil {
			return err
		}
		result = AuthResult{Account: account.Sanitized(), AccessToken: access, RefreshToken: refresh}
		return nil
	})
	if err != nil {
		return nil, s.internal("failed to log in", err)
	}

	log.Printf("[SESSION] User logged in: %s", credential)
	return &result, nil
}

// Refresh exchanges a refresh token for a fresh pair. Rotation is single
// use: the presented token's record is deleted and replaced in one
// transaction, and the delete reporting zero rows means another call
// already consumed it.
func (s *Service) Refresh(ctx context.Context, presented string) (*AuthResult, error) {
	if presented == "" {
		return nil, domain.Validation("no refresh token provided")
	}

	if _, err := s.issuer.Verify(presented, token.KindRefresh); err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil, domain.TokenExpired("refresh token expired")
		}
		return nil, domain.TokenInvalid("invalid refresh token")
	}

	// Store-side expiry is checked independently of the signature expiry:
	// defense in depth against clock skew and signature-only compromise.
	record, err := s.store.RefreshTokens().Get(ctx, presented)
	if err != nil {
		return nil, s.internal("failed to refresh token", err)
	}
	if record == nil || record.ExpiresAt.Before(s.now()) {
		return nil, domain.NotAuthenticated("invalid or expired refresh token")
	}

	revoked, err := s.isRevoked(ctx, presented)
	if err != nil {
		return nil, s.internal("failed to refresh token", err)
	}
	if revoked {
		return nil, domain.Validation("refresh token revoked")
	}

	account, err := s.store.Accounts().GetByID(ctx, record.AccountID)
	if err != nil {
		return nil, s.internal("failed to refresh token", err)
	}
	if account == nil {
		return nil, domain.NotFound("user not found")
	}

	var result AuthResult
	err = s.store.InTx(ctx, func(st domain.Stores) error {
		deleted, err := st.RefreshTokens().Delete(ctx, presented)
		if err != nil {
			return err
		}
		if deleted == 0 {
			// A concurrent refresh won the race for this token value.
			return domain.NotAuthenticated("invalid or expired refresh token")
		}
		access, refresh, err := s.issuePair(ctx, st, account.ID)
		if err != nil {
			return err
		}
		result = AuthResult{Account: account.Sanitized(), AccessToken: access, RefreshToken: refresh}
		return nil
	})
	if err != nil {
		return nil, s.internal("failed to refresh token", err)
	}

	log.Printf("[SESSION] Token refreshed for user: %s", account.Email)
	return &result, nil
}

// Logout consumes the refresh token and records revocations for it and,
// when supplied, the paired access token. Both writes commit together.
// Deleting an already-gone refresh token is not an error.
func (s *Service) Logout(ctx context.Context, refreshToken, accessToken string) error {
	if refreshToken == "" {
		return domain.Validation("no refresh token provided")
	}

	now := s.now().UTC()
	err := s.store.InTx(ctx, func(st domain.Stores) error {
		if _, err := st.RefreshTokens().Delete(ctx, refreshToken); err != nil {
			return err
		}
		if err := st.Revocations().Add(ctx, refreshToken, now); err != nil {
			return err
		}
		if accessToken != "" {
			if err := st.Revocations().Add(ctx, accessToken, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return s.internal("failed to log out", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, revokedKeyPrefix+refreshToken, "1", s.issuer.RefreshTTL()); err != nil {
			log.Printf("[SESSION] Warning: failed to cache refresh revocation: %v", err)
		}
		if accessToken != "" {
			if err := s.cache.Set(ctx, revokedKeyPrefix+accessToken, "1", s.issuer.AccessTTL()); err != nil {
				log.Printf("[SESSION] Warning: failed to cache access revocation: %v", err)
			}
		}
	}

	log.Printf("[SESSION] User logged out, refresh token revoked")
	return nil
}

// CleanupExpired reaps refresh-token records past expiry and revocation
// entries past retention. Both deletions run in one transaction; running it
// again immediately deletes nothing.
func (s *Service) CleanupExpired(ctx context.Context) error {
	now := s.now().UTC()
	var tokens, revocations int64
	err := s.store.InTx(ctx, func(st domain.Stores) error {
		var err error
		if tokens, err = st.RefreshTokens().DeleteExpired(ctx, now); err != nil {
			return err
		}
		revocations, err = st.Revocations().DeleteOlderThan(ctx, now.Add(-domain.RevocationRetention))
		return err
	})
	if err != nil {
		return s.internal("failed to clean up expired tokens", err)
	}
	if tokens > 0 || revocations > 0 {
		log.Printf("[SESSION] Cleanup removed %d expired tokens, %d stale revocations", tokens, revocations)
	}
	return nil
}

// VerifyAccess validates a bearer access token for the middleware: checks
// signature and expiry, consults the revocation list, and resolves the
// account.
func (s *Service) VerifyAccess(ctx context.Context, accessToken string) (*domain.Account, error) {
	accountID, err := s.issuer.Verify(accessToken, token.KindAccess)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil, domain.TokenExpired("access token expired")
		}
		return nil, domain.TokenInvalid("invalid access token")
	}

	revoked, err := s.isRevoked(ctx, accessToken)
	if err != nil {
		return nil, s.internal("failed to verify token", err)
	}
	if revoked {
		return nil, domain.NotAuthenticated("token revoked")
	}

	account, err := s.store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		return nil, s.internal("failed to verify token", err)
	}
	if account == nil {
		return nil, domain.NotAuthenticated("user not found")
	}
	sanitized := account.Sanitized()
	return &sanitized, nil
}

// issuePair signs both tokens and persists the refresh record through st so
// the write joins whatever transaction the caller is running.
func (s *Service) issuePair(ctx context.Context, st domain.Stores, accountID string) (access, refresh string, err error) {
	access, err = s.issuer.IssueAccess(accountID)
	if err != nil {
		return "", "", err
	}
	refresh, err = s.issuer.IssueRefresh(accountID)
	if err != nil {
		return "", "", err
	}
	record := &domain.RefreshTokenRecord{
		Token:     refresh,
		AccountID: accountID,
		ExpiresAt: s.now().UTC().Add(s.issuer.RefreshTTL()),
		CreatedAt: s.now().UTC(),
	}
	if err := st.RefreshTokens().Create(ctx, record); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (s *Service) isRevoked(ctx context.Context, tokenValue string) (bool, error) {
	if s.cache != nil {
		if val, err := s.cache.Get(ctx, revokedKeyPrefix+tokenValue); err == nil && val != "" {
			return true, nil
		}
	}
	revoked, err := s.store.Revocations().Contains(ctx, tokenValue)
	if err != nil {
		return false, err
	}
	if revoked && s.cache != nil {
		if err := s.cache.Set(ctx, revokedKeyPrefix+tokenValue, "1", s.issuer.RefreshTTL()); err != nil {
			log.Printf("[SESSION] Warning: failed to backfill revocation cache: %v", err)
		}
	}
	return revoked, nil
}

// internal passes domain errors through untouched and wraps everything else
// with a caller-safe message; the cause stays server side.
func (s *Service) internal(message string, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return de
	}
	log.Printf("[SESSION] %s: %v", message, err)
	return domain.E(domain.KindUnknown, message, err)
}
