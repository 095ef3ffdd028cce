package domain

import (
	"context"
	"time"
)

// AccountStore is the persistence contract for accounts. Username and email
// are each globally unique; Create surfaces a collision as a Duplicate error
// naming the conflicting field. The constraint is the final arbiter under
// concurrent duplicate attempts, not any pre-check.
type AccountStore interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByUsername(ctx context.Context, username string) (*Account, error)
	// GetByCredential matches username OR email against credential.
	GetByCredential(ctx context.Context, credential string) (*Account, error)
	List(ctx context.Context) ([]Account, error)
	Update(ctx context.Context, account *Account) error
	SetWebMessageAt(ctx context.Context, accountID string, at time.Time) error
}

// RefreshTokenStore holds outstanding refresh-token records.
type RefreshTokenStore interface {
	Create(ctx context.Context, record *RefreshTokenRecord) error
	Get(ctx context.Context, token string) (*RefreshTokenRecord, error)
	// Delete removes the record for token and reports how many rows went
	// away. Zero is not an error; rotation uses it to detect a token that
	// was already consumed.
	Delete(ctx context.Context, token string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// RevocationStore holds revoked-token markers.
type RevocationStore interface {
	Add(ctx context.Context, token string, now time.Time) error
	Contains(ctx context.Context, token string) (bool, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// WebMessageStore holds messages left in the web.
type WebMessageStore interface {
	Create(ctx context.Context, message *WebMessage) error
	// RandomUnclaimed picks a random unclaimed message not authored by
	// excludeAuthor, or nil when none exists.
	RandomUnclaimed(ctx context.Context, excludeAuthor string) (*WebMessage, error)
	Claim(ctx context.Context, messageID, claimerID string) (*WebMessage, error)
}

// Stores bundles the record stores that share one persistence backend.
type Stores interface {
	Accounts() AccountStore
	RefreshTokens() RefreshTokenStore
	Revocations() RevocationStore
	WebMessages() WebMessageStore
}

// UnitOfWork runs multi-store writes atomically. Everything fn does through
// the Stores it receives commits together or not at all; a rolled-back
// attempt leaves no observable side effect.
type UnitOfWork interface {
	Stores
	InTx(ctx context.Context, fn func(Stores) error) error
}
