package domain

import "time"

// RefreshTokenRecord is the server-side half of an outstanding refresh token.
// At most one live record exists per token value; a record is consumed
// exactly once, by rotation or by logout.
type RefreshTokenRecord struct {
	Token     string    `json:"token"`
	AccountID string    `json:"account_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// RevocationEntry marks a token value as invalid regardless of its signature
// or remaining lifetime. Entries are pruned after a fixed retention window.
type RevocationEntry struct {
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

// RevocationRetention is how long revocation entries are kept. Past this
// window the revoked token has long expired on its own.
const RevocationRetention = 30 * 24 * time.Hour
