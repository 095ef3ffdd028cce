// Package memory provides in-memory reference implementations of the store
// contracts. They back the unit tests and document the exact semantics the
// postgres stores must match, including transactional rollback.
package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/Chung305/threadline/internal/domain"
)

// Store holds all record kinds behind one mutex. InTx serializes: the
// callback runs against a deep copy of the state which replaces the live
// state only when the callback succeeds, so a failed transaction leaves no
// observable side effect.
type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

func (s *Store) Accounts() domain.AccountStore           { return lockedAccounts{s} }
func (s *Store) RefreshTokens() domain.RefreshTokenStore { return lockedTokens{s} }
func (s *Store) Revocations() domain.RevocationStore     { return lockedRevocations{s} }
func (s *Store) WebMessages() domain.WebMessageStore     { return lockedMessages{s} }

func (s *Store) InTx(ctx context.Context, fn func(domain.Stores) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := s.st.clone()
	if err := fn(txView{clone}); err != nil {
		return err
	}
	s.st = clone
	return nil
}

type state struct {
	accounts map[string]domain.Account // keyed by id
	tokens   map[string]domain.RefreshTokenRecord
	revoked  map[string]domain.RevocationEntry
	messages map[string]domain.WebMessage
}

func newState() *state {
	return &state{
		accounts: make(map[string]domain.Account),
		tokens:   make(map[string]domain.RefreshTokenRecord),
		revoked:  make(map[string]domain.RevocationEntry),
		messages: make(map[string]domain.WebMessage),
	}
}

func (st *state) clone() *state {
	next := newState()
	for id, a := range st.accounts {
		next.accounts[id] = copyAccount(a)
	}
	for tok, r := range st.tokens {
		next.tokens[tok] = r
	}
	for tok, e := range st.revoked {
		next.revoked[tok] = e
	}
	for id, m := range st.messages {
		next.messages[id] = copyMessage(m)
	}
	return next
}

func copyAccount(a domain.Account) domain.Account {
	a.Roles = append([]string(nil), a.Roles...)
	if a.WebMessageAt != nil {
		at := *a.WebMessageAt
		a.WebMessageAt = &at
	}
	return a
}

func copyMessage(m domain.WebMessage) domain.WebMessage {
	if m.ClaimerID != nil {
		id := *m.ClaimerID
		m.ClaimerID = &id
	}
	return m
}

// --- account operations ---

func (st *state) createAccount(account *domain.Account) error {
	for _, existing := range st.accounts {
		if existing.Email == account.Email {
			return domain.Duplicate("email already registered")
		}
	}
	for _, existing := range st.accounts {
		if existing.Username == account.Username {
			return domain.Duplicate("username already taken")
		}
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	account.UpdatedAt = account.CreatedAt
	st.accounts[account.ID] = copyAccount(*account)
	return nil
}

func (st *state) getAccountByID(id string) (*domain.Account, error) {
	if a, ok := st.accounts[id]; ok {
		out := copyAccount(a)
		return &out, nil
	}
	return nil, nil
}

func (st *state) findAccount(match func(domain.Account) bool) *domain.Account {
	for _, a := range st.accounts {
		if match(a) {
			out := copyAccount(a)
			return &out
		}
	}
	return nil
}

func (st *state) listAccounts() []domain.Account {
	out := make([]domain.Account, 0, len(st.accounts))
	for _, a := range st.accounts {
		out = append(out, copyAccount(a))
	}
	return out
}

func (st *state) updateAccount(account *domain.Account) error {
	current, ok := st.accounts[account.ID]
	if !ok {
		return domain.NotFound("user not found")
	}
	for id, existing := range st.accounts {
		if id == account.ID {
			continue
		}
		if existing.Email == account.Email {
			return domain.Duplicate("email already registered")
		}
		if existing.Username == account.Username {
			return domain.Duplicate("username already taken")
		}
	}
	account.CreatedAt = current.CreatedAt
	account.UpdatedAt = time.Now().UTC()
	st.accounts[account.ID] = copyAccount(*account)
	return nil
}

func (st *state) setWebMessageAt(accountID string, at time.Time) error {
	a, ok := st.accounts[accountID]
	if !ok {
		return domain.NotFound("user not found")
	}
	a.WebMessageAt = &at
	st.accounts[accountID] = a
	return nil
}

// --- refresh token operations ---

func (st *state) createToken(record *domain.RefreshTokenRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	st.tokens[record.Token] = *record
	return nil
}

func (st *state) getToken(token string) *domain.RefreshTokenRecord {
	if r, ok := st.tokens[token]; ok {
		out := r
		return &out
	}
	return nil
}

func (st *state) deleteToken(token string) int64 {
	if _, ok := st.tokens[token]; !ok {
		return 0
	}
	delete(st.tokens, token)
	return 1
}

func (st *state) deleteExpiredTokens(now time.Time) int64 {
	var n int64
	for tok, r := range st.tokens {
		if r.ExpiresAt.Before(now) {
			delete(st.tokens, tok)
			n++
		}
	}
	return n
}

// --- revocation operations ---

func (st *state) addRevocation(token string, now time.Time) {
	if _, ok := st.revoked[token]; ok {
		return
	}
	st.revoked[token] = domain.RevocationEntry{Token: token, CreatedAt: now}
}

func (st *state) containsRevocation(token string) bool {
	_, ok := st.revoked[token]
	return ok
}

func (st *state) deleteRevokedOlderThan(cutoff time.Time) int64 {
	var n int64
	for tok, e := range st.revoked {
		if e.CreatedAt.Before(cutoff) {
			delete(st.revoked, tok)
			n++
		}
	}
	return n
}

// --- web message operations ---

func (st *state) createMessage(message *domain.WebMessage) error {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	st.messages[message.ID] = copyMessage(*message)
	return nil
}

func (st *state) randomUnclaimed(excludeAuthor string) *domain.WebMessage {
	var candidates []domain.WebMessage
	for _, m := range st.messages {
		if !m.Claimed && m.AuthorID != excludeAuthor {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	out := copyMessage(candidates[rand.Intn(len(candidates))])
	return &out
}

func (st *state) claimMessage(messageID, claimerID string) (*domain.WebMessage, error) {
	m, ok := st.messages[messageID]
	if !ok {
		return nil, domain.NotFound("message not found")
	}
	if m.Claimed {
		return nil, domain.Validation("message already claimed")
	}
	m.Claimed = true
	m.ClaimerID = &claimerID
	st.messages[messageID] = m
	out := copyMessage(m)
	return &out, nil
}
