package memory

import (
	"context"
	"time"

	"github.com/Chung305/threadline/internal/domain"
)

// txView exposes a state snapshot inside InTx without locking; the
// transaction already holds the store mutex.
type txView struct{ st *state }

func (v txView) Accounts() domain.AccountStore           { return txAccounts{v.st} }
func (v txView) RefreshTokens() domain.RefreshTokenStore { return txTokens{v.st} }
func (v txView) Revocations() domain.RevocationStore     { return txRevocations{v.st} }
func (v txView) WebMessages() domain.WebMessageStore     { return txMessages{v.st} }

type txAccounts struct{ st *state }

func (a txAccounts) Create(ctx context.Context, account *domain.Account) error {
	return a.st.createAccount(account)
}

func (a txAccounts) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return a.st.getAccountByID(id)
}

func (a txAccounts) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return a.st.findAccount(func(acct domain.Account) bool { return acct.Email == email }), nil
}

func (a txAccounts) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return a.st.findAccount(func(acct domain.Account) bool { return acct.Username == username }), nil
}

func (a txAccounts) GetByCredential(ctx context.Context, credential string) (*domain.Account, error) {
	return a.st.findAccount(func(acct domain.Account) bool {
		return acct.Username == credential || acct.Email == credential
	}), nil
}

func (a txAccounts) List(ctx context.Context) ([]domain.Account, error) {
	return a.st.listAccounts(), nil
}

func (a txAccounts) Update(ctx context.Context, account *domain.Account) error {
	return a.st.updateAccount(account)
}

func (a txAccounts) SetWebMessageAt(ctx context.Context, accountID string, at time.Time) error {
	return a.st.setWebMessageAt(accountID, at)
}

type txTokens struct{ st *state }

func (t txTokens) Create(ctx context.Context, record *domain.RefreshTokenRecord) error {
	return t.st.createToken(record)
}

func (t txTokens) Get(ctx context.Context, token string) (*domain.RefreshTokenRecord, error) {
	return t.st.getToken(token), nil
}

func (t txTokens) Delete(ctx context.Context, token string) (int64, error) {
	return t.st.deleteToken(token), nil
}

func (t txTokens) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return t.st.deleteExpiredTokens(now), nil
}

type txRevocations struct{ st *state }

func (r txRevocations) Add(ctx context.Context, token string, now time.Time) error {
	r.st.addRevocation(token, now)
	return nil
}

func (r txRevocations) Contains(ctx context.Context, token string) (bool, error) {
	return r.st.containsRevocation(token), nil
}

func (r txRevocations) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.st.deleteRevokedOlderThan(cutoff), nil
}

type txMessages struct{ st *state }

func (m txMessages) Create(ctx context.Context, message *domain.WebMessage) error {
	return m.st.createMessage(message)
}

func (m txMessages) RandomUnclaimed(ctx context.Context, excludeAuthor string) (*domain.WebMessage, error) {
	return m.st.randomUnclaimed(excludeAuthor), nil
}

func (m txMessages) Claim(ctx context.Context, messageID, claimerID string) (*domain.WebMessage, error) {
	return m.st.claimMessage(messageID, claimerID)
}

// locked* wrappers guard single operations outside a transaction.

type lockedAccounts struct{ s *Store }

func (a lockedAccounts) Create(ctx context.Context, account *domain.Account) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return a.s.st.createAccount(account)
}

func (a lockedAccounts) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return a.s.st.getAccountByID(id)
}

func (a lockedAccounts) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return a.s.st.findAccount(func(acct domain.Account) bool { return acct.Email == email }), nil
}

func (a lockedAccounts) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return a.s.st.findAccount(func(acct domain.Account) bool { return acct.Username == username }), nil
}

func (a lockedAccounts) GetByCredential(ctx context.Context, credential string) (*domain.Account, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return a.s.st.findAccount(func(acct domain.Account) bool {
		return acct.Username == credential || acct.Email == credential
	}), nil
}

func (a lockedAccounts) List(ctx context.Context) ([]domain.Account, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return a.s.st.listAccounts(), nil
}

func (a lockedAccounts) Update(ctx context.Context, account *domain.Account) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return a.s.st.updateAccount(account)
}

func (a lockedAccounts) SetWebMessageAt(ctx context.Context, accountID string, at time.Time) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return a.s.st.setWebMessageAt(accountID, at)
}

type lockedTokens struct{ s *Store }

func (t lockedTokens) Create(ctx context.Context, record *domain.RefreshTokenRecord) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.st.createToken(record)
}

func (t lockedTokens) Get(ctx context.Context, token string) (*domain.RefreshTokenRecord, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.st.getToken(token), nil
}

func (t lockedTokens) Delete(ctx context.Context, token string) (int64, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.st.deleteToken(token), nil
}

func (t lockedTokens) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.st.deleteExpiredTokens(now), nil
}

type lockedRevocations struct{ s *Store }

func (r lockedRevocations) Add(ctx context.Context, token string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.st.addRevocation(token, now)
	return nil
}

func (r lockedRevocations) Contains(ctx context.Context, token string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.st.containsRevocation(token), nil
}

func (r lockedRevocations) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.st.deleteRevokedOlderThan(cutoff), nil
}

type lockedMessages struct{ s *Store }

func (m lockedMessages) Create(ctx context.Context, message *domain.WebMessage) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.s.st.createMessage(message)
}

func (m lockedMessages) RandomUnclaimed(ctx context.Context, excludeAuthor string) (*domain.WebMessage, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.s.st.randomUnclaimed(excludeAuthor), nil
}

func (m lockedMessages) Claim(ctx context.Context, messageID, claimerID string) (*domain.WebMessage, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.s.st.claimMessage(messageID, claimerID)
}
