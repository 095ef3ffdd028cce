package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Chung305/threadline/internal/domain"
	"github.com/Chung305/threadline/internal/repository/memory"
	"github.com/Chung305/threadline/pkg/password"
	"github.com/Chung305/threadline/pkg/token"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()

	hasher, err := password.NewHasher(password.Params{
		MemoryKiB:   8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}

	issuer, err := token.New("test-access-secret", "test-refresh-secret", time.Hour, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("token.New: %v", err)
	}

	return NewService(store, hasher, issuer, nil), store
}

func mustRegister(t *testing.T, svc *Service, email, username, pw string) *AuthResult {
	t.Helper()
	res, err := svc.Register(context.Background(), email, username, pw)
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return res
}

func wantKind(t *testing.T, err error, kind domain.ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", kind)
	}
	if got := domain.KindOf(err); got != kind {
		t.Fatalf("error kind = %v, want %v (err: %v)", got, kind, err)
	}
}

func TestRegisterIssuesVerifiableTokenPair(t *testing.T) {
	svc, _ := newTestService(t)

	res := mustRegister(t, svc, "a@x.com", "alice", "Passw0rd!")

	if res.Account.PasswordHash != "" {
		t.Error("password hash leaked in register result")
	}
	if res.Account.Email != "a@x.com" || res.Account.Username != "alice" {
		t.Errorf("unexpected account: %+v", res.Account)
	}
	if len(res.Account.Roles) == 0 {
		t.Error("account has empty role set")
	}

	if id, err := svc.issuer.Verify(res.AccessToken, token.KindAccess); err != nil || id != res.Account.ID {
		t.Errorf("access token does not verify: (%q, %v)", id, err)
	}
	if id, err := svc.issuer.Verify(res.RefreshToken, token.KindRefresh); err != nil || id != res.Account.ID {
		t.Errorf("refresh token does not verify: (%q, %v)", id, err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc, store := newTestService(t)

	mustRegister(t, svc, "a@x.com", "alice", "Passw0rd!")

	_, err := svc.Register(context.Background(), "a@x.com", "bob", "Other1!@")
	wantKind(t, err, domain.KindDuplicate)

	_, err = svc.Register(context.Background(), "b@x.com", "alice", "Other1!@")
	wantKind(t, err, domain.KindDuplicate)

	accounts, err := store.Accounts().List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(accounts) != 1 {
		t.Fatalf("expected exactly one account, got %d", len(accounts))
	}
}

func TestRegisterConcurrentDuplicatesLeaveOneAccount(t *testing.T) {
	svc, store := newTestService(t)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Register(context.Background(), "a@x.com", "alice", "Passw0rd!")
		}(i)
	}
	wg.Wait()

	var successes int
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			wantKind(t, err, domain.KindDuplicate)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one successful registration, got %d", successes)
	}

	accounts, _ := store.Accounts().List(context.Background())
	if len(accounts) != 1 {
		t.Fatalf("expected exactly one persisted account, got %d", len(accounts))
	}
}

func TestRegisterRollsBackOnTokenPersistFailure(t *testing.T) {
	svc, store := newTestService(t)
	svc.store = failingTokenCreate{store}

	_, err := svc.Register(context.Background(), "a@x.com", "alice", "Passw0rd!")
	if err == nil {
		t.Fatal("expected registration failure")
	}

	// The account write must not survive the failed transaction.
	account, err := store.Accounts().GetByEmail(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if account != nil {
		t.Fatal("account observable after rolled-back registration")
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService(t)
	mustRegister(t, svc, "a@x.com", "alice", "Passw0rd!")

	_, err := svc.Login(context.Background(), "alice", "wrong")
	wantKind(t, err, domain.KindNotAuthenticated)

	_, err = svc.Login(context.Background(), "nobody", "Passw0rd!")
	wantKind(t, err, domain.KindNotAuthenticated)

	byUsername, err := svc.Login(context.Background(), "alice", "Passw0rd!")
	if err != nil {
		t.Fatalf("login by username: %v", err)
	}
	byEmail, err := svc.Login(context.Background(), "a@x.com", "Passw0rd!")
	if err != nil {
		t.Fatalf("login by email: %v", err)
	}

	if byUsername.RefreshToken == byEmail.RefreshToken {
		t.Error("two logins produced the same refresh token")
	}
	if byUsername.Account.PasswordHash != "" {
		t.Error("password hash leaked in login result")
	}
}

func TestLoginFailureMessagesAreUniform(t *testing.T) {
	svc, _ := newTestService(t)
	mustRegister(t, svc, "a@x.com", "alice", "Passw0rd!")

	_, errAbsent := svc.Login(context.Background(), "nobody", "Passw0rd!")
	_, errWrong := svc.Login(context.Background(), "alice", "wrong")
	if errAbsent == nil || errWrong == nil {
		t.Fatal("expected both logins to fail")
	}
	if errAbsent.Error() != errWrong.Error() {
		t.Fatalf("failure surface differs: %q vs %q", errAbsent, errWrong)
	}
}

func TestLoginAllowsConcurrentSessions(t *testing.T) {
	svc, _ := newTestService(t)
	mustRegister(t, svc, "a@x.com", "alice", "Passw0rd!")

	first, err := svc.Login(context.Background(), "alice", "Passw0rd!")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	if _, err := svc.Login(context.Background(), "alice", "Passw0rd!"); err != nil {
		t.Fatalf("second login: %v", err)
	}

	// The first session's refresh token still rotates.
	if _, err := svc.Refresh(context.Background(), first.RefreshToken); err != nil {
		t.Fatalf("refresh of first session after second login: %v", err)
	}
}

func TestRefreshRotation(t *testing.T) {
	svc, _ := newTestService(t)
	reg := mustRegister(t, svc, "a@x.com", "alice", "Passw0rd!")

	tokenA := reg.RefreshToken
	resB, err := svc.Refresh(context.Background(), tokenA)
	if err != nil {
		t.Fatalf("refresh(tokenA): %v", err)
	}
	tokenB := resB.RefreshToken
	if tokenB == tokenA {
		t.Fatal("rotation returned the same refresh token")
	}

	// The consumed token is unusable.
	_, err = svc.Refresh(context.Background(), tokenA)
	wantKind(t, err, domain.KindNotAuthenticated)

	// The replacement works.
	if _, err := svc.Refresh(context.Background(), tokenB); err != nil {
		t.Fatalf("refresh(tokenB): %v", err)
	}
}

func TestRefreshInputValidation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Refresh(context.Background(), "")
	wantKind(t, err, domain.KindValidation)

	_, err = svc.Refresh(context.Background(), "not.a.jwt")
	wantKind(t, err, domain.KindTokenInvalid)
}

func TestRefreshRejectsWrongFamily(t *testing.T) {
	svc, _ := newTestService(t)
	reg := mustRegister(t, svc, "a@x.com", "alice", "Passw0rd!")

	// An access token is structurally a JWT but signed with the wrong key
	// and kind; it must die at signature verification.
	_, err := svc.Refresh(context.Background(), reg.AccessToken)
	wantKind(t, err, domain.KindTokenInvalid)
}

func TestInvalidTokenNeverReachesStores(t *testing.T) {
	svc, store := newTestService(t)
	spy := &countingStore{Store: store}
	svc.store = spy

	_, err := svc.Refresh(context.Background(), "corrupted.token.value")
	wantKind(t, err, domain.KindTokenInvalid)

	if n := spy.tokenGets.Load(); n != 0 {
		t.Fatalf("store consulted %d times for a token that failed signature check", n)
	}
}

func TestRefreshValidSignatureButUnknownToken(t *testing.T) {
	svc, _ := newTestService(t)
	mustRegister(t, svc, "a@x.com", "alice", "Passw0rd!")

	// Signed with the right secret but never persisted (e.g. issued before
	// a store wipe).
	stray, err := svc.issuer.IssueRefresh("some-account")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	_, err = svc.Refresh(context.Background(), stray)
	wantKind(t, err, domain.KindNotAuthenticated)
}

func TestRefreshExpiredRecordIsRejectedByStoreCheck(t *testing.T) {
	svc, _ := newTestService(t)
	reg := mustRegister(t, svc, "a@x.com", "alice", "Passw0rd!")

	// The signature stays valid; only the stored expiry lapses. The
	// store-side check must reject independently.
	svc.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	_, err := svc.Refresh(context.Background(), reg.RefreshToken)
	wantKind(t, err, domain.KindNotAuthenticated)
}

func TestConcurrentRefreshSameTokenExactlyOneWins(t *testing.T) {
	svc, _ := newTestService(t)
	reg := mustRegister(t, svc, "a@x.com", "alice", "Passw0rd!")

	const racers = 16
	var wg sync.WaitGroup
	errs := make([]error, racers)
	wg.Add(racers)
	for i := 0; i < racers; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Refresh(context.Background(), reg.RefreshToken)
		}(i)
	}
	wg.Wait()

	var successes int
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			wantKind(t, err, domain.KindNotAuthenticated)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one winning refresh, got %d", successes)
	}
}

func TestLogoutRevokesBothTokens(t *testing.T) {
	svc, _ := newTestService(t)
	reg := mustRegister(t, svc, "a@x.com", "alice", "Passw0rd!")

	if err := svc.Logout(context.Background(), reg.RefreshToken, reg.AccessToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	// Refresh token is gone from the store, and even a re-inserted record
	// would be caught by the revocation list.
	_, err := svc.Refresh(context.Background(), reg.RefreshToken)
	wantKind(t, err, domain.KindNotAuthenticated)

	// Access token is revoked despite its signature still verifying.
	_, err = svc.VerifyAccess(context.Background(), reg.AccessToken)
	wantKind(t, err, domain.KindNotAuthenticated)

	// Logout is idempotent.
	if err := svc.Logout(context.Background(), reg.RefreshToken, ""); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
}

func TestLogoutWithoutAccessToken(t *testing.T) {
	svc, _ := newTestService(t)
	reg := mustRegister(t, svc, "a@x.com", "alice", "Passw0rd!")

	if err := svc.Logout(context.Background(), reg.RefreshToken, ""); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	// Without an access token at logout, the access token stays live until
	// expiry.
	if _, err := svc.VerifyAccess(context.Background(), reg.AccessToken); err != nil {
		t.Fatalf("VerifyAccess after refresh-only logout: %v", err)
	}
}

func TestRevokedRefreshTokenAfterReinsertion(t *testing.T) {
	// Exercises the revocation branch of the refresh state machine: a
	// record exists and the signature is good, but the value is on the
	// revocation list.
	svc, store := newTestService(t)
	reg := mustRegister(t, svc, "a@x.com", "alice", "Passw0rd!")

	if err := svc.Logout(context.Background(), reg.RefreshToken, ""); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	record := &domain.RefreshTokenRecord{
		Token:     reg.RefreshToken,
		AccountID: reg.Account.ID,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := store.RefreshTokens().Create(context.Background(), record); err != nil {
		t.Fatalf("re-insert record: %v", err)
	}

	_, err := svc.Refresh(context.Background(), reg.RefreshToken)
	wantKind(t, err, domain.KindValidation)
}

func TestCleanupExpired(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()
	svc.now = func() time.Time { return now }

	live := &domain.RefreshTokenRecord{Token: "live", AccountID: "a", ExpiresAt: now.Add(time.Hour)}
	dead := &domain.RefreshTokenRecord{Token: "dead", AccountID: "a", ExpiresAt: now.Add(-time.Minute)}
	if err := store.RefreshTokens().Create(ctx, live); err != nil {
		t.Fatal(err)
	}
	if err := store.RefreshTokens().Create(ctx, dead); err != nil {
		t.Fatal(err)
	}
	if err := store.Revocations().Add(ctx, "fresh-revocation", now.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := store.Revocations().Add(ctx, "stale-revocation", now.Add(-31*24*time.Hour)); err != nil {
		t.Fatal(err)
	}

	if err := svc.CleanupExpired(ctx); err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}

	if r, _ := store.RefreshTokens().Get(ctx, "live"); r == nil {
		t.Error("live record deleted by cleanup")
	}
	if r, _ := store.RefreshTokens().Get(ctx, "dead"); r != nil {
		t.Error("expired record survived cleanup")
	}
	if ok, _ := store.Revocations().Contains(ctx, "fresh-revocation"); !ok {
		t.Error("fresh revocation deleted by cleanup")
	}
	if ok, _ := store.Revocations().Contains(ctx, "stale-revocation"); ok {
		t.Error("stale revocation survived cleanup")
	}

	// Second run deletes nothing and succeeds.
	if err := svc.CleanupExpired(ctx); err != nil {
		t.Fatalf("second CleanupExpired: %v", err)
	}
	if r, _ := store.RefreshTokens().Get(ctx, "live"); r == nil {
		t.Error("live record deleted by idempotent rerun")
	}
}

func TestGetUsersStripsPasswordHash(t *testing.T) {
	svc, _ := newTestService(t)
	mustRegister(t, svc, "a@x.com", "alice", "Passw0rd!")
	mustRegister(t, svc, "b@x.com", "bob", "Passw0rd!")

	users, err := svc.GetUsers(context.Background())
	if err != nil {
		t.Fatalf("GetUsers: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	for _, u := range users {
		if u.PasswordHash != "" {
			t.Errorf("password hash leaked for %s", u.Username)
		}
	}
}

func TestGetAndUpdateUser(t *testing.T) {
	svc, _ := newTestService(t)
	reg := mustRegister(t, svc, "a@x.com", "alice", "Passw0rd!")

	_, err := svc.GetUser(context.Background(), "missing")
	wantKind(t, err, domain.KindNotFound)

	got, err := svc.GetUser(context.Background(), reg.Account.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Username != "alice" || got.PasswordHash != "" {
		t.Errorf("unexpected user: %+v", got)
	}

	name := "Alice A."
	updated, err := svc.UpdateUser(context.Background(), UpdateUserParams{ID: reg.Account.ID, DisplayName: &name})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.DisplayName != name {
		t.Errorf("DisplayName = %q, want %q", updated.DisplayName, name)
	}
	if updated.Username != "alice" {
		t.Errorf("unset field changed: %q", updated.Username)
	}
}

// countingStore counts refresh-token store reads to prove short circuits.
type countingStore struct {
	*memory.Store
	tokenGets atomic.Int64
}

func (c *countingStore) RefreshTokens() domain.RefreshTokenStore {
	return countingTokens{c.Store.RefreshTokens(), &c.tokenGets}
}

type countingTokens struct {
	domain.RefreshTokenStore
	gets *atomic.Int64
}

func (c countingTokens) Get(ctx context.Context, tok string) (*domain.RefreshTokenRecord, error) {
	c.gets.Add(1)
	return c.RefreshTokenStore.Get(ctx, tok)
}

// failingTokenCreate fails the refresh-record write inside transactions.
type failingTokenCreate struct {
	*memory.Store
}

func (f failingTokenCreate) InTx(ctx context.Context, fn func(domain.Stores) error) error {
	return f.Store.InTx(ctx, func(st domain.Stores) error {
		return fn(failingStores{st})
	})
}

type failingStores struct {
	domain.Stores
}

func (f failingStores) RefreshTokens() domain.RefreshTokenStore {
	return failingTokens{f.Stores.RefreshTokens()}
}

type failingTokens struct {
	domain.RefreshTokenStore
}

func (failingTokens) Create(ctx context.Context, record *domain.RefreshTokenRecord) error {
	return errors.New("simulated token write failure")
}
