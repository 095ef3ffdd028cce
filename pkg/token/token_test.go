package token

import (
	"errors"
	"testing"
	"time"
)

func testIssuer(t *testing.T) *Issuer {
	t.Helper()
	i, err := New("access-secret", "refresh-secret", time.Hour, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return i
}

func TestNewRequiresDistinctSecrets(t *testing.T) {
	if _, err := New("", "refresh", 0, 0); err == nil {
		t.Fatal("empty access secret accepted")
	}
	if _, err := New("access", "", 0, 0); err == nil {
		t.Fatal("empty refresh secret accepted")
	}
	if _, err := New("same", "same", 0, 0); err == nil {
		t.Fatal("identical secrets accepted")
	}
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	i := testIssuer(t)

	access, err := i.IssueAccess("acct-1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	refresh, err := i.IssueRefresh("acct-1")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}

	if id, err := i.Verify(access, KindAccess); err != nil || id != "acct-1" {
		t.Fatalf("Verify access = (%q, %v)", id, err)
	}
	if id, err := i.Verify(refresh, KindRefresh); err != nil || id != "acct-1" {
		t.Fatalf("Verify refresh = (%q, %v)", id, err)
	}
}

func TestVerifyRejectsCrossFamily(t *testing.T) {
	i := testIssuer(t)

	access, _ := i.IssueAccess("acct-1")
	refresh, _ := i.IssueRefresh("acct-1")

	if _, err := i.Verify(access, KindRefresh); !errors.Is(err, ErrInvalid) {
		t.Fatalf("access token verified as refresh: %v", err)
	}
	if _, err := i.Verify(refresh, KindAccess); !errors.Is(err, ErrInvalid) {
		t.Fatalf("refresh token verified as access: %v", err)
	}
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	i := testIssuer(t)
	other, err := New("other-access", "other-refresh", time.Hour, time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	forged, _ := other.IssueAccess("acct-1")
	if _, err := i.Verify(forged, KindAccess); !errors.Is(err, ErrInvalid) {
		t.Fatalf("foreign signature accepted: %v", err)
	}

	if _, err := i.Verify("garbage.token.value", KindAccess); !errors.Is(err, ErrInvalid) {
		t.Fatalf("malformed token accepted: %v", err)
	}
}

func TestVerifyReportsExpiry(t *testing.T) {
	i := testIssuer(t)

	// Freeze issuance in the past, verify in the present.
	issuedAt := time.Now().Add(-2 * time.Hour)
	i.now = func() time.Time { return issuedAt }
	access, err := i.IssueAccess("acct-1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	i.now = time.Now
	if _, err := i.Verify(access, KindAccess); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestRefreshTokensAreUnique(t *testing.T) {
	i := testIssuer(t)

	a, _ := i.IssueRefresh("acct-1")
	b, _ := i.IssueRefresh("acct-1")
	if a == b {
		t.Fatal("two refresh tokens issued back to back are identical")
	}
}
