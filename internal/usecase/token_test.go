package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Ezra31448/soap-api/internal/core/domain"
)

func tamperCredential(credential string) string {
	last := credential[len(credential)-1]
	replacement := byte('A')
	if last == 'A' {
		replacement = 'B'
	}
	return credential[:len(credential)-1] + string(replacement)
}

func TestTokenService_IssueAndVerify_RoundTrip(t *testing.T) {
	f := newServiceFixture(t)
	user := f.seedUser(t, "holder@example.com", "", domain.UserStatusActive)

	issued, err := f.tokens.Issue(context.Background(), user, []string{"USER", "MANAGER"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if issued.Credential == "" {
		t.Fatal("expected a signed credential")
	}
	if issued.ExpiresIn() != 3600 {
		t.Errorf("expected 3600 seconds of lifetime, got %d", issued.ExpiresIn())
	}

	claims, err := f.tokens.Verify(context.Background(), issued.Credential)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("expected subject %s, got %s", user.ID, claims.UserID)
	}
	if claims.TokenID != issued.TokenID {
		t.Errorf("expected token id %s, got %s", issued.TokenID, claims.TokenID)
	}
	if len(claims.Roles) != 2 || claims.Roles[0] != "USER" || claims.Roles[1] != "MANAGER" {
		t.Errorf("expected roles [USER MANAGER], got %v", claims.Roles)
	}
}

func TestTokenService_Issue_RejectsInactiveUser(t *testing.T) {
	f := newServiceFixture(t)
	user := f.seedUser(t, "suspended@example.com", "", domain.UserStatusSuspended)

	if _, err := f.tokens.Issue(context.Background(), user, nil); !errors.Is(err, ErrInactiveAccount) {
		t.Fatalf("expected ErrInactiveAccount, got %v", err)
	}

	if _, err := f.tokens.Issue(context.Background(), domain.User{}, nil); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for a zero user, got %v", err)
	}
}

func TestTokenService_Verify_Expired(t *testing.T) {
	f := newServiceFixture(t)
	user := f.seedUser(t, "holder@example.com", "", domain.UserStatusActive)

	issued, err := f.tokens.Issue(context.Background(), user, nil)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	f.clock.Advance(time.Hour + time.Minute)

	if _, err := f.tokens.Verify(context.Background(), issued.Credential); !errors.Is(err, ErrExpiredAccessToken) {
		t.Fatalf("expected ErrExpiredAccessToken, got %v", err)
	}
}

func TestTokenService_Verify_Tampered(t *testing.T) {
	f := newServiceFixture(t)
	user := f.seedUser(t, "holder@example.com", "", domain.UserStatusActive)

	issued, err := f.tokens.Issue(context.Background(), user, nil)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := f.tokens.Verify(context.Background(), tamperCredential(issued.Credential)); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("expected ErrInvalidAccessToken for tampered credential, got %v", err)
	}
	if _, err := f.tokens.Verify(context.Background(), "not-a-token"); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("expected ErrInvalidAccessToken for garbage, got %v", err)
	}
}

func TestTokenService_Revoke_BlocksVerify(t *testing.T) {
	f := newServiceFixture(t)
	user := f.seedUser(t, "holder@example.com", "", domain.UserStatusActive)

	issued, err := f.tokens.Issue(context.Background(), user, nil)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if err := f.tokens.Revoke(context.Background(), issued.Credential, "logout"); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if reason := f.revocations.revoked[issued.TokenID]; reason != "logout" {
		t.Errorf("expected revocation reason logout, got %q", reason)
	}

	if _, err := f.tokens.Verify(context.Background(), issued.Credential); !errors.Is(err, ErrRevokedAccessToken) {
		t.Fatalf("expected ErrRevokedAccessToken, got %v", err)
	}

	// Revoking again is a no-op.
	if err := f.tokens.Revoke(context.Background(), issued.Credential, "logout"); err != nil {
		t.Fatalf("second Revoke failed: %v", err)
	}
	if len(f.events.tokenRevoked) != 2 {
		t.Errorf("expected 2 revocation events, got %d", len(f.events.tokenRevoked))
	}
}

func TestTokenService_Revoke_ExpiredCredentialIsNoOp(t *testing.T) {
	f := newServiceFixture(t)
	user := f.seedUser(t, "holder@example.com", "", domain.UserStatusActive)

	issued, err := f.tokens.Issue(context.Background(), user, nil)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	f.clock.Advance(2 * time.Hour)

	if err := f.tokens.Revoke(context.Background(), issued.Credential, "logout"); err != nil {
		t.Fatalf("Revoke of expired credential failed: %v", err)
	}
	if len(f.revocations.revoked) != 0 {
		t.Errorf("expected registry untouched, got %d entries", len(f.revocations.revoked))
	}
}

func TestTokenService_RevokeAllForUser_CoversOutstandingCredentials(t *testing.T) {
	f := newServiceFixture(t)
	user := f.seedUser(t, "holder@example.com", "", domain.UserStatusActive)

	outstanding, err := f.tokens.Issue(context.Background(), user, nil)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	f.clock.Advance(time.Second)
	if err := f.tokens.RevokeAllForUser(context.Background(), user.ID, user.ID, "password_change"); err != nil {
		t.Fatalf("RevokeAllForUser failed: %v", err)
	}

	if _, err := f.tokens.Verify(context.Background(), outstanding.Credential); !errors.Is(err, ErrRevokedAccessToken) {
		t.Fatalf("expected outstanding credential revoked, got %v", err)
	}

	// A credential issued after the marker verifies normally.
	f.clock.Advance(time.Second)
	fresh, err := f.tokens.Issue(context.Background(), user, nil)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := f.tokens.Verify(context.Background(), fresh.Credential); err != nil {
		t.Fatalf("expected fresh credential to verify, got %v", err)
	}

	if len(f.events.sessionsRevoked) != 1 {
		t.Fatalf("expected one sessions revoked event, got %d", len(f.events.sessionsRevoked))
	}
	if f.events.sessionsRevoked[0].Reason != "password_change" {
		t.Errorf("expected reason password_change, got %q", f.events.sessionsRevoked[0].Reason)
	}
}

func TestTokenService_Verify_RegistryUnavailable(t *testing.T) {
	f := newServiceFixture(t)
	user := f.seedUser(t, "holder@example.com", "", domain.UserStatusActive)

	issued, err := f.tokens.Issue(context.Background(), user, nil)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	f.revocations.err = errors.New("registry down")

	// Lenient policy accepts a signature-valid credential.
	if _, err := f.tokens.Verify(context.Background(), issued.Credential); err != nil {
		t.Fatalf("expected lenient acceptance, got %v", err)
	}

	// Strict policy rejects when revocation state cannot be confirmed.
	f.tokens.WithDegradationPolicy(domain.NewDegradationPolicy(domain.DegradationPolicyModeStrict))
	if _, err := f.tokens.Verify(context.Background(), issued.Credential); !errors.Is(err, ErrRevocationUnavailable) {
		t.Fatalf("expected ErrRevocationUnavailable, got %v", err)
	}
}
