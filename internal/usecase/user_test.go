package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Ezra31448/soap-api/internal/core/domain"
	"github.com/Ezra31448/soap-api/internal/infra/security"
)

func TestUserService_GetProfile_OwnVersusAll(t *testing.T) {
	f := newServiceFixture(t)
	user := f.seedUser(t, "member@example.com", "", domain.UserStatusActive)
	f.grantPermissions(t, user.ID, "MEMBERS", domain.PermProfileReadOwn)
	other := f.seedUser(t, "other@example.com", "", domain.UserStatusActive)

	svc := f.userService()
	own, err := svc.GetProfile(context.Background(), ProfileInput{ActorID: user.ID, UserID: user.ID})
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if own.Email != "member@example.com" {
		t.Errorf("expected own profile, got %q", own.Email)
	}
	if own.PasswordHash != "" {
		t.Error("password hash leaked into the profile")
	}

	_, err = svc.GetProfile(context.Background(), ProfileInput{ActorID: user.ID, UserID: other.ID})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied for another profile, got %v", err)
	}

	f.grantPermissions(t, user.ID, "MEMBERS", domain.PermProfileReadAll)
	theirs, err := svc.GetProfile(context.Background(), ProfileInput{ActorID: user.ID, UserID: other.ID})
	if err != nil {
		t.Fatalf("expected access with the read-all permission, got %v", err)
	}
	if theirs.Email != "other@example.com" {
		t.Errorf("expected the other profile, got %q", theirs.Email)
	}
}

func TestUserService_GetProfile_DefaultsToActor(t *testing.T) {
	f := newServiceFixture(t)
	user := f.seedUser(t, "member@example.com", "", domain.UserStatusActive)
	f.grantPermissions(t, user.ID, "MEMBERS", domain.PermProfileReadOwn)

	svc := f.userService()
	profile, err := svc.GetProfile(context.Background(), ProfileInput{ActorID: user.ID})
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile.ID != user.ID {
		t.Errorf("expected the actor's own profile, got %s", profile.ID)
	}
}

func TestUserService_ListUsers_PageClamp(t *testing.T) {
	f := newServiceFixture(t)
	admin := f.seedUser(t, "admin@example.com", "", domain.UserStatusActive)
	f.grantPermissions(t, admin.ID, "PLATFORM_ADMIN", domain.PermUserRead)
	f.seedUser(t, "one@example.com", "", domain.UserStatusActive)
	f.seedUser(t, "two@example.com", "", domain.UserStatusActive)

	svc := f.userService()
	page, err := svc.ListUsers(context.Background(), ListUsersInput{
		ActorID:  admin.ID,
		Page:     0,
		PageSize: 1000,
	})
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if page.Page != 1 || page.PageSize != 100 {
		t.Errorf("expected clamped page 1 size 100, got %d/%d", page.Page, page.PageSize)
	}
	if page.Total != 3 || len(page.Users) != 3 {
		t.Errorf("expected 3 users, got total=%d len=%d", page.Total, len(page.Users))
	}
	for _, u := range page.Users {
		if u.PasswordHash != "" {
			t.Fatalf("password hash leaked for %s", u.Email)
		}
	}

	second, err := svc.ListUsers(context.Background(), ListUsersInput{
		ActorID:  admin.ID,
		Page:     2,
		PageSize: 2,
	})
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(second.Users) != 1 || second.Total != 3 {
		t.Errorf("expected the 1 remaining user of 3, got len=%d total=%d", len(second.Users), second.Total)
	}
}

func TestUserService_UpdateProfile_AuditsDiff(t *testing.T) {
	f := newServiceFixture(t)
	user := f.seedUser(t, "member@example.com", "", domain.UserStatusActive)
	f.grantPermissions(t, user.ID, "MEMBERS", domain.PermProfileUpdateOwn)

	firstName := " Grace "
	phone := "+1 555 0199"
	svc := f.userService()
	updated, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{
		ActorID:   user.ID,
		UserID:    user.ID,
		FirstName: &firstName,
		Phone:     &phone,
	})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if updated.FirstName != "Grace" {
		t.Errorf("expected trimmed first name, got %q", updated.FirstName)
	}
	if updated.Phone == nil || *updated.Phone != "+1 555 0199" {
		t.Errorf("expected updated phone, got %v", updated.Phone)
	}

	entries := f.audit.byAction(domain.AuditUserUpdated)
	if len(entries) != 1 {
		t.Fatalf("expected one update entry, got %d", len(entries))
	}
	if entries[0].OldValues["first_name"] != "Alex" {
		t.Errorf("expected old first name Alex, got %v", entries[0].OldValues["first_name"])
	}
	if entries[0].NewValues["first_name"] != "Grace" {
		t.Errorf("expected new first name Grace, got %v", entries[0].NewValues["first_name"])
	}
	if entries[0].NewValues["phone"] != "+1 555 0199" {
		t.Errorf("expected new phone audited, got %v", entries[0].NewValues["phone"])
	}
}

func TestUserService_UpdateProfile_ConcurrentUpdate(t *testing.T) {
	f := newServiceFixture(t)
	user := f.seedUser(t, "member@example.com", "", domain.UserStatusActive)
	f.grantPermissions(t, user.ID, "MEMBERS", domain.PermProfileUpdateOwn)

	firstName := "Grace"
	svc := f.userService()
	_, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{
		ActorID:           user.ID,
		UserID:            user.ID,
		FirstName:         &firstName,
		ExpectedUpdatedAt: f.clock.Now().Add(-time.Hour),
	})
	if !errors.Is(err, ErrConcurrentUpdate) {
		t.Fatalf("expected ErrConcurrentUpdate, got %v", err)
	}

	if f.users.users[user.ID].FirstName != "Alex" {
		t.Error("expected the profile unchanged after the conflict")
	}
}

func TestUserService_UpdateProfile_NoChangeSkipsWrite(t *testing.T) {
	f := newServiceFixture(t)
	user := f.seedUser(t, "member@example.com", "", domain.UserStatusActive)
	f.grantPermissions(t, user.ID, "MEMBERS", domain.PermProfileUpdateOwn)

	firstName := "Alex"
	svc := f.userService()
	result, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{
		ActorID:   user.ID,
		UserID:    user.ID,
		FirstName: &firstName,
	})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if result.FirstName != "Alex" {
		t.Errorf("expected unchanged profile, got %q", result.FirstName)
	}

	if f.uow.calls != 0 {
		t.Errorf("expected no transaction for a no-op update, got %d", f.uow.calls)
	}
	if got := len(f.audit.byAction(domain.AuditUserUpdated)); got != 0 {
		t.Errorf("expected no update entries, got %d", got)
	}
}

func TestUserService_ChangePassword_RevokesOutstandingCredential(t *testing.T) {
	f := newServiceFixture(t)
	oldPassword := "Old#Pass9Word!x"
	newPassword := "vB7#mQ2!xPl9wK"
	user := f.seedUser(t, "member@example.com", oldPassword, domain.UserStatusActive)

	outstanding, err := f.tokens.Issue(context.Background(), user, nil)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	svc := f.userService()
	err = svc.ChangePassword(context.Background(), ChangePasswordInput{
		ActorID:         user.ID,
		UserID:          user.ID,
		CurrentPassword: oldPassword,
		NewPassword:     newPassword,
	})
	if err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	stored := f.users.users[user.ID]
	if match, err := security.VerifyPassword(newPassword, stored.PasswordHash); err != nil || !match {
		t.Errorf("expected the new password stored, match=%v err=%v", match, err)
	}

	if _, err := f.tokens.Verify(context.Background(), outstanding.Credential); !errors.Is(err, ErrRevokedAccessToken) {
		t.Errorf("expected outstanding credential revoked, got %v", err)
	}

	changed := f.audit.byAction(domain.AuditPasswordChanged)
	if len(changed) != 1 {
		t.Fatalf("expected one password change entry, got %d", len(changed))
	}
	if changed[0].NewValues["changed_by"] != user.ID {
		t.Errorf("expected changed_by %s, got %v", user.ID, changed[0].NewValues["changed_by"])
	}

	if len(f.events.passwordChanged) != 1 || !f.events.passwordChanged[0].SessionsRevoked {
		t.Errorf("expected one password changed event with revoked sessions, got %v", f.events.passwordChanged)
	}
	if len(f.events.sessionsRevoked) != 1 || f.events.sessionsRevoked[0].Reason != "password_change" {
		t.Errorf("expected one sessions revoked event, got %v", f.events.sessionsRevoked)
	}
}

func TestUserService_ChangePassword_WrongCurrent(t *testing.T) {
	f := newServiceFixture(t)
	user := f.seedUser(t, "member@example.com", "Old#Pass9Word!x", domain.UserStatusActive)

	svc := f.userService()
	err := svc.ChangePassword(context.Background(), ChangePasswordInput{
		ActorID:         user.ID,
		UserID:          user.ID,
		CurrentPassword: "not-the-password",
		NewPassword:     "vB7#mQ2!xPl9wK",
	})
	if !errors.Is(err, ErrCurrentPasswordInvalid) {
		t.Fatalf("expected ErrCurrentPasswordInvalid, got %v", err)
	}
}

func TestUserService_ChangePassword_MissingCurrent(t *testing.T) {
	f := newServiceFixture(t)
	user := f.seedUser(t, "member@example.com", "", domain.UserStatusActive)

	svc := f.userService()
	err := svc.ChangePassword(context.Background(), ChangePasswordInput{
		ActorID:     user.ID,
		UserID:      user.ID,
		NewPassword: "vB7#mQ2!xPl9wK",
	})
	if !errors.Is(err, ErrCurrentPasswordRequired) {
		t.Fatalf("expected ErrCurrentPasswordRequired, got %v", err)
	}
}

func TestUserService_ChangePassword_AdminPath(t *testing.T) {
	f := newServiceFixture(t)
	admin := f.seedUser(t, "admin@example.com", "", domain.UserStatusActive)
	f.grantPermissions(t, admin.ID, "PLATFORM_ADMIN", domain.PermUserUpdateAll)
	target := f.seedUser(t, "member@example.com", "", domain.UserStatusActive)

	svc := f.userService()
	err := svc.ChangePassword(context.Background(), ChangePasswordInput{
		ActorID:     admin.ID,
		UserID:      target.ID,
		NewPassword: "vB7#mQ2!xPl9wK",
	})
	if err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	changed := f.audit.byAction(domain.AuditPasswordChanged)
	if len(changed) != 1 {
		t.Fatalf("expected one password change entry, got %d", len(changed))
	}
	if changed[0].NewValues["changed_by"] != admin.ID {
		t.Errorf("expected changed_by %s, got %v", admin.ID, changed[0].NewValues["changed_by"])
	}
}

func TestUserService_DeactivateUser_RevokesSessions(t *testing.T) {
	f := newServiceFixture(t)
	admin := f.seedUser(t, "admin@example.com", "", domain.UserStatusActive)
	f.grantPermissions(t, admin.ID, "PLATFORM_ADMIN", domain.PermUserDelete, domain.PermUserUpdate)
	target := f.seedUser(t, "member@example.com", "", domain.UserStatusActive)

	outstanding, err := f.tokens.Issue(context.Background(), target, nil)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	svc := f.userService()
	if err := svc.DeactivateUser(context.Background(), AccountStatusInput{ActorID: admin.ID, UserID: target.ID}); err != nil {
		t.Fatalf("DeactivateUser failed: %v", err)
	}

	if got := f.users.users[target.ID].Status; got != domain.UserStatusInactive {
		t.Errorf("expected status INACTIVE, got %s", got)
	}
	if _, err := f.tokens.Verify(context.Background(), outstanding.Credential); !errors.Is(err, ErrRevokedAccessToken) {
		t.Errorf("expected outstanding credential revoked, got %v", err)
	}

	deactivated := f.audit.byAction(domain.AuditUserDeactivated)
	if len(deactivated) != 1 {
		t.Fatalf("expected one deactivation entry, got %d", len(deactivated))
	}
	if deactivated[0].OldValues["status"] != "ACTIVE" || deactivated[0].NewValues["status"] != "INACTIVE" {
		t.Errorf("expected status transition audited, got %v -> %v",
			deactivated[0].OldValues["status"], deactivated[0].NewValues["status"])
	}

	decision, err := f.authz.Authorize(context.Background(), AuthorizeInput{
		UserID:     target.ID,
		Permission: domain.PermProfileReadOwn,
	})
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if decision.Allowed || decision.Reason != DecisionReasonAccountInactive {
		t.Errorf("expected an inactive denial, got %+v", decision)
	}
}

func TestUserService_ActivateUser_RestoresAccess(t *testing.T) {
	f := newServiceFixture(t)
	admin := f.seedUser(t, "admin@example.com", "", domain.UserStatusActive)
	f.grantPermissions(t, admin.ID, "PLATFORM_ADMIN", domain.PermUserUpdate)
	target := f.seedUser(t, "member@example.com", "", domain.UserStatusInactive)

	svc := f.userService()
	if err := svc.ActivateUser(context.Background(), AccountStatusInput{ActorID: admin.ID, UserID: target.ID}); err != nil {
		t.Fatalf("ActivateUser failed: %v", err)
	}

	if got := f.users.users[target.ID].Status; got != domain.UserStatusActive {
		t.Errorf("expected status ACTIVE, got %s", got)
	}
	if got := len(f.audit.byAction(domain.AuditUserActivated)); got != 1 {
		t.Errorf("expected one activation entry, got %d", got)
	}

	// Re-activating an active account is a no-op.
	if err := svc.ActivateUser(context.Background(), AccountStatusInput{ActorID: admin.ID, UserID: target.ID}); err != nil {
		t.Fatalf("repeat ActivateUser failed: %v", err)
	}
	if got := len(f.audit.byAction(domain.AuditUserActivated)); got != 1 {
		t.Errorf("expected no extra activation entries, got %d", got)
	}
}
