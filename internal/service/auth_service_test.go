package service

import (
	"context"
	"errors"
	"testing"

	"github.com/modaplex/internal/config"
	"github.com/modaplex/internal/constants"
)

func newAuthServiceForTest(t *testing.T, env *serviceTestEnv) *AuthService {
	t.Helper()
	return NewAuthService(config.JWTConfig{SecretKey: "unit-test-secret", ExpireHours: 1}, env.userRepo)
}

func TestRegisterAndLogin(t *testing.T) {
	env := newServiceTestEnv(t, "auth_register_login")
	auth := newAuthServiceForTest(t, env)
	ctx := context.Background()

	user, token, _, err := auth.Register(ctx, "  Shopper@Example.COM ", "correct-horse", "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.Email != "shopper@example.com" || user.UserType != constants.UserTypeCustomer || user.DisplayName != "shopper" {
		t.Fatalf("unexpected user: %+v", user)
	}
	claims, err := auth.ParseToken(token)
	if err != nil || claims.UserID != user.ID || claims.UserType != constants.UserTypeCustomer {
		t.Fatalf("token should carry identity: %+v err=%v", claims, err)
	}

	if _, _, _, err := auth.Register(ctx, "shopper@example.com", "another-pass", ""); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
	if _, _, _, err := auth.Register(ctx, "short@example.com", "1234567", ""); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if _, _, _, err := auth.Register(ctx, "not-an-email", "long-enough", ""); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}

	logged, _, _, err := auth.Login(ctx, "SHOPPER@example.com", "correct-horse")
	if err != nil || logged.LastLoginAt == nil {
		t.Fatalf("login failed: %+v err=%v", logged, err)
	}
	if _, _, _, err := auth.Login(ctx, "shopper@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, _, err := auth.Login(ctx, "nobody@example.com", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email should look like bad credentials, got %v", err)
	}
}

func TestLoginRejectsDisabledUser(t *testing.T) {
	env := newServiceTestEnv(t, "auth_disabled")
	auth := newAuthServiceForTest(t, env)
	ctx := context.Background()

	user, _, _, err := auth.Register(ctx, "buyer@example.com", "correct-horse", "Buyer")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	user.Status = constants.UserStatusDisabled
	if err := env.userRepo.Update(user); err != nil {
		t.Fatalf("disable user failed: %v", err)
	}
	if _, _, _, err := auth.Login(ctx, "buyer@example.com", "correct-horse"); !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("expected ErrUserDisabled, got %v", err)
	}
	state, err := auth.ResolveAuthState(ctx, user.ID)
	if err != nil || state.Status != constants.UserStatusDisabled {
		t.Fatalf("auth state should reflect disabled status: %+v err=%v", state, err)
	}
	if _, err := auth.ResolveAuthState(ctx, user.ID+50); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	env := newServiceTestEnv(t, "auth_foreign_token")
	auth := newAuthServiceForTest(t, env)
	other := NewAuthService(config.JWTConfig{SecretKey: "someone-else"}, env.userRepo)

	user := createCustomerFixture(t, env.db, "buyer@example.com")
	token, _, err := other.GenerateToken(user)
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	if _, err := auth.ParseToken(token); err == nil {
		t.Fatalf("token signed with another secret must be rejected")
	}
}
