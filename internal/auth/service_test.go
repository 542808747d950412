package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"profitbliss-backend/internal/domain"
	"profitbliss-backend/internal/storetest"
)

// fakeEmailSender records outgoing verification codes instead of sending.
type fakeEmailSender struct {
	lastCode string
	lastTo   string
	fail     bool
	sent     int
}

func (f *fakeEmailSender) IsConfigured() bool { return true }

func (f *fakeEmailSender) SendVerificationEmail(ctx context.Context, to, name, code string) error {
	if f.fail {
		return fmt.Errorf("smtp connection refused")
	}
	f.sent++
	f.lastTo = to
	f.lastCode = code
	return nil
}

func newTestService(store *storetest.Store, email EmailSender) *Service {
	config := DefaultConfig()
	config.JWTSecret = testSecret
	return NewService(store, email, nil, config, zerolog.Nop())
}

func TestSignupVerifyLoginFlow(t *testing.T) {
	store := storetest.New()
	email := &fakeEmailSender{}
	svc := newTestService(store, email)
	ctx := context.Background()

	user, err := svc.Signup(ctx, SignupRequest{
		Email:    "user@example.com",
		Password: "Sunset99pass",
		Name:     "Test User",
	})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if user.EmailVerified {
		t.Error("new account should start unverified")
	}
	if email.sent != 1 || email.lastTo != "user@example.com" {
		t.Errorf("sent = %d to %q, want 1 to user@example.com", email.sent, email.lastTo)
	}
	if len(email.lastCode) != 6 {
		t.Errorf("code length = %d, want 6", len(email.lastCode))
	}

	// Accounts cannot log in before verification.
	_, err = svc.Login(ctx, LoginRequest{Email: "user@example.com", Password: "Sunset99pass"})
	if !errors.Is(err, ErrEmailNotVerified) {
		t.Fatalf("login before verify err = %v, want ErrEmailNotVerified", err)
	}

	if err := svc.VerifyEmail(ctx, "user@example.com", "000000"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("wrong code err = %v, want ErrInvalidCode", err)
	}
	if err := svc.VerifyEmail(ctx, "user@example.com", email.lastCode); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	if err := svc.VerifyEmail(ctx, "user@example.com", email.lastCode); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("repeat verify err = %v, want ErrAlreadyVerified", err)
	}

	resp, err := svc.Login(ctx, LoginRequest{Email: "user@example.com", Password: "Sunset99pass"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Error("login returned empty tokens")
	}

	claims, err := svc.GetJWTManager().ValidateAccessToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != domain.RoleUser {
		t.Errorf("claims = %+v, want user %s with user role", claims, user.ID)
	}
}

func TestSignupEmailDeliveryFailureAborts(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store, &fakeEmailSender{fail: true})
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupRequest{
		Email:    "user@example.com",
		Password: "Sunset99pass",
		Name:     "Test User",
	})
	if err == nil {
		t.Fatal("expected signup to fail when email cannot be delivered")
	}
	var domErr domain.Error
	if !errors.As(err, &domErr) || domErr.Code != domain.CodeExternalServiceFailure {
		t.Errorf("err = %v, want CodeExternalServiceFailure", err)
	}

	// The account was never committed.
	exists, _ := store.EmailExists(ctx, "user@example.com")
	if exists {
		t.Error("account persisted despite email failure")
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store, &fakeEmailSender{})
	ctx := context.Background()

	req := SignupRequest{Email: "user@example.com", Password: "Sunset99pass", Name: "Test User"}
	if _, err := svc.Signup(ctx, req); err != nil {
		t.Fatalf("first Signup: %v", err)
	}
	if _, err := svc.Signup(ctx, req); !errors.Is(err, domain.ErrEmailExists) {
		t.Fatalf("second Signup err = %v, want ErrEmailExists", err)
	}
}

func TestSignupRejectsWeakPassword(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store, &fakeEmailSender{})

	_, err := svc.Signup(context.Background(), SignupRequest{
		Email:    "user@example.com",
		Password: "weakpassword",
		Name:     "Test User",
	})
	if err == nil {
		t.Fatal("expected weak password to be rejected")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	store := storetest.New()
	email := &fakeEmailSender{}
	svc := newTestService(store, email)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, SignupRequest{Email: "user@example.com", Password: "Sunset99pass", Name: "Test User"}); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if err := svc.VerifyEmail(ctx, "user@example.com", email.lastCode); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}

	if _, err := svc.Login(ctx, LoginRequest{Email: "user@example.com", Password: "Sunset99wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "Sunset99pass"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email err = %v, want ErrInvalidCredentials", err)
	}
}

func TestRefreshTokenRotation(t *testing.T) {
	store := storetest.New()
	email := &fakeEmailSender{}
	svc := newTestService(store, email)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, SignupRequest{Email: "user@example.com", Password: "Sunset99pass", Name: "Test User"}); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if err := svc.VerifyEmail(ctx, "user@example.com", email.lastCode); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	resp, err := svc.Login(ctx, LoginRequest{Email: "user@example.com", Password: "Sunset99pass"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	pair, err := svc.RefreshTokens(ctx, resp.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshTokens: %v", err)
	}
	if pair.RefreshToken == resp.RefreshToken {
		t.Error("refresh token was not rotated")
	}

	// The presented token is revoked on rotation and cannot be replayed.
	if _, err := svc.RefreshTokens(ctx, resp.RefreshToken); err == nil {
		t.Error("replayed refresh token accepted")
	}

	// The freshly issued token still works.
	if _, err := svc.RefreshTokens(ctx, pair.RefreshToken); err != nil {
		t.Errorf("rotated token rejected: %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	store := storetest.New()
	email := &fakeEmailSender{}
	svc := newTestService(store, email)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, SignupRequest{Email: "user@example.com", Password: "Sunset99pass", Name: "Test User"}); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if err := svc.VerifyEmail(ctx, "user@example.com", email.lastCode); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	resp, err := svc.Login(ctx, LoginRequest{Email: "user@example.com", Password: "Sunset99pass"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.Logout(ctx, resp.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.RefreshTokens(ctx, resp.RefreshToken); err == nil {
		t.Error("refresh accepted after logout")
	}

	// Logout with an unknown token is a no-op.
	if err := svc.Logout(ctx, "unknown-token"); err != nil {
		t.Errorf("Logout with unknown token: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	store := storetest.New()
	email := &fakeEmailSender{}
	svc := newTestService(store, email)
	ctx := context.Background()

	user, err := svc.Signup(ctx, SignupRequest{Email: "user@example.com", Password: "Sunset99pass", Name: "Test User"})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if err := svc.VerifyEmail(ctx, "user@example.com", email.lastCode); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}

	err = svc.ChangePassword(ctx, user.ID, ChangePasswordRequest{CurrentPassword: "Sunset99wrong", NewPassword: "Harbor77view"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong current password err = %v, want ErrInvalidCredentials", err)
	}

	if err := svc.ChangePassword(ctx, user.ID, ChangePasswordRequest{CurrentPassword: "Sunset99pass", NewPassword: "Harbor77view"}); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	if _, err := svc.Login(ctx, LoginRequest{Email: "user@example.com", Password: "Sunset99pass"}); err == nil {
		t.Error("old password still accepted")
	}
	if _, err := svc.Login(ctx, LoginRequest{Email: "user@example.com", Password: "Harbor77view"}); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestResendVerificationCode(t *testing.T) {
	store := storetest.New()
	email := &fakeEmailSender{}
	svc := newTestService(store, email)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, SignupRequest{Email: "user@example.com", Password: "Sunset99pass", Name: "Test User"}); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	first := email.lastCode

	if err := svc.ResendVerificationCode(ctx, "user@example.com"); err != nil {
		t.Fatalf("ResendVerificationCode: %v", err)
	}
	if email.sent != 2 {
		t.Errorf("sent = %d, want 2", email.sent)
	}

	// The old code is replaced, only the latest one verifies.
	if first != email.lastCode {
		if err := svc.VerifyEmail(ctx, "user@example.com", first); !errors.Is(err, ErrInvalidCode) {
			t.Errorf("stale code err = %v, want ErrInvalidCode", err)
		}
	}
	if err := svc.VerifyEmail(ctx, "user@example.com", email.lastCode); err != nil {
		t.Fatalf("VerifyEmail with resent code: %v", err)
	}

	if err := svc.ResendVerificationCode(ctx, "user@example.com"); !errors.Is(err, ErrAlreadyVerified) {
		t.Errorf("resend after verify err = %v, want ErrAlreadyVerified", err)
	}
}
