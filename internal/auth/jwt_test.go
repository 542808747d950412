package auth

import (
	"errors"
	"testing"
	"time"

	"profitbliss-backend/internal/domain"
)

const testSecret = "test-secret-at-least-32-characters-long"

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewJWTManager(testSecret, 15*time.Minute, 7*24*time.Hour)

	token, err := m.GenerateAccessToken(UserClaims{
		UserID: "u1",
		Email:  "user@example.com",
		Role:   domain.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	claims, err := m.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.UserID != "u1" {
		t.Errorf("UserID = %q, want u1", claims.UserID)
	}
	if claims.Email != "user@example.com" {
		t.Errorf("Email = %q, want user@example.com", claims.Email)
	}
	if claims.Role != domain.RoleAdmin {
		t.Errorf("Role = %q, want admin", claims.Role)
	}
	if !claims.IsAdmin() {
		t.Error("IsAdmin() = false for admin role")
	}
}

func TestValidateAccessTokenRejectsTampered(t *testing.T) {
	m := NewJWTManager(testSecret, 15*time.Minute, 7*24*time.Hour)

	token, err := m.GenerateAccessToken(UserClaims{UserID: "u1", Email: "user@example.com", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	if _, err := m.ValidateAccessToken(token + "x"); err == nil {
		t.Error("tampered token accepted")
	}
	if _, err := m.ValidateAccessToken("not.a.jwt"); err == nil {
		t.Error("garbage token accepted")
	}

	other := NewJWTManager("a-completely-different-signing-secret!!", 15*time.Minute, 7*24*time.Hour)
	if _, err := other.ValidateAccessToken(token); err == nil {
		t.Error("token signed with another secret accepted")
	}
}

func TestValidateAccessTokenExpired(t *testing.T) {
	m := NewJWTManager(testSecret, -time.Minute, 7*24*time.Hour)

	token, err := m.GenerateAccessToken(UserClaims{UserID: "u1", Email: "user@example.com", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	_, err = m.ValidateAccessToken(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
}

func TestGenerateRefreshTokenUnique(t *testing.T) {
	m := NewJWTManager(testSecret, 15*time.Minute, 7*24*time.Hour)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		token, err := m.GenerateRefreshToken()
		if err != nil {
			t.Fatalf("GenerateRefreshToken: %v", err)
		}
		if seen[token] {
			t.Fatal("duplicate refresh token generated")
		}
		seen[token] = true
	}
}

func TestGenerateTokenPair(t *testing.T) {
	m := NewJWTManager(testSecret, 15*time.Minute, 7*24*time.Hour)

	pair, err := m.GenerateTokenPair(UserClaims{UserID: "u1", Email: "user@example.com", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("empty token in pair")
	}
	if pair.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Errorf("ExpiresIn = %d, want 900", pair.ExpiresIn)
	}
	if _, err := m.ValidateAccessToken(pair.AccessToken); err != nil {
		t.Errorf("access token from pair invalid: %v", err)
	}
}
