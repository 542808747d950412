package auth

import (
	"time"

	"profitbliss-backend/internal/domain"
)

// UserClaims represents the JWT claims for a user
type UserClaims struct {
	UserID string      `json:"user_id"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
}

// IsAdmin reports whether the claims carry the admin role
func (c UserClaims) IsAdmin() bool {
	return c.Role == domain.RoleAdmin
}

// TokenPair represents an access and refresh token pair
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // Access token expiry in seconds
	TokenType    string `json:"token_type"` // Always "Bearer"
}

// SignupRequest represents a user registration request
type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required,min=2"`
}

// LoginRequest represents a user login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
}

// UserResponse represents user data returned to the client
type UserResponse struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Role          string    `json:"role"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewUserResponse maps a user onto its client representation
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:            user.ID,
		Email:         user.Email,
		Name:          user.Name,
		Role:          string(user.Role),
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt,
	}
}

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// VerifyEmailRequest carries the one-time code mailed at signup
type VerifyEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6"`
}

// ResendCodeRequest asks for a fresh verification code
type ResendCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

// Config holds authentication configuration
type Config struct {
	// JWT settings
	JWTSecret            string        `json:"jwt_secret"`
	AccessTokenDuration  time.Duration `json:"access_token_duration"`
	RefreshTokenDuration time.Duration `json:"refresh_token_duration"`

	// Password settings
	MinPasswordLength int `json:"min_password_length"`

	// Email verification
	RequireEmailVerification bool          `json:"require_email_verification"`
	VerificationCodeTTL      time.Duration `json:"verification_code_ttl"`
}

// DefaultConfig returns default authentication configuration
func DefaultConfig() Config {
	return Config{
		JWTSecret:                "", // Must be set
		AccessTokenDuration:      15 * time.Minute,
		RefreshTokenDuration:     7 * 24 * time.Hour,
		MinPasswordLength:        8,
		RequireEmailVerification: true,
		VerificationCodeTTL:      10 * time.Minute,
	}
}

// Common authentication errors
var (
	ErrInvalidCredentials = domain.NewError(domain.CodeUnauthorized, "invalid email or password")
	ErrInvalidToken       = domain.NewError(domain.CodeUnauthorized, "invalid or expired token")
	ErrTokenExpired       = domain.NewError(domain.CodeUnauthorized, "token has expired")
	ErrSessionRevoked     = domain.NewError(domain.CodeUnauthorized, "session has been revoked")
	ErrEmailNotVerified   = domain.NewError(domain.CodeForbidden, "email not verified")
	ErrInvalidCode        = domain.NewError(domain.CodeInvalidInput, "invalid or expired verification code")
	ErrAlreadyVerified    = domain.NewError(domain.CodeConflict, "email is already verified")
)
