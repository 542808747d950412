package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog"

	"profitbliss-backend/internal/domain"
	"profitbliss-backend/internal/events"
)

// Store is the slice of the record store the auth service needs
type Store interface {
	CreateUserWithWallet(ctx context.Context, user *domain.User) error
	UserByID(ctx context.Context, userID string) (*domain.User, error)
	UserByEmail(ctx context.Context, email string) (*domain.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	SetVerificationCode(ctx context.Context, userID, code string, expiresAt time.Time) error
	ConsumeVerificationCode(ctx context.Context, userID, code string) (bool, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	UpdateRole(ctx context.Context, userID string, role domain.Role) error
	CreateSession(ctx context.Context, session *domain.Session) error
	SessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	RevokeSession(ctx context.Context, sessionID int64) error
	DeleteExpiredSessions(ctx context.Context) error
}

// EmailSender delivers verification codes
type EmailSender interface {
	IsConfigured() bool
	SendVerificationEmail(ctx context.Context, to, name, code string) error
}

// Service handles authentication operations
type Service struct {
	store           Store
	jwtManager      *JWTManager
	passwordManager *PasswordManager
	email           EmailSender
	bus             *events.Bus
	config          Config
	logger          zerolog.Logger
}

// NewService creates a new authentication service
func NewService(store Store, email EmailSender, bus *events.Bus, config Config, logger zerolog.Logger) *Service {
	if config.AccessTokenDuration == 0 {
		config.AccessTokenDuration = 15 * time.Minute
	}
	if config.RefreshTokenDuration == 0 {
		config.RefreshTokenDuration = 7 * 24 * time.Hour
	}
	if config.VerificationCodeTTL == 0 {
		config.VerificationCodeTTL = 10 * time.Minute
	}

	return &Service{
		store:           store,
		jwtManager:      NewJWTManager(config.JWTSecret, config.AccessTokenDuration, config.RefreshTokenDuration),
		passwordManager: NewPasswordManager(DefaultBcryptCost, config.MinPasswordLength),
		email:           email,
		bus:             bus,
		config:          config,
		logger:          logger.With().Str("component", "auth").Logger(),
	}
}

// GetJWTManager returns the JWT manager for use in middleware
func (s *Service) GetJWTManager() *JWTManager {
	return s.jwtManager
}

// Signup creates a user together with their empty wallet. The verification
// email is sent before the account is persisted; a signup whose email
// cannot be delivered is not committed, so every stored unverified account
// has had its code sent at least once.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*domain.User, error) {
	requiresVerification := s.config.RequireEmailVerification && s.email != nil && s.email.IsConfigured()

	exists, err := s.store.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, domain.ErrEmailExists
	}

	if err := s.passwordManager.ValidatePasswordStrength(req.Password); err != nil {
		return nil, err
	}

	passwordHash, err := s.passwordManager.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Email:         req.Email,
		PasswordHash:  passwordHash,
		Name:          req.Name,
		Role:          domain.RoleUser,
		EmailVerified: !requiresVerification,
	}

	if requiresVerification {
		code, err := generateVerificationCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate verification code: %w", err)
		}
		if err := s.email.SendVerificationEmail(ctx, req.Email, req.Name, code); err != nil {
			s.logger.Error().Err(err).Str("email", req.Email).Msg("verification email delivery failed")
			return nil, domain.NewError(domain.CodeExternalServiceFailure, "failed to send verification email")
		}
		expiresAt := time.Now().UTC().Add(s.config.VerificationCodeTTL)
		user.VerificationCode = &code
		user.VerificationExpiresAt = &expiresAt
	}

	if err := s.store.CreateUserWithWallet(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("user registered")
	if s.bus != nil {
		s.bus.Publish(events.Event{
			Type: events.EventUserRegistered,
			Data: map[string]any{"user_id": user.ID, "email": user.Email},
		})
	}

	return user, nil
}

// Login authenticates a user and returns tokens
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.store.UserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if !s.passwordManager.VerifyPassword(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if s.config.RequireEmailVerification && !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	tokenPair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		User:         NewUserResponse(user),
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresIn:    tokenPair.ExpiresIn,
	}, nil
}

func (s *Service) issueTokens(ctx context.Context, user *domain.User) (*TokenPair, error) {
	claims := UserClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	}

	tokenPair, err := s.jwtManager.GenerateTokenPair(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	session := &domain.Session{
		UserID:    user.ID,
		TokenHash: HashRefreshToken(tokenPair.RefreshToken),
		ExpiresAt: time.Now().Add(s.jwtManager.GetRefreshTokenDuration()),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return tokenPair, nil
}

// RefreshTokens rotates a refresh token: the presented session is revoked
// and a fresh pair is issued
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	session, err := s.store.SessionByTokenHash(ctx, HashRefreshToken(refreshToken))
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrInvalidToken
	}
	if session.ExpiresAt.Before(time.Now()) {
		return nil, ErrTokenExpired
	}
	if session.RevokedAt != nil {
		return nil, ErrSessionRevoked
	}

	user, err := s.store.UserByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	if err := s.store.RevokeSession(ctx, session.ID); err != nil {
		return nil, fmt.Errorf("failed to revoke session: %w", err)
	}

	return s.issueTokens(ctx, user)
}

// Logout revokes the session behind a refresh token
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	session, err := s.store.SessionByTokenHash(ctx, HashRefreshToken(refreshToken))
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil // Already logged out or invalid token
	}
	return s.store.RevokeSession(ctx, session.ID)
}

// VerifyEmail consumes a one-time code and marks the account verified
func (s *Service) VerifyEmail(ctx context.Context, email, code string) error {
	user, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return domain.ErrUserNotFound
	}
	if user.EmailVerified {
		return ErrAlreadyVerified
	}

	ok, err := s.store.ConsumeVerificationCode(ctx, user.ID, code)
	if err != nil {
		return fmt.Errorf("failed to verify code: %w", err)
	}
	if !ok {
		return ErrInvalidCode
	}

	s.logger.Info().Str("user_id", user.ID).Msg("email verified")
	return nil
}

// ResendVerificationCode issues and mails a fresh code, replacing any
// previous one
func (s *Service) ResendVerificationCode(ctx context.Context, email string) error {
	if s.email == nil || !s.email.IsConfigured() {
		return domain.NewError(domain.CodeExternalServiceFailure, "email service is not configured")
	}

	user, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return domain.ErrUserNotFound
	}
	if user.EmailVerified {
		return ErrAlreadyVerified
	}

	code, err := generateVerificationCode()
	if err != nil {
		return fmt.Errorf("failed to generate verification code: %w", err)
	}
	if err := s.email.SendVerificationEmail(ctx, user.Email, user.Name, code); err != nil {
		return domain.NewError(domain.CodeExternalServiceFailure, "failed to send verification email")
	}
	expiresAt := time.Now().UTC().Add(s.config.VerificationCodeTTL)
	if err := s.store.SetVerificationCode(ctx, user.ID, code, expiresAt); err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}

	return nil
}

// ChangePassword changes a user's password
func (s *Service) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error {
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return domain.ErrUserNotFound
	}

	if !s.passwordManager.VerifyPassword(req.CurrentPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}

	if err := s.passwordManager.ValidatePasswordStrength(req.NewPassword); err != nil {
		return err
	}

	newHash, err := s.passwordManager.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.store.UpdatePassword(ctx, userID, newHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

// UserByID retrieves a user by ID
func (s *Service) UserByID(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// CleanupExpiredSessions removes expired sessions from the database
func (s *Service) CleanupExpiredSessions(ctx context.Context) error {
	return s.store.DeleteExpiredSessions(ctx)
}

// generateVerificationCode returns a random 6-digit code
func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
