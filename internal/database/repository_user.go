package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"profitbliss-backend/internal/domain"
)

const uniqueViolation = "23505"

const userColumns = `id, email, password_hash, name, role, email_verified,
	verification_code, verification_expires_at, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.Role,
		&user.EmailVerified, &user.VerificationCode, &user.VerificationExpiresAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUserWithWallet creates a user together with their zero-balance
// wallet and stored verification code, all in one transaction. Signup never
// commits a user without a wallet.
func (r *Repository) CreateUserWithWallet(ctx context.Context, user *domain.User) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO users (email, password_hash, name, role, verification_code, verification_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRow(ctx, query,
		user.Email, user.PasswordHash, user.Name, user.Role,
		user.VerificationCode, user.VerificationExpiresAt,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrEmailExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	if _, err := tx.Exec(ctx, `INSERT INTO wallets (user_id, balance) VALUES ($1, 0)`, user.ID); err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit user creation: %w", err)
	}

	return nil
}

// UserByID retrieves a user by ID. Returns nil, nil when absent.
func (r *Repository) UserByID(ctx context.Context, userID string) (*domain.User, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UserByEmail retrieves a user by email. Returns nil, nil when absent.
func (r *Repository) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// EmailExists checks whether an email is already registered
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// SetVerificationCode stores a fresh one-time code and its expiry
func (r *Repository) SetVerificationCode(ctx context.Context, userID, code string, expiresAt time.Time) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE users SET verification_code = $2, verification_expires_at = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`, userID, code, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to set verification code: %w", err)
	}
	return nil
}

// ConsumeVerificationCode marks the user verified if the code matches and
// has not expired. The match, expiry check and code clearing happen in one
// conditional update so a code cannot be replayed.
func (r *Repository) ConsumeVerificationCode(ctx context.Context, userID, code string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE users SET email_verified = TRUE, verification_code = NULL,
			verification_expires_at = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND verification_code = $2 AND verification_expires_at > CURRENT_TIMESTAMP
	`, userID, code)
	if err != nil {
		return false, fmt.Errorf("failed to verify code: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpdatePassword replaces the user's password hash
func (r *Repository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1
	`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// UpdateRole changes the user's role
func (r *Repository) UpdateRole(ctx context.Context, userID string, role domain.Role) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE users SET role = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1
	`, userID, role)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	return nil
}

// CreateSession stores a hashed refresh-token session
func (r *Repository) CreateSession(ctx context.Context, session *domain.Session) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO sessions (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, session.UserID, session.TokenHash, session.ExpiresAt).Scan(&session.ID, &session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// SessionByTokenHash retrieves a session by its token hash. Returns nil, nil
// when absent.
func (r *Repository) SessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	session := &domain.Session{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, revoked_at, created_at
		FROM sessions WHERE token_hash = $1
	`, tokenHash).Scan(
		&session.ID, &session.UserID, &session.TokenHash,
		&session.ExpiresAt, &session.RevokedAt, &session.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// RevokeSession marks a session revoked
func (r *Repository) RevokeSession(ctx context.Context, sessionID int64) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE sessions SET revoked_at = CURRENT_TIMESTAMP WHERE id = $1 AND revoked_at IS NULL
	`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions past their expiry
func (r *Repository) DeleteExpiredSessions(ctx context.Context) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return nil
}
