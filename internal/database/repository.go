package database

import (
	"context"
	"fmt"
)

// Repository provides access to all persistent records. Every multi-step
// wallet mutation runs inside a single transaction here; callers never see
// a debit without its paired record write.
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// HealthCheck verifies database connectivity
func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
