package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"profitbliss-backend/internal/domain"
)

// CreatePlan inserts a new investment plan
func (r *Repository) CreatePlan(ctx context.Context, plan *domain.InvestmentPlan) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO investment_plans (name, description, min_amount, roi_percent, duration_days)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, plan.Name, plan.Description, plan.MinAmount, plan.ROIPercent, plan.DurationDays).
		Scan(&plan.ID, &plan.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrPlanNameExists
		}
		return fmt.Errorf("failed to create plan: %w", err)
	}
	return nil
}

// PlanByID retrieves a plan by ID. Returns nil, nil when absent.
func (r *Repository) PlanByID(ctx context.Context, planID int64) (*domain.InvestmentPlan, error) {
	plan := &domain.InvestmentPlan{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, name, description, min_amount, roi_percent, duration_days, created_at
		FROM investment_plans WHERE id = $1
	`, planID).Scan(
		&plan.ID, &plan.Name, &plan.Description, &plan.MinAmount,
		&plan.ROIPercent, &plan.DurationDays, &plan.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return plan, nil
}

// ListPlans returns all plans, newest first
func (r *Repository) ListPlans(ctx context.Context) ([]domain.InvestmentPlan, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, description, min_amount, roi_percent, duration_days, created_at
		FROM investment_plans ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []domain.InvestmentPlan
	for rows.Next() {
		var plan domain.InvestmentPlan
		if err := rows.Scan(
			&plan.ID, &plan.Name, &plan.Description, &plan.MinAmount,
			&plan.ROIPercent, &plan.DurationDays, &plan.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate plans: %w", err)
	}
	return plans, nil
}

// UpdatePlan updates a plan's attributes
func (r *Repository) UpdatePlan(ctx context.Context, plan *domain.InvestmentPlan) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE investment_plans SET name = $2, description = $3, min_amount = $4,
			roi_percent = $5, duration_days = $6
		WHERE id = $1
	`, plan.ID, plan.Name, plan.Description, plan.MinAmount, plan.ROIPercent, plan.DurationDays)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrPlanNameExists
		}
		return fmt.Errorf("failed to update plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPlanNotFound
	}
	return nil
}

// DeletePlan removes a plan unless any investment references it. The guard
// and the delete run in one transaction so a concurrent subscribe cannot
// orphan an investment.
func (r *Repository) DeletePlan(ctx context.Context, planID int64) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var referenced bool
	err = tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM investments WHERE plan_id = $1)`, planID).Scan(&referenced)
	if err != nil {
		return fmt.Errorf("failed to check plan references: %w", err)
	}
	if referenced {
		return domain.ErrPlanInUse
	}

	tag, err := tx.Exec(ctx, `DELETE FROM investment_plans WHERE id = $1`, planID)
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPlanNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit plan deletion: %w", err)
	}
	return nil
}

// SeedDefaultPlans inserts the default plan catalog if missing
func (r *Repository) SeedDefaultPlans(ctx context.Context, plans []domain.InvestmentPlan) error {
	for _, plan := range plans {
		_, err := r.db.Pool.Exec(ctx, `
			INSERT INTO investment_plans (name, description, min_amount, roi_percent, duration_days)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (name) DO NOTHING
		`, plan.Name, plan.Description, plan.MinAmount, plan.ROIPercent, plan.DurationDays)
		if err != nil {
			return fmt.Errorf("failed to seed plan %s: %w", plan.Name, err)
		}
	}
	return nil
}
