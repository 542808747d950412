// Package investment manages the subscribe → active → completed lifecycle
// and the maturity settlement that pays out principal plus ROI.
package investment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"profitbliss-backend/internal/domain"
)

// Store is the slice of the record store the lifecycle needs. The two
// mutating calls are atomic at the store: CreateInvestmentDebiting pairs
// the principal debit with the record insert, SettleInvestment pairs the
// conditional active→completed flip with the payout credit.
type Store interface {
	PlanByID(ctx context.Context, planID int64) (*domain.InvestmentPlan, error)
	CreateInvestmentDebiting(ctx context.Context, inv *domain.Investment) (bool, error)
	InvestmentByID(ctx context.Context, investmentID string) (*domain.Investment, error)
	SettleInvestment(ctx context.Context, investmentID string, payout int64) (bool, error)
	MaturedInvestments(ctx context.Context, now time.Time) ([]domain.Investment, error)
	ListInvestments(ctx context.Context, userID string, status domain.InvestmentStatus) ([]domain.Investment, error)
}

// Service implements the investment lifecycle operations
type Service struct {
	store  Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates an investment service
func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With().Str("component", "investment").Logger(),
		now:    time.Now,
	}
}

// Subscribe debits the principal and opens an active investment running
// from now until now plus the plan duration. The debit and the record
// creation are one store transaction; a failed creation never leaves a
// dangling debit.
func (s *Service) Subscribe(ctx context.Context, userID string, planID int64, amount int64) (*domain.Investment, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	plan, err := s.store.PlanByID(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up plan: %w", err)
	}
	if plan == nil {
		return nil, domain.ErrPlanNotFound
	}
	if amount < plan.MinAmount {
		return nil, domain.NewError(domain.CodeAmountBelowMinimum,
			fmt.Sprintf("minimum amount for %s is %d", plan.Name, plan.MinAmount))
	}

	now := s.now().UTC()
	inv := &domain.Investment{
		ID:         uuid.NewString(),
		UserID:     userID,
		PlanID:     plan.ID,
		Amount:     amount,
		Status:     domain.InvestmentActive,
		StartDate:  now,
		EndDate:    now.AddDate(0, 0, plan.DurationDays),
		PlanName:   plan.Name,
		ROIPercent: plan.ROIPercent,
	}

	ok, err := s.store.CreateInvestmentDebiting(ctx, inv)
	if err != nil {
		return nil, fmt.Errorf("failed to create investment: %w", err)
	}
	if !ok {
		return nil, domain.ErrInsufficientFunds
	}

	s.logger.Info().
		Str("investment_id", inv.ID).
		Str("user_id", userID).
		Str("plan", plan.Name).
		Int64("amount", amount).
		Time("end_date", inv.EndDate).
		Msg("investment opened")

	return inv, nil
}

// Settle pays out a matured investment: principal plus the plan's flat ROI,
// truncated to minor units. Safe to call more than once; only the call that
// wins the active→completed transition credits the wallet, every later
// call returns domain.ErrAlreadyProcessed.
func (s *Service) Settle(ctx context.Context, investmentID string) (int64, error) {
	inv, err := s.store.InvestmentByID(ctx, investmentID)
	if err != nil {
		return 0, fmt.Errorf("failed to look up investment: %w", err)
	}
	if inv == nil {
		return 0, domain.ErrInvestmentNotFound
	}
	if inv.Status != domain.InvestmentActive {
		return 0, domain.ErrAlreadyProcessed
	}

	payout := inv.Payout()
	settled, err := s.store.SettleInvestment(ctx, investmentID, payout)
	if err != nil {
		return 0, fmt.Errorf("failed to settle investment: %w", err)
	}
	if !settled {
		// Another settlement won the conditional transition between our
		// read and the update.
		return 0, domain.ErrAlreadyProcessed
	}

	s.logger.Info().
		Str("investment_id", inv.ID).
		Str("user_id", inv.UserID).
		Int64("principal", inv.Amount).
		Int64("payout", payout).
		Msg("investment settled")

	return payout, nil
}

// ListActive returns the user's active investments, newest first
func (s *Service) ListActive(ctx context.Context, userID string) ([]domain.Investment, error) {
	return s.store.ListInvestments(ctx, userID, domain.InvestmentActive)
}

// ListHistory returns all of the user's investments, newest first
func (s *Service) ListHistory(ctx context.Context, userID string) ([]domain.Investment, error) {
	return s.store.ListInvestments(ctx, userID, "")
}
