// Package domain holds the shared data model for the investment platform:
// users, wallets, investment plans, investments and wallet transactions,
// plus the error taxonomy the services report against.
package domain

import "time"

// Role identifies what a user is allowed to do. It is set at signup,
// carried in validated token claims and never trusted from request input.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// InvestmentStatus is the lifecycle state of an investment.
// There is no cancellation state; active investments only ever complete.
type InvestmentStatus string

const (
	InvestmentActive    InvestmentStatus = "active"
	InvestmentCompleted InvestmentStatus = "completed"
)

// TransactionKind distinguishes deposits from withdrawals.
type TransactionKind string

const (
	TransactionDeposit  TransactionKind = "deposit"
	TransactionWithdraw TransactionKind = "withdraw"
)

// TransactionStatus is the workflow state of a deposit or withdrawal.
type TransactionStatus string

const (
	TransactionPending  TransactionStatus = "pending"
	TransactionApproved TransactionStatus = "approved"
	TransactionRejected TransactionStatus = "rejected"
	TransactionExpired  TransactionStatus = "expired"
)

// User is an account holder. Every user owns exactly one wallet, created
// together with the user at signup.
type User struct {
	ID                    string
	Email                 string
	PasswordHash          string
	Name                  string
	Role                  Role
	EmailVerified         bool
	VerificationCode      *string
	VerificationExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Wallet holds a single non-negative balance in minor currency units.
// Balances are only ever mutated relatively (increment/decrement) at the
// store layer; the balance here is a point-in-time read.
type Wallet struct {
	UserID    string
	Balance   int64
	UpdatedAt time.Time
}

// InvestmentPlan is the template an investment subscribes to. ROIPercent is
// a flat total-return percentage over the plan's duration, not an APR.
type InvestmentPlan struct {
	ID           int64
	Name         string
	Description  string
	MinAmount    int64
	ROIPercent   int64
	DurationDays int
	CreatedAt    time.Time
}

// Investment is a user's subscription to a plan. EndDate is fixed at
// subscription time as StartDate plus the plan duration.
type Investment struct {
	ID        string
	UserID    string
	PlanID    int64
	Amount    int64
	Status    InvestmentStatus
	StartDate time.Time
	EndDate   time.Time
	SettledAt *time.Time

	// Populated on reads that join the plan.
	PlanName   string
	ROIPercent int64
}

// Payout is the amount credited at maturity: principal plus the flat ROI,
// truncated to minor units.
func (inv Investment) Payout() int64 {
	return inv.Amount + inv.Amount*inv.ROIPercent/100
}

// Matured reports whether the investment is eligible for settlement.
func (inv Investment) Matured(now time.Time) bool {
	return inv.Status == InvestmentActive && !inv.EndDate.After(now)
}

// Transaction is a deposit or withdrawal request. For withdrawals the
// pending state already implies the amount has been debited (escrowed).
type Transaction struct {
	ID          string
	UserID      string
	Kind        TransactionKind
	Amount      int64
	Method      string
	Address     string
	Status      TransactionStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// Session is a refresh-token session. Tokens are stored hashed.
type Session struct {
	ID        int64
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
