// Package transaction manages the deposit/withdrawal workflow: pending
// requests, admin approval and rejection, and stale-request expiry.
// Withdrawals escrow funds at request time; deposits only touch the wallet
// on approval.
package transaction

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"profitbliss-backend/internal/domain"
	"profitbliss-backend/internal/events"
)

// Store is the slice of the record store the workflow needs.
// CreateWithdrawalDebiting pairs the escrow debit with the record insert;
// FinishTransaction pairs the conditional pending→terminal flip with the
// wallet credit that accompanies it.
type Store interface {
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error
	CreateWithdrawalDebiting(ctx context.Context, tx *domain.Transaction) (bool, error)
	TransactionByID(ctx context.Context, txID string) (*domain.Transaction, error)
	FinishTransaction(ctx context.Context, txID string, to domain.TransactionStatus, credit int64) (bool, error)
	StalePendingTransactions(ctx context.Context, cutoff time.Time) ([]domain.Transaction, error)
	ListTransactions(ctx context.Context, userID string) ([]domain.Transaction, error)
	ListTransactionsByKind(ctx context.Context, kind domain.TransactionKind) ([]domain.Transaction, error)
}

// Service implements the transaction workflow operations
type Service struct {
	store  Store
	bus    *events.Bus
	logger zerolog.Logger
}

// NewService creates a transaction service
func NewService(store Store, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		bus:    bus,
		logger: logger.With().Str("component", "transaction").Logger(),
	}
}

// RequestDeposit records a pending deposit. The wallet is only credited
// when an admin approves it.
func (s *Service) RequestDeposit(ctx context.Context, userID string, amount int64, method string) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if method == "" {
		return nil, domain.NewError(domain.CodeInvalidInput, "payment method is required")
	}

	tx := &domain.Transaction{
		ID:     uuid.NewString(),
		UserID: userID,
		Kind:   domain.TransactionDeposit,
		Amount: amount,
		Method: method,
		Status: domain.TransactionPending,
	}
	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to record deposit request: %w", err)
	}

	s.logger.Info().Str("transaction_id", tx.ID).Str("user_id", userID).Int64("amount", amount).Msg("deposit requested")
	if s.bus != nil {
		s.bus.PublishTransaction(events.EventDepositRequested, tx.ID, userID, string(tx.Kind), amount)
	}
	return tx, nil
}

// RequestWithdraw escrows the amount out of the wallet and records a
// pending withdrawal, both in one store transaction. Fails with
// domain.ErrInsufficientFunds when the balance cannot cover the amount.
func (s *Service) RequestWithdraw(ctx context.Context, userID string, amount int64, method, address string) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if method == "" || address == "" {
		return nil, domain.NewError(domain.CodeInvalidInput, "payment method and destination address are required")
	}

	tx := &domain.Transaction{
		ID:      uuid.NewString(),
		UserID:  userID,
		Kind:    domain.TransactionWithdraw,
		Amount:  amount,
		Method:  method,
		Address: address,
		Status:  domain.TransactionPending,
	}
	ok, err := s.store.CreateWithdrawalDebiting(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to record withdrawal request: %w", err)
	}
	if !ok {
		return nil, domain.ErrInsufficientFunds
	}

	s.logger.Info().Str("transaction_id", tx.ID).Str("user_id", userID).Int64("amount", amount).Msg("withdrawal requested, funds escrowed")
	if s.bus != nil {
		s.bus.PublishTransaction(events.EventWithdrawRequested, tx.ID, userID, string(tx.Kind), amount)
	}
	return tx, nil
}

// Approve moves a pending transaction to approved. Approving a deposit
// credits the wallet; approving a withdrawal has no wallet effect since the
// funds were escrowed at request time.
func (s *Service) Approve(ctx context.Context, txID string) (*domain.Transaction, error) {
	return s.finish(ctx, txID, domain.TransactionApproved)
}

// Reject moves a pending transaction to rejected. Rejecting a withdrawal
// refunds the escrowed amount; rejecting a deposit has no wallet effect.
func (s *Service) Reject(ctx context.Context, txID string) (*domain.Transaction, error) {
	return s.finish(ctx, txID, domain.TransactionRejected)
}

// Expire moves a pending transaction to expired. Expired withdrawals get
// their escrow back, same as a rejection.
func (s *Service) Expire(ctx context.Context, txID string) (*domain.Transaction, error) {
	return s.finish(ctx, txID, domain.TransactionExpired)
}

func (s *Service) finish(ctx context.Context, txID string, to domain.TransactionStatus) (*domain.Transaction, error) {
	tx, err := s.store.TransactionByID(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up transaction: %w", err)
	}
	if tx == nil {
		return nil, domain.ErrTransactionNotFound
	}
	if tx.Status != domain.TransactionPending {
		return nil, domain.ErrAlreadyProcessed
	}

	ok, err := s.store.FinishTransaction(ctx, txID, to, creditFor(tx, to))
	if err != nil {
		return nil, fmt.Errorf("failed to finish transaction: %w", err)
	}
	if !ok {
		// Lost the conditional update to a concurrent approval or expiry.
		return nil, domain.ErrAlreadyProcessed
	}

	tx.Status = to

	event := events.EventTransactionApproved
	switch to {
	case domain.TransactionRejected:
		event = events.EventTransactionRejected
	case domain.TransactionExpired:
		event = events.EventTransactionExpired
	}
	s.logger.Info().Str("transaction_id", tx.ID).Str("kind", string(tx.Kind)).Str("status", string(to)).Msg("transaction processed")
	if s.bus != nil {
		s.bus.PublishTransaction(event, tx.ID, tx.UserID, string(tx.Kind), tx.Amount)
	}
	return tx, nil
}

// creditFor returns the wallet credit a pending transaction carries into
// the given terminal status: deposits credit on approval, withdrawals
// refund their escrow on rejection or expiry.
func creditFor(tx *domain.Transaction, to domain.TransactionStatus) int64 {
	switch {
	case tx.Kind == domain.TransactionDeposit && to == domain.TransactionApproved:
		return tx.Amount
	case tx.Kind == domain.TransactionWithdraw && (to == domain.TransactionRejected || to == domain.TransactionExpired):
		return tx.Amount
	default:
		return 0
	}
}

// List returns a user's transactions, newest first
func (s *Service) List(ctx context.Context, userID string) ([]domain.Transaction, error) {
	return s.store.ListTransactions(ctx, userID)
}

// ListByKind returns all transactions of one kind, newest first
func (s *Service) ListByKind(ctx context.Context, kind domain.TransactionKind) ([]domain.Transaction, error) {
	return s.store.ListTransactionsByKind(ctx, kind)
}

// ListAll returns deposits and withdrawals platform-wide in one list,
// newest first across both kinds.
func (s *Service) ListAll(ctx context.Context) ([]domain.Transaction, error) {
	var all []domain.Transaction
	for _, kind := range []domain.TransactionKind{domain.TransactionDeposit, domain.TransactionWithdraw} {
		txs, err := s.store.ListTransactionsByKind(ctx, kind)
		if err != nil {
			return nil, err
		}
		all = append(all, txs...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return all, nil
}
