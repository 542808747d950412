// Package storetest provides an in-memory store implementing the service
// Store interfaces with the same conditional-update semantics as the
// database layer. It is safe for concurrent use, so race-style tests can
// hammer it the way concurrent requests hammer Postgres.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"profitbliss-backend/internal/domain"
)

// Store is the in-memory fake
type Store struct {
	mu           sync.Mutex
	users        map[string]*domain.User
	wallets      map[string]int64
	plans        map[int64]*domain.InvestmentPlan
	investments  map[string]*domain.Investment
	transactions map[string]*domain.Transaction
	sessions     map[int64]*domain.Session
	nextPlanID   int64
	nextSession  int64
}

// New creates an empty store
func New() *Store {
	return &Store{
		users:        make(map[string]*domain.User),
		wallets:      make(map[string]int64),
		plans:        make(map[int64]*domain.InvestmentPlan),
		investments:  make(map[string]*domain.Investment),
		transactions: make(map[string]*domain.Transaction),
		sessions:     make(map[int64]*domain.Session),
	}
}

// SeedWallet sets a user's balance directly, creating the wallet if needed
func (s *Store) SeedWallet(userID string, balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[userID] = balance
}

// SeedPlan adds a plan and returns it with its assigned ID
func (s *Store) SeedPlan(plan domain.InvestmentPlan) domain.InvestmentPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPlanID++
	plan.ID = s.nextPlanID
	s.plans[plan.ID] = &plan
	return plan
}

// UpdatePlan replaces a seeded plan's terms in place.
func (s *Store) UpdatePlan(plan domain.InvestmentPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[plan.ID] = &plan
}

// --- wallet.Store ---

func (s *Store) WalletBalance(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wallets[userID], nil
}

func (s *Store) CreditWallet(ctx context.Context, userID string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[userID] += amount
	return nil
}

func (s *Store) DebitWallet(ctx context.Context, userID string, amount int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debitLocked(userID, amount), nil
}

func (s *Store) debitLocked(userID string, amount int64) bool {
	if s.wallets[userID] < amount {
		return false
	}
	s.wallets[userID] -= amount
	return true
}

// --- investment.Store ---

func (s *Store) PlanByID(ctx context.Context, planID int64) (*domain.InvestmentPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	plan, ok := s.plans[planID]
	if !ok {
		return nil, nil
	}
	cp := *plan
	return &cp, nil
}

func (s *Store) CreateInvestmentDebiting(ctx context.Context, inv *domain.Investment) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.debitLocked(inv.UserID, inv.Amount) {
		return false, nil
	}
	cp := *inv
	s.investments[inv.ID] = &cp
	return true, nil
}

func (s *Store) InvestmentByID(ctx context.Context, investmentID string) (*domain.Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.investments[investmentID]
	if !ok {
		return nil, nil
	}
	cp := s.joinPlanLocked(inv)
	return &cp, nil
}

// joinPlanLocked mirrors the SQL reads, which join the plan's current name
// and ROI into every investment row.
func (s *Store) joinPlanLocked(inv *domain.Investment) domain.Investment {
	cp := *inv
	if plan, ok := s.plans[inv.PlanID]; ok {
		cp.PlanName = plan.Name
		cp.ROIPercent = plan.ROIPercent
	}
	return cp
}

func (s *Store) SettleInvestment(ctx context.Context, investmentID string, payout int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.investments[investmentID]
	if !ok || inv.Status != domain.InvestmentActive {
		return false, nil
	}
	now := time.Now().UTC()
	inv.Status = domain.InvestmentCompleted
	inv.SettledAt = &now
	s.wallets[inv.UserID] += payout
	return true, nil
}

func (s *Store) MaturedInvestments(ctx context.Context, now time.Time) ([]domain.Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Investment
	for _, inv := range s.investments {
		if inv.Matured(now) {
			out = append(out, s.joinPlanLocked(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.Before(out[j].EndDate) })
	return out, nil
}

func (s *Store) ListInvestments(ctx context.Context, userID string, status domain.InvestmentStatus) ([]domain.Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Investment
	for _, inv := range s.investments {
		if inv.UserID != userID {
			continue
		}
		if status != "" && inv.Status != status {
			continue
		}
		out = append(out, s.joinPlanLocked(inv))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

// --- transaction.Store ---

func (s *Store) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.CreatedAt = time.Now().UTC()
	cp := *tx
	s.transactions[tx.ID] = &cp
	return nil
}

func (s *Store) CreateWithdrawalDebiting(ctx context.Context, tx *domain.Transaction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.debitLocked(tx.UserID, tx.Amount) {
		return false, nil
	}
	tx.CreatedAt = time.Now().UTC()
	cp := *tx
	s.transactions[tx.ID] = &cp
	return true, nil
}

func (s *Store) TransactionByID(ctx context.Context, txID string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[txID]
	if !ok {
		return nil, nil
	}
	cp := *tx
	return &cp, nil
}

func (s *Store) FinishTransaction(ctx context.Context, txID string, to domain.TransactionStatus, credit int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[txID]
	if !ok || tx.Status != domain.TransactionPending {
		return false, nil
	}
	now := time.Now().UTC()
	tx.Status = to
	tx.ProcessedAt = &now
	if credit > 0 {
		s.wallets[tx.UserID] += credit
	}
	return true, nil
}

func (s *Store) StalePendingTransactions(ctx context.Context, cutoff time.Time) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Transaction
	for _, tx := range s.transactions {
		if tx.Status == domain.TransactionPending && tx.CreatedAt.Before(cutoff) {
			out = append(out, *tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Transaction
	for _, tx := range s.transactions {
		if tx.UserID == userID {
			out = append(out, *tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListTransactionsByKind(ctx context.Context, kind domain.TransactionKind) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Transaction
	for _, tx := range s.transactions {
		if tx.Kind == kind {
			out = append(out, *tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// --- auth.Store ---

func (s *Store) CreateUserWithWallet(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return domain.ErrEmailExists
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	s.users[user.ID] = &cp
	s.wallets[user.ID] = 0
	return nil
}

func (s *Store) UserByID(ctx context.Context, userID string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	cp := *user
	return &cp, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	user, err := s.UserByEmail(ctx, email)
	return user != nil, err
}

func (s *Store) SetVerificationCode(ctx context.Context, userID, code string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[userID]; ok {
		user.VerificationCode = &code
		user.VerificationExpiresAt = &expiresAt
	}
	return nil
}

func (s *Store) ConsumeVerificationCode(ctx context.Context, userID, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok || user.VerificationCode == nil || *user.VerificationCode != code {
		return false, nil
	}
	if user.VerificationExpiresAt == nil || !user.VerificationExpiresAt.After(time.Now()) {
		return false, nil
	}
	user.EmailVerified = true
	user.VerificationCode = nil
	user.VerificationExpiresAt = nil
	return true, nil
}

func (s *Store) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[userID]; ok {
		user.PasswordHash = passwordHash
	}
	return nil
}

func (s *Store) UpdateRole(ctx context.Context, userID string, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[userID]; ok {
		user.Role = role
	}
	return nil
}

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSession++
	session.ID = s.nextSession
	session.CreatedAt = time.Now().UTC()
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

func (s *Store) SessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if session.TokenHash == tokenHash {
			cp := *session
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) RevokeSession(ctx context.Context, sessionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[sessionID]; ok && session.RevokedAt == nil {
		now := time.Now().UTC()
		session.RevokedAt = &now
	}
	return nil
}

func (s *Store) DeleteExpiredSessions(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, session := range s.sessions {
		if session.ExpiresAt.Before(now) {
			delete(s.sessions, id)
		}
	}
	return nil
}
