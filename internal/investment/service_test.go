package investment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"profitbliss-backend/internal/domain"
	"profitbliss-backend/internal/storetest"
)

func newTestService(store *storetest.Store) *Service {
	return NewService(store, zerolog.Nop())
}

func seedPlan(store *storetest.Store) domain.InvestmentPlan {
	return store.SeedPlan(domain.InvestmentPlan{
		Name:         "Starter Plan",
		MinAmount:    5000,
		ROIPercent:   30,
		DurationDays: 7,
	})
}

func TestSubscribeDebitsPrincipal(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store)
	ctx := context.Background()
	plan := seedPlan(store)
	store.SeedWallet("u1", 50000)

	inv, err := svc.Subscribe(ctx, "u1", plan.ID, 10000)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if inv.Status != domain.InvestmentActive {
		t.Errorf("status = %s, want active", inv.Status)
	}
	if got := inv.EndDate.Sub(inv.StartDate); got != 7*24*time.Hour {
		t.Errorf("term = %v, want 168h", got)
	}

	balance, _ := store.WalletBalance(ctx, "u1")
	if balance != 40000 {
		t.Errorf("balance = %d, want 40000", balance)
	}
}

func TestSubscribeBelowMinimumLeavesBalance(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store)
	ctx := context.Background()
	plan := seedPlan(store)
	store.SeedWallet("u1", 50000)

	_, err := svc.Subscribe(ctx, "u1", plan.ID, 4999)
	if !errors.Is(err, domain.ErrAmountBelowMinimum) {
		t.Fatalf("error = %v, want ErrAmountBelowMinimum", err)
	}

	balance, _ := store.WalletBalance(ctx, "u1")
	if balance != 50000 {
		t.Errorf("balance = %d, want 50000 unchanged", balance)
	}
}

func TestSubscribeInsufficientFunds(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store)
	ctx := context.Background()
	plan := seedPlan(store)
	store.SeedWallet("u1", 9999)

	_, err := svc.Subscribe(ctx, "u1", plan.ID, 10000)
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("error = %v, want ErrInsufficientFunds", err)
	}

	balance, _ := store.WalletBalance(ctx, "u1")
	if balance != 9999 {
		t.Errorf("balance = %d, want 9999 unchanged", balance)
	}
}

func TestSubscribeUnknownPlan(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store)

	_, err := svc.Subscribe(context.Background(), "u1", 42, 10000)
	if !errors.Is(err, domain.ErrPlanNotFound) {
		t.Fatalf("error = %v, want ErrPlanNotFound", err)
	}
}

// Full lifecycle: 500.00 in the wallet, subscribe 100.00 at 30% ROI,
// balance drops to 400.00; after maturity the settlement credits 130.00
// for a final 530.00.
func TestLifecyclePayout(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store)
	ctx := context.Background()
	plan := seedPlan(store)
	store.SeedWallet("u1", 50000)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }

	inv, err := svc.Subscribe(ctx, "u1", plan.ID, 10000)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	balance, _ := store.WalletBalance(ctx, "u1")
	if balance != 40000 {
		t.Fatalf("balance after subscribe = %d, want 40000", balance)
	}

	// Not yet matured.
	if inv.Matured(start.Add(6 * 24 * time.Hour)) {
		t.Error("investment matured early")
	}
	if !inv.Matured(start.Add(7 * 24 * time.Hour)) {
		t.Error("investment not matured at end date")
	}

	payout, err := svc.Settle(ctx, inv.ID)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if payout != 13000 {
		t.Errorf("payout = %d, want 13000", payout)
	}

	balance, _ = store.WalletBalance(ctx, "u1")
	if balance != 53000 {
		t.Errorf("final balance = %d, want 53000", balance)
	}
}

func TestSettleIdempotent(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store)
	ctx := context.Background()
	plan := seedPlan(store)
	store.SeedWallet("u1", 10000)

	inv, err := svc.Subscribe(ctx, "u1", plan.ID, 10000)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if _, err := svc.Settle(ctx, inv.ID); err != nil {
		t.Fatalf("first Settle: %v", err)
	}
	if _, err := svc.Settle(ctx, inv.ID); !errors.Is(err, domain.ErrAlreadyProcessed) {
		t.Fatalf("second Settle error = %v, want ErrAlreadyProcessed", err)
	}

	balance, _ := store.WalletBalance(ctx, "u1")
	if balance != 13000 {
		t.Errorf("balance = %d, want 13000 credited exactly once", balance)
	}
}

func TestSettleUsesCurrentPlanTerms(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store)
	ctx := context.Background()
	plan := seedPlan(store)
	store.SeedWallet("u1", 10000)

	inv, err := svc.Subscribe(ctx, "u1", plan.ID, 10000)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	// The payout is computed from the plan's terms at settlement time,
	// so an admin edit changes what open investments pay out.
	plan.ROIPercent = 50
	store.UpdatePlan(plan)

	payout, err := svc.Settle(ctx, inv.ID)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if payout != 15000 {
		t.Errorf("payout = %d, want 15000 at the updated 50%% ROI", payout)
	}
	balance, _ := store.WalletBalance(ctx, "u1")
	if balance != 15000 {
		t.Errorf("balance = %d, want 15000", balance)
	}
}

func TestSettleUnknownInvestment(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store)

	_, err := svc.Settle(context.Background(), "missing")
	if !errors.Is(err, domain.ErrInvestmentNotFound) {
		t.Fatalf("error = %v, want ErrInvestmentNotFound", err)
	}
}

// Racing settlements of the same investment must credit the payout exactly
// once.
func TestConcurrentSettleCreditsOnce(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store)
	ctx := context.Background()
	plan := seedPlan(store)
	store.SeedWallet("u1", 10000)

	inv, err := svc.Subscribe(ctx, "u1", plan.ID, 10000)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	const workers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	settled := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Settle(ctx, inv.ID); err == nil {
				mu.Lock()
				settled++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if settled != 1 {
		t.Errorf("settled = %d, want exactly 1", settled)
	}
	balance, _ := store.WalletBalance(ctx, "u1")
	if balance != 13000 {
		t.Errorf("balance = %d, want 13000", balance)
	}
}

func TestPayoutTruncatesToMinorUnits(t *testing.T) {
	inv := domain.Investment{Amount: 999, ROIPercent: 10}
	// 999 * 10 / 100 = 99.9 truncated to 99.
	if got := inv.Payout(); got != 1098 {
		t.Errorf("Payout = %d, want 1098", got)
	}
}
