package investment

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"profitbliss-backend/internal/domain"
	"profitbliss-backend/internal/events"
	"profitbliss-backend/internal/storetest"
)

func TestSweepSettlesMaturedBatch(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store)
	ctx := context.Background()
	plan := seedPlan(store)
	store.SeedWallet("u1", 30000)

	past := time.Now().UTC().Add(-30 * 24 * time.Hour)
	svc.now = func() time.Time { return past }

	var ids []string
	for i := 0; i < 3; i++ {
		inv, err := svc.Subscribe(ctx, "u1", plan.ID, 10000)
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
		ids = append(ids, inv.ID)
	}

	scheduler := NewScheduler(svc, store, events.NewBus(), nil, nil, zerolog.Nop())
	scheduler.Sweep(ctx)

	for _, id := range ids {
		inv, _ := store.InvestmentByID(ctx, id)
		if inv.Status != domain.InvestmentCompleted {
			t.Errorf("investment %s status = %s, want completed", id, inv.Status)
		}
	}

	// 3 payouts of 13000 each.
	balance, _ := store.WalletBalance(ctx, "u1")
	if balance != 39000 {
		t.Errorf("balance = %d, want 39000", balance)
	}
}

func TestSweepLeavesUnmaturedAlone(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store)
	ctx := context.Background()
	plan := seedPlan(store)
	store.SeedWallet("u1", 10000)

	inv, err := svc.Subscribe(ctx, "u1", plan.ID, 10000)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	scheduler := NewScheduler(svc, store, events.NewBus(), nil, nil, zerolog.Nop())
	scheduler.Sweep(ctx)

	got, _ := store.InvestmentByID(ctx, inv.ID)
	if got.Status != domain.InvestmentActive {
		t.Errorf("status = %s, want active", got.Status)
	}
	balance, _ := store.WalletBalance(ctx, "u1")
	if balance != 0 {
		t.Errorf("balance = %d, want 0", balance)
	}
}

func TestSweepIsRepeatSafe(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store)
	ctx := context.Background()
	plan := seedPlan(store)
	store.SeedWallet("u1", 10000)

	past := time.Now().UTC().Add(-30 * 24 * time.Hour)
	svc.now = func() time.Time { return past }

	if _, err := svc.Subscribe(ctx, "u1", plan.ID, 10000); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	scheduler := NewScheduler(svc, store, events.NewBus(), nil, nil, zerolog.Nop())
	scheduler.Sweep(ctx)
	scheduler.Sweep(ctx)

	balance, _ := store.WalletBalance(ctx, "u1")
	if balance != 13000 {
		t.Errorf("balance = %d, want 13000 credited exactly once", balance)
	}
}

func TestSchedulerStartStop(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store)

	scheduler := NewScheduler(svc, store, events.NewBus(), nil, &SchedulerConfig{
		Interval:      time.Hour,
		MaxConcurrent: 2,
		SweepTimeout:  time.Minute,
	}, zerolog.Nop())

	if err := scheduler.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !scheduler.IsRunning() {
		t.Error("expected scheduler to be running")
	}
	if err := scheduler.Start(); err == nil {
		t.Error("second Start should fail")
	}

	if err := scheduler.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if scheduler.IsRunning() {
		t.Error("expected scheduler to be stopped")
	}
	if err := scheduler.Stop(); err == nil {
		t.Error("second Stop should fail")
	}
}
