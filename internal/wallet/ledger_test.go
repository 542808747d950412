package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"profitbliss-backend/internal/domain"
	"profitbliss-backend/internal/storetest"
)

func newTestLedger() (*Ledger, *storetest.Store) {
	store := storetest.New()
	return NewLedger(store, zerolog.Nop()), store
}

func TestCreditAndBalance(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	if err := ledger.Credit(ctx, "u1", 5000); err != nil {
		t.Fatalf("Credit: %v", err)
	}

	balance, err := ledger.BalanceOf(ctx, "u1")
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if balance != 5000 {
		t.Errorf("balance = %d, want 5000", balance)
	}
}

func TestDebitInsufficientFunds(t *testing.T) {
	ledger, store := newTestLedger()
	ctx := context.Background()
	store.SeedWallet("u1", 100)

	err := ledger.Debit(ctx, "u1", 200)
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("Debit error = %v, want ErrInsufficientFunds", err)
	}

	balance, _ := ledger.BalanceOf(ctx, "u1")
	if balance != 100 {
		t.Errorf("balance after failed debit = %d, want 100", balance)
	}
}

func TestNonPositiveAmountsRejected(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	for _, amount := range []int64{0, -1} {
		if err := ledger.Credit(ctx, "u1", amount); !errors.Is(err, domain.ErrInvalidAmount) {
			t.Errorf("Credit(%d) error = %v, want ErrInvalidAmount", amount, err)
		}
		if err := ledger.Debit(ctx, "u1", amount); !errors.Is(err, domain.ErrInvalidAmount) {
			t.Errorf("Debit(%d) error = %v, want ErrInvalidAmount", amount, err)
		}
	}
}

// Concurrent debits against a balance that covers only some of them must
// never drive the balance negative, and exactly the covered number may
// succeed.
func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	ledger, store := newTestLedger()
	ctx := context.Background()
	store.SeedWallet("u1", 500)

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ledger.Debit(ctx, "u1", 100); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 5 {
		t.Errorf("succeeded = %d, want 5", succeeded)
	}
	balance, _ := ledger.BalanceOf(ctx, "u1")
	if balance != 0 {
		t.Errorf("final balance = %d, want 0", balance)
	}
}
