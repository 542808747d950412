package transaction

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
	return NewService(store, nil, zerolog.Nop())
}

func TestRequestDepositLeavesBalance(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store)
	ctx := context.Background()
	store.SeedWallet("u1", 10000)

	tx, err := svc.RequestDeposit(ctx, "u1", 5000, "bitcoin")
	if err != nil {
		t.Fatalf("RequestDeposit: %v", err)
	}
	if tx.Status != domain.TransactionPending {
		t.Errorf("status = %s, want pending", tx.Status)
	}

	balance, _ := store.WalletBalance(ctx, "u1")
	if balance != 10000 {
		t.Errorf("balance = %d, want 10000 untouched while pending", balance)
	}
}

func TestApproveDepositCredits(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store)
	ctx := context.Background()
	store.SeedWallet("u1", 0)

	tx, err := svc.RequestDeposit(ctx, "u1", 5000, "bitcoin")
	if err != nil {
		t.Fatalf("RequestDeposit: %v", err)
	}

	approved, err := svc.Approve(ctx, tx.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != domain.TransactionApproved {
		t.Errorf("status = %s, want approved", approved.Status)
	}

	stored, _ := store.TransactionByID(ctx, tx.ID)
	if stored.ProcessedAt == nil {
		t.Error("ProcessedAt not set")
	}

	balance, _ := store.WalletBalance(ctx, "u1")
	if balance != 5000 {
		t.Errorf("balance = %d, want 5000", balance)
	}
}

func TestRejectDepositNoWalletEffect(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store)
	ctx := context.Background()
	store.SeedWallet("u1", 0)

	tx, _ := svc.RequestDeposit(ctx, "u1", 5000, "bitcoin")

	rejected, err := svc.Reject(ctx, tx.ID)
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.Status != domain.TransactionRejected {
		t.Errorf("status = %s, want rejected", rejected.Status)
	}

	balance, _ := store.WalletBalance(ctx, "u1")
	if balance != 0 {
		t.Errorf("balance = %d, want 0", balance)
	}
}

func TestRequestWithdrawEscrows(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store)
	ctx := context.Background()
	store.SeedWallet("u1", 10000)

	tx, err := svc.RequestWithdraw(ctx, "u1", 4000, "bitcoin", "bc1qaddr")
	if err != nil {
		t.Fatalf("RequestWithdraw: %v", err)
	}
	if tx.Status != domain.TransactionPending {
		t.Errorf("status = %s, want pending", tx.Status)
	}

	// Funds leave the wallet at request time.
	balance, _ := store.WalletBalance(ctx, "u1")
	if balance != 6000 {
		t.Errorf("balance = %d, want 6000", balance)
	}

	// Approval settles the escrow without touching the wallet again.
	if _, err := svc.Approve(ctx, tx.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	balance, _ = store.WalletBalance(ctx, "u1")
	if balance != 6000 {
		t.Errorf("balance after approve = %d, want 6000", balance)
	}
}

func TestRejectWithdrawRefunds(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store)
	ctx := context.Background()
	store.SeedWallet("u1", 10000)

	tx, err := svc.RequestWithdraw(ctx, "u1", 4000, "bitcoin", "bc1qaddr")
	if err != nil {
		t.Fatalf("RequestWithdraw: %v", err)
	}

	if _, err := svc.Reject(ctx, tx.ID); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	balance, _ := store.WalletBalance(ctx, "u1")
	if balance != 10000 {
		t.Errorf("balance = %d, want full refund to 10000", balance)
	}
}

func TestRequestWithdrawInsufficientFunds(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store)
	ctx := context.Background()
	store.SeedWallet("u1", 3000)

	_, err := svc.RequestWithdraw(ctx, "u1", 4000, "bitcoin", "bc1qaddr")
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}

	balance, _ := store.WalletBalance(ctx, "u1")
	if balance != 3000 {
		t.Errorf("balance = %d, want 3000 untouched", balance)
	}
}

func TestRequestValidation(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store)
	ctx := context.Background()
	store.SeedWallet("u1", 10000)

	if _, err := svc.RequestDeposit(ctx, "u1", 0, "bitcoin"); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("zero deposit err = %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.RequestDeposit(ctx, "u1", 1000, ""); err == nil {
		t.Error("deposit without method should fail")
	}
	if _, err := svc.RequestWithdraw(ctx, "u1", -5, "bitcoin", "bc1qaddr"); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("negative withdraw err = %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.RequestWithdraw(ctx, "u1", 1000, "bitcoin", ""); err == nil {
		t.Error("withdraw without address should fail")
	}
}

func TestDoubleApprove(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store)
	ctx := context.Background()
	store.SeedWallet("u1", 0)

	tx, _ := svc.RequestDeposit(ctx, "u1", 5000, "bitcoin")

	if _, err := svc.Approve(ctx, tx.ID); err != nil {
		t.Fatalf("first Approve: %v", err)
	}
	if _, err := svc.Approve(ctx, tx.ID); !errors.Is(err, domain.ErrAlreadyProcessed) {
		t.Fatalf("second Approve err = %v, want ErrAlreadyProcessed", err)
	}
	if _, err := svc.Reject(ctx, tx.ID); !errors.Is(err, domain.ErrAlreadyProcessed) {
		t.Fatalf("Reject after Approve err = %v, want ErrAlreadyProcessed", err)
	}

	balance, _ := store.WalletBalance(ctx, "u1")
	if balance != 5000 {
		t.Errorf("balance = %d, want 5000 credited exactly once", balance)
	}
}

func TestApproveUnknownTransaction(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store)

	_, err := svc.Approve(context.Background(), "nope")
	if !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Fatalf("err = %v, want ErrTransactionNotFound", err)
	}
}

func TestExpireRefundsWithdrawal(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store)
	ctx := context.Background()
	store.SeedWallet("u1", 10000)

	tx, _ := svc.RequestWithdraw(ctx, "u1", 4000, "bitcoin", "bc1qaddr")

	expired, err := svc.Expire(ctx, tx.ID)
	if err != nil {
		t.Fatalf("Expire: %v", err)
	}
	if expired.Status != domain.TransactionExpired {
		t.Errorf("status = %s, want expired", expired.Status)
	}

	balance, _ := store.WalletBalance(ctx, "u1")
	if balance != 10000 {
		t.Errorf("balance = %d, want refund to 10000", balance)
	}
}

func TestConcurrentFinishProcessesOnce(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store)
	ctx := context.Background()
	store.SeedWallet("u1", 0)

	tx, _ := svc.RequestDeposit(ctx, "u1", 5000, "bitcoin")

	const workers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if _, err := svc.Approve(ctx, tx.ID); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Errorf("succeeded = %d, want exactly 1", succeeded)
	}
	balance, _ := store.WalletBalance(ctx, "u1")
	if balance != 5000 {
		t.Errorf("balance = %d, want 5000", balance)
	}
}

func TestListAllInterleavesKindsNewestFirst(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store)
	ctx := context.Background()
	store.SeedWallet("u1", 100000)

	// Alternate kinds with a small gap so creation order is unambiguous.
	var wantIDs []string
	for i := 0; i < 4; i++ {
		var tx *domain.Transaction
		var err error
		if i%2 == 0 {
			tx, err = svc.RequestDeposit(ctx, "u1", 1000, "bitcoin")
		} else {
			tx, err = svc.RequestWithdraw(ctx, "u1", 1000, "bitcoin", "bc1qaddr")
		}
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		wantIDs = append(wantIDs, tx.ID)
		time.Sleep(time.Millisecond)
	}

	all, err := svc.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != len(wantIDs) {
		t.Fatalf("len = %d, want %d", len(all), len(wantIDs))
	}
	for i, tx := range all {
		// Newest first means the reverse of creation order.
		if want := wantIDs[len(wantIDs)-1-i]; tx.ID != want {
			t.Errorf("position %d = %s (%s), want %s", i, tx.ID, tx.Kind, want)
		}
	}
}

func TestSweepExpiresStalePending(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store)
	ctx := context.Background()
	store.SeedWallet("u1", 10000)

	deposit, _ := svc.RequestDeposit(ctx, "u1", 5000, "bitcoin")
	withdraw, _ := svc.RequestWithdraw(ctx, "u1", 4000, "bitcoin", "bc1qaddr")

	// A negative TTL pushes the cutoff into the future so every pending
	// transaction counts as stale.
	sweeper := NewSweeper(svc, store, nil, &SweeperConfig{
		Interval:     time.Hour,
		PendingTTL:   -time.Hour,
		SweepTimeout: time.Minute,
	}, zerolog.Nop())
	sweeper.Sweep(ctx)

	got, _ := store.TransactionByID(ctx, deposit.ID)
	if got.Status != domain.TransactionExpired {
		t.Errorf("deposit status = %s, want expired", got.Status)
	}
	got, _ = store.TransactionByID(ctx, withdraw.ID)
	if got.Status != domain.TransactionExpired {
		t.Errorf("withdraw status = %s, want expired", got.Status)
	}

	// The escrowed withdrawal comes back, the deposit never credits.
	balance, _ := store.WalletBalance(ctx, "u1")
	if balance != 10000 {
		t.Errorf("balance = %d, want 10000", balance)
	}
}

func TestSweepSkipsFreshPending(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store)
	ctx := context.Background()
	store.SeedWallet("u1", 10000)

	tx, _ := svc.RequestDeposit(ctx, "u1", 5000, "bitcoin")

	sweeper := NewSweeper(svc, store, nil, &SweeperConfig{
		Interval:     time.Hour,
		PendingTTL:   time.Hour,
		SweepTimeout: time.Minute,
	}, zerolog.Nop())
	sweeper.Sweep(ctx)

	got, _ := store.TransactionByID(ctx, tx.ID)
	if got.Status != domain.TransactionPending {
		t.Errorf("status = %s, want still pending", got.Status)
	}
}

func TestSweeperStartStop(t *testing.T) {
	store := storetest.New()
	svc := newTestService(store)

	sweeper := NewSweeper(svc, store, nil, nil, zerolog.Nop())

	if err := sweeper.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !sweeper.IsRunning() {
		t.Error("expected sweeper to be running")
	}
	if err := sweeper.Start(); err == nil {
		t.Error("second Start should fail")
	}

	if err := sweeper.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if sweeper.IsRunning() {
		t.Error("expected sweeper to be stopped")
	}
}
