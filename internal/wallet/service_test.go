package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/SalahGhedda/BrokerX/internal/metrics"
	"github.com/SalahGhedda/BrokerX/internal/txn"
	"github.com/SalahGhedda/BrokerX/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWalletService() *Service {
	return NewService(NewMemoryRepository(), NewMockGateway(), txn.NewNoopManager(), metrics.NewRegistry())
}

func TestCreateWalletProvisionsZeroBalance(t *testing.T) {
	s := newWalletService()
	ctx := context.Background()

	require.NoError(t, s.CreateWallet(ctx, "acct-1"))

	w, err := s.FindWallet(ctx, "acct-1")
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, "0.00", w.Balance.StringFixed(2))

	// A fresh wallet is short of funds, not missing.
	require.ErrorIs(t, s.EnsureBalance(ctx, "acct-1", decimal.NewFromInt(1)), types.ErrInsufficientFunds)

	// Provisioning again keeps the existing wallet.
	require.NoError(t, s.CreateWallet(ctx, "acct-1"))
	_, err = s.Deposit(ctx, "acct-1", "key-1", decimal.NewFromInt(75))
	require.NoError(t, err)
	require.NoError(t, s.CreateWallet(ctx, "acct-1"))

	w, err = s.FindWallet(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "75.00", w.Balance.StringFixed(2))

	var validationErr *types.ValidationError
	require.ErrorAs(t, s.CreateWallet(ctx, "  "), &validationErr)
}

func TestStaleWalletWriteIsRejected(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.CreateWallet(ctx, &Wallet{
		WalletID: "w-1",
		OwnerID:  "acct-1",
		Balance:  decimal.NewFromInt(100),
	}))

	first, err := repo.FindByOwner(ctx, "acct-1")
	require.NoError(t, err)
	second, err := repo.FindByOwner(ctx, "acct-1")
	require.NoError(t, err)

	first.Balance = decimal.NewFromInt(40)
	require.NoError(t, repo.UpdateWallet(ctx, first))

	// The second copy read the pre-update version; its write must lose.
	second.Balance = decimal.NewFromInt(90)
	require.ErrorIs(t, repo.UpdateWallet(ctx, second), ErrStaleWallet)

	current, err := repo.FindByOwner(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "40.00", current.Balance.StringFixed(2))
}

func TestDepositCreatesWalletAndSettles(t *testing.T) {
	s := newWalletService()
	ctx := context.Background()

	tx, err := s.Deposit(ctx, "acct-1", "key-1", decimal.NewFromFloat(250.555))
	require.NoError(t, err)
	require.NotNil(t, tx)

	assert.Equal(t, StateSettled, tx.State)
	assert.Equal(t, KindCredit, tx.Kind)
	assert.Equal(t, "250.56", tx.Amount.StringFixed(2))

	w, err := s.FindWallet(ctx, "acct-1")
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, "250.56", w.Balance.StringFixed(2))

	history, err := s.ListTransactions(ctx, "acct-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, tx.TransactionID, history[0].TransactionID)
}

func TestDepositIsIdempotentOnKey(t *testing.T) {
	s := newWalletService()
	ctx := context.Background()

	first, err := s.Deposit(ctx, "acct-1", "key-1", decimal.NewFromInt(100))
	require.NoError(t, err)
	second, err := s.Deposit(ctx, "acct-1", "key-1", decimal.NewFromInt(100))
	require.NoError(t, err)

	assert.Equal(t, first.TransactionID, second.TransactionID)

	w, err := s.FindWallet(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "100.00", w.Balance.StringFixed(2))

	history, err := s.ListTransactions(ctx, "acct-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestDepositValidation(t *testing.T) {
	s := newWalletService()
	ctx := context.Background()

	var validationErr *types.ValidationError

	_, err := s.Deposit(ctx, "acct-1", "key-1", decimal.Zero)
	require.ErrorAs(t, err, &validationErr)

	_, err = s.Deposit(ctx, "acct-1", "key-1", decimal.NewFromInt(-5))
	require.ErrorAs(t, err, &validationErr)

	_, err = s.Deposit(ctx, "acct-1", "  ", decimal.NewFromInt(5))
	require.ErrorAs(t, err, &validationErr)
}

func TestDebitRejectsOverdraft(t *testing.T) {
	s := newWalletService()
	ctx := context.Background()

	_, err := s.Deposit(ctx, "acct-1", "key-1", decimal.NewFromInt(100))
	require.NoError(t, err)

	_, err = s.Debit(ctx, "acct-1", decimal.NewFromFloat(100.01))
	require.ErrorIs(t, err, types.ErrInsufficientFunds)

	// Balance untouched by the failed debit.
	w, err := s.FindWallet(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "100.00", w.Balance.StringFixed(2))

	updated, err := s.Debit(ctx, "acct-1", decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, "0.00", updated.Balance.StringFixed(2))
}

func TestDebitUnknownWallet(t *testing.T) {
	s := newWalletService()

	var notFound *types.NotFoundError
	_, err := s.Debit(context.Background(), "nobody", decimal.NewFromInt(10))
	require.ErrorAs(t, err, &notFound)
}

func TestRefundCreditsBalance(t *testing.T) {
	s := newWalletService()
	ctx := context.Background()

	_, err := s.Deposit(ctx, "acct-1", "key-1", decimal.NewFromInt(100))
	require.NoError(t, err)
	_, err = s.Debit(ctx, "acct-1", decimal.NewFromInt(60))
	require.NoError(t, err)

	require.NoError(t, s.Refund(ctx, "acct-1", decimal.NewFromInt(60)))

	w, err := s.FindWallet(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "100.00", w.Balance.StringFixed(2))

	// Non-positive refunds are a no-op.
	require.NoError(t, s.Refund(ctx, "acct-1", decimal.Zero))
	w, err = s.FindWallet(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "100.00", w.Balance.StringFixed(2))
}

func TestEnsureBalance(t *testing.T) {
	s := newWalletService()
	ctx := context.Background()

	_, err := s.Deposit(ctx, "acct-1", "key-1", decimal.NewFromInt(100))
	require.NoError(t, err)

	require.NoError(t, s.EnsureBalance(ctx, "acct-1", decimal.NewFromInt(100)))
	require.ErrorIs(t, s.EnsureBalance(ctx, "acct-1", decimal.NewFromFloat(100.01)), types.ErrInsufficientFunds)

	var notFound *types.NotFoundError
	require.ErrorAs(t, s.EnsureBalance(ctx, "nobody", decimal.NewFromInt(1)), &notFound)
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	s := newWalletService()
	ctx := context.Background()

	_, err := s.Deposit(ctx, "acct-1", "key-1", decimal.NewFromInt(100))
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	// 20 workers race to take 10.00 each from a 100.00 balance.
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Debit(ctx, "acct-1", decimal.NewFromInt(10)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)

	w, err := s.FindWallet(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "0.00", w.Balance.StringFixed(2))
	assert.False(t, w.Balance.IsNegative())
}

type failingGateway struct{}

func (failingGateway) Settle(amount decimal.Decimal) error {
	return errors.New("provider unavailable")
}

func TestDepositFailsWhenGatewayRejects(t *testing.T) {
	s := NewService(NewMemoryRepository(), failingGateway{}, txn.NewNoopManager(), metrics.NewRegistry())
	ctx := context.Background()

	_, err := s.Deposit(ctx, "acct-1", "key-1", decimal.NewFromInt(100))
	require.Error(t, err)

	// The balance must not have been credited.
	w, err := s.FindWallet(ctx, "acct-1")
	require.NoError(t, err)
	if w != nil {
		assert.Equal(t, "0.00", w.Balance.StringFixed(2))
	}
}

func TestListTransactionsWithoutWallet(t *testing.T) {
	s := newWalletService()

	history, err := s.ListTransactions(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, history)
}
