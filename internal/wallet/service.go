package wallet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SalahGhedda/BrokerX/internal/locks"
	"github.com/SalahGhedda/BrokerX/internal/metrics"
	"github.com/SalahGhedda/BrokerX/internal/txn"
	"github.com/SalahGhedda/BrokerX/internal/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Service is the wallet ledger: per-account cash balance plus idempotent
// deposit transactions. Mutations of one wallet are serialized through a
// per-owner mutex, and every write is guarded by the wallet's version column
// so a mutation that raced a concurrently committed scope fails with
// ErrStaleWallet instead of overwriting it.
type Service struct {
	repo       Repository
	gateway    SettlementGateway
	tx         txn.Manager
	ownerLocks *locks.KeyedMutex
	metrics    *metrics.Registry
}

func NewService(repo Repository, gateway SettlementGateway, tx txn.Manager, registry *metrics.Registry) *Service {
	return &Service{
		repo:       repo,
		gateway:    gateway,
		tx:         tx,
		ownerLocks: locks.NewKeyedMutex(),
		metrics:    registry,
	}
}

// CreateWallet provisions a zero-balance wallet for the owner. Called once at
// account signup; calling it again for the same owner is a no-op.
func (s *Service) CreateWallet(ctx context.Context, ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return types.NewValidationError("owner id is required")
	}

	s.ownerLocks.Lock(ownerID)
	defer s.ownerLocks.Unlock(ownerID)

	existing, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	wallet := &Wallet{
		WalletID:  uuid.New().String(),
		OwnerID:   ownerID,
		Balance:   decimal.Zero,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateWallet(ctx, wallet); err != nil {
		return err
	}

	log.Info().
		Str("account_id", ownerID).
		Str("wallet_id", wallet.WalletID).
		Msg("wallet created")

	return nil
}

// Deposit credits the owner's wallet, idempotent on the key: replaying the
// same key returns the original transaction without re-crediting. The pending
// ledger row, the settlement call, the settled row and the balance credit all
// share one coordinator scope.
func (s *Service) Deposit(ctx context.Context, ownerID, idempotencyKey string, amount decimal.Decimal) (*LedgerTransaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, types.NewValidationError("amount must be greater than zero")
	}
	if strings.TrimSpace(idempotencyKey) == "" {
		return nil, types.NewValidationError("idempotency key is required")
	}

	s.ownerLocks.Lock(ownerID)
	defer s.ownerLocks.Unlock(ownerID)

	var result *LedgerTransaction
	err := s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.FindTransactionByKey(ctx, idempotencyKey)
		if err != nil {
			return err
		}
		if existing != nil {
			result = existing
			return nil
		}

		wallet, err := s.repo.FindByOwner(ctx, ownerID)
		if err != nil {
			return err
		}
		if wallet == nil {
			wallet = &Wallet{
				WalletID:  uuid.New().String(),
				OwnerID:   ownerID,
				Balance:   decimal.Zero,
				UpdatedAt: time.Now().UTC(),
			}
			if err := s.repo.CreateWallet(ctx, wallet); err != nil {
				return err
			}
		}

		pending := NewPendingCredit(wallet.WalletID, amount, idempotencyKey)
		if err := s.repo.AppendTransaction(ctx, &pending); err != nil {
			return err
		}

		if err := s.gateway.Settle(pending.Amount); err != nil {
			return fmt.Errorf("settlement failed: %w", err)
		}

		settled := pending.Settled()
		if err := s.repo.UpdateTransaction(ctx, &settled); err != nil {
			return err
		}

		wallet.Balance = wallet.Balance.Add(pending.Amount)
		wallet.UpdatedAt = time.Now().UTC()
		if err := s.repo.UpdateWallet(ctx, wallet); err != nil {
			return err
		}

		result = &settled
		return nil
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordDeposit(StateFailed)
		}
		log.Error().Err(err).
			Str("account_id", ownerID).
			Str("idempotency_key", idempotencyKey).
			Str("amount", amount.StringFixed(2)).
			Msg("wallet deposit failed")
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordDeposit(result.State)
	}
	log.Info().
		Str("account_id", ownerID).
		Str("idempotency_key", idempotencyKey).
		Str("amount", amount.StringFixed(2)).
		Str("state", result.State).
		Msg("wallet deposit")

	return result, nil
}

// Debit subtracts amount from the owner's balance. Fails without mutating
// anything when the balance cannot cover it.
func (s *Service) Debit(ctx context.Context, ownerID string, amount decimal.Decimal) (*Wallet, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, types.NewValidationError("amount must be greater than zero")
	}

	s.ownerLocks.Lock(ownerID)
	defer s.ownerLocks.Unlock(ownerID)

	wallet, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, types.NewNotFoundError("wallet not found for account %s", ownerID)
	}

	debit := amount.Round(2)
	if wallet.Balance.LessThan(debit) {
		return nil, fmt.Errorf("%w: balance %s below %s", types.ErrInsufficientFunds,
			wallet.Balance.StringFixed(2), debit.StringFixed(2))
	}

	wallet.Balance = wallet.Balance.Sub(debit)
	wallet.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateWallet(ctx, wallet); err != nil {
		return nil, err
	}

	log.Info().
		Str("account_id", ownerID).
		Str("amount", debit.StringFixed(2)).
		Str("balance", wallet.Balance.StringFixed(2)).
		Msg("wallet debit")

	return wallet, nil
}

// Refund credits amount back to the owner's wallet. A non-positive amount is
// a no-op.
func (s *Service) Refund(ctx context.Context, ownerID string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	s.ownerLocks.Lock(ownerID)
	defer s.ownerLocks.Unlock(ownerID)

	wallet, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	if wallet == nil {
		return types.NewNotFoundError("wallet not found for account %s", ownerID)
	}

	wallet.Balance = wallet.Balance.Add(amount.Round(2))
	wallet.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateWallet(ctx, wallet); err != nil {
		return err
	}

	log.Info().
		Str("account_id", ownerID).
		Str("amount", amount.StringFixed(2)).
		Str("balance", wallet.Balance.StringFixed(2)).
		Msg("wallet refund")

	return nil
}

// EnsureBalance is a read-only pre-trade check that the owner can cover the
// required amount.
func (s *Service) EnsureBalance(ctx context.Context, ownerID string, required decimal.Decimal) error {
	if required.LessThanOrEqual(decimal.Zero) {
		return types.NewValidationError("required amount must be positive")
	}

	wallet, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	if wallet == nil {
		return types.NewNotFoundError("wallet not found for account %s", ownerID)
	}
	if wallet.Balance.LessThan(required.Round(2)) {
		log.Warn().
			Str("account_id", ownerID).
			Str("balance", wallet.Balance.StringFixed(2)).
			Str("required", required.StringFixed(2)).
			Msg("wallet balance insufficient")
		return fmt.Errorf("%w: balance %s below required %s", types.ErrInsufficientFunds,
			wallet.Balance.StringFixed(2), required.StringFixed(2))
	}
	return nil
}

// FindWallet returns the owner's wallet, or (nil, nil) when none exists yet.
func (s *Service) FindWallet(ctx context.Context, ownerID string) (*Wallet, error) {
	return s.repo.FindByOwner(ctx, ownerID)
}

// ListTransactions returns the owner's ledger history, oldest first.
func (s *Service) ListTransactions(ctx context.Context, ownerID string) ([]LedgerTransaction, error) {
	wallet, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return []LedgerTransaction{}, nil
	}
	return s.repo.ListTransactions(ctx, wallet.WalletID)
}
