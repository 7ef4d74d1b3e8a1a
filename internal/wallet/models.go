package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Ledger transaction kinds and states. The prototype only books deposits, so
// every transaction is a CREDIT that settles or fails exactly once.
const (
	KindCredit = "CREDIT"

	StatePending = "PENDING"
	StateSettled = "SETTLED"
	StateFailed  = "FAILED"
)

type Wallet struct {
	gorm.Model `json:"-"`
	WalletID   string          `gorm:"uniqueIndex" json:"wallet_id"`
	OwnerID    string          `gorm:"uniqueIndex" json:"owner_id"`
	Balance    decimal.Decimal `gorm:"type:numeric(20,2)" json:"balance"`
	Version    uint64          `gorm:"not null;default:0" json:"-"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type LedgerTransaction struct {
	gorm.Model     `json:"-"`
	TransactionID  string          `gorm:"uniqueIndex" json:"transaction_id"`
	WalletID       string          `gorm:"index" json:"wallet_id"`
	Amount         decimal.Decimal `gorm:"type:numeric(20,2)" json:"amount"`
	Kind           string          `json:"kind"`  // CREDIT
	State          string          `json:"state"` // PENDING, SETTLED, FAILED
	IdempotencyKey string          `gorm:"uniqueIndex" json:"idempotency_key"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// NewPendingCredit books a deposit that has not settled yet.
func NewPendingCredit(walletID string, amount decimal.Decimal, idempotencyKey string) LedgerTransaction {
	return LedgerTransaction{
		TransactionID:  uuid.New().String(),
		WalletID:       walletID,
		Amount:         amount.Round(2),
		Kind:           KindCredit,
		State:          StatePending,
		IdempotencyKey: idempotencyKey,
		OccurredAt:     time.Now().UTC(),
	}
}

// Settled returns the settled copy of the transaction.
func (t LedgerTransaction) Settled() LedgerTransaction {
	t.State = StateSettled
	t.OccurredAt = time.Now().UTC()
	return t
}
