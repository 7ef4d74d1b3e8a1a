package wallet

import (
	"context"
	"errors"

	"github.com/SalahGhedda/BrokerX/internal/txn"
	"gorm.io/gorm"
)

// ErrStaleWallet reports a lost optimistic-lock race: the wallet row changed
// between read and write. Callers treat it as a storage error; the enclosing
// scope rolls back instead of overwriting the concurrent balance.
var ErrStaleWallet = errors.New("wallet was modified concurrently")

// Repository is the wallet and ledger storage contract.
type Repository interface {
	CreateWallet(ctx context.Context, wallet *Wallet) error
	UpdateWallet(ctx context.Context, wallet *Wallet) error
	FindByOwner(ctx context.Context, ownerID string) (*Wallet, error)
	AppendTransaction(ctx context.Context, tx *LedgerTransaction) error
	UpdateTransaction(ctx context.Context, tx *LedgerTransaction) error
	FindTransactionByKey(ctx context.Context, idempotencyKey string) (*LedgerTransaction, error)
	ListTransactions(ctx context.Context, walletID string) ([]LedgerTransaction, error)
}

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) conn(ctx context.Context) *gorm.DB {
	return txn.FromContext(ctx, d.db).WithContext(ctx)
}

func (d *Database) CreateWallet(ctx context.Context, wallet *Wallet) error {
	return d.conn(ctx).Create(wallet).Error
}

// UpdateWallet writes the balance guarded by the version column. A write that
// lost the race against a concurrently committed mutation affects zero rows
// and returns ErrStaleWallet.
func (d *Database) UpdateWallet(ctx context.Context, wallet *Wallet) error {
	res := d.conn(ctx).Model(&Wallet{}).
		Where("wallet_id = ? AND version = ?", wallet.WalletID, wallet.Version).
		Updates(map[string]interface{}{
			"balance":    wallet.Balance,
			"version":    wallet.Version + 1,
			"updated_at": wallet.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleWallet
	}
	wallet.Version++
	return nil
}

func (d *Database) FindByOwner(ctx context.Context, ownerID string) (*Wallet, error) {
	var wallet Wallet
	if err := d.conn(ctx).Where("owner_id = ?", ownerID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &wallet, nil
}

func (d *Database) AppendTransaction(ctx context.Context, tx *LedgerTransaction) error {
	return d.conn(ctx).Create(tx).Error
}

func (d *Database) UpdateTransaction(ctx context.Context, tx *LedgerTransaction) error {
	return d.conn(ctx).Save(tx).Error
}

func (d *Database) FindTransactionByKey(ctx context.Context, idempotencyKey string) (*LedgerTransaction, error) {
	var tx LedgerTransaction
	if err := d.conn(ctx).Where("idempotency_key = ?", idempotencyKey).First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

func (d *Database) ListTransactions(ctx context.Context, walletID string) ([]LedgerTransaction, error) {
	var txs []LedgerTransaction
	if err := d.conn(ctx).Where("wallet_id = ?", walletID).Order("occurred_at").Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}
