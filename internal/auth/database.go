package auth

import (
	"context"
	"errors"

	"github.com/SalahGhedda/BrokerX/internal/txn"
	"gorm.io/gorm"
)

// Repository is the account directory storage contract.
type Repository interface {
	Create(ctx context.Context, account *Account) error
	Update(ctx context.Context, account *Account) error
	FindByID(ctx context.Context, accountID string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	AppendAudit(ctx context.Context, entry *AuditEntry) error
	ListAudit(ctx context.Context, accountID string) ([]AuditEntry, error)
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

func (d *Database) Create(ctx context.Context, account *Account) error {
	return d.conn(ctx).Create(account).Error
}

func (d *Database) Update(ctx context.Context, account *Account) error {
	return d.conn(ctx).Save(account).Error
}

func (d *Database) FindByID(ctx context.Context, accountID string) (*Account, error) {
	var account Account
	if err := d.conn(ctx).Where("account_id = ?", accountID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (d *Database) FindByEmail(ctx context.Context, email string) (*Account, error) {
	var account Account
	if err := d.conn(ctx).Where("email = ?", email).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (d *Database) AppendAudit(ctx context.Context, entry *AuditEntry) error {
	return d.conn(ctx).Create(entry).Error
}

func (d *Database) ListAudit(ctx context.Context, accountID string) ([]AuditEntry, error) {
	var entries []AuditEntry
	if err := d.conn(ctx).Where("account_id = ?", accountID).Order("created_at").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
