package orders

import (
	"context"
	"errors"

	"github.com/SalahGhedda/BrokerX/internal/txn"
	"gorm.io/gorm"
)

// Repository is the order and audit-trail storage contract.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	Update(ctx context.Context, order *Order) error
	FindByOrderID(ctx context.Context, orderID string) (*Order, error)
	FindByClientOrderID(ctx context.Context, accountID, clientOrderID string) (*Order, error)
	FindByAccount(ctx context.Context, accountID string) ([]Order, error)
	FindPendingByStock(ctx context.Context, stockID string) ([]Order, error)
	AppendAudit(ctx context.Context, entry *AuditEntry) error
	ListAudit(ctx context.Context, orderID string) ([]AuditEntry, error)
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

func (d *Database) Create(ctx context.Context, order *Order) error {
	return d.conn(ctx).Create(order).Error
}

func (d *Database) Update(ctx context.Context, order *Order) error {
	return d.conn(ctx).Save(order).Error
}

func (d *Database) FindByOrderID(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	if err := d.conn(ctx).Where("order_id = ?", orderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (d *Database) FindByClientOrderID(ctx context.Context, accountID, clientOrderID string) (*Order, error) {
	var order Order
	err := d.conn(ctx).
		Where("account_id = ? AND client_order_id = ?", accountID, clientOrderID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (d *Database) FindByAccount(ctx context.Context, accountID string) ([]Order, error) {
	var list []Order
	if err := d.conn(ctx).Where("account_id = ?", accountID).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (d *Database) FindPendingByStock(ctx context.Context, stockID string) ([]Order, error) {
	var list []Order
	err := d.conn(ctx).
		Where("stock_id = ? AND status = ?", stockID, StatusPending).
		Order("created_at").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (d *Database) AppendAudit(ctx context.Context, entry *AuditEntry) error {
	return d.conn(ctx).Create(entry).Error
}

func (d *Database) ListAudit(ctx context.Context, orderID string) ([]AuditEntry, error) {
	var entries []AuditEntry
	if err := d.conn(ctx).Where("order_id = ?", orderID).Order("created_at").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
