package market

import (
	"context"
	"errors"
	"time"

	"github.com/SalahGhedda/BrokerX/internal/txn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository is the stock catalogue and watchlist storage contract.
type Repository interface {
	Create(ctx context.Context, stock *Stock) error
	FindBySymbol(ctx context.Context, symbol string) (*Stock, error)
	FindByID(ctx context.Context, stockID string) (*Stock, error)
	List(ctx context.Context) ([]Stock, error)
	UpdatePrice(ctx context.Context, stockID string, price decimal.Decimal, at time.Time) error
	Follow(ctx context.Context, accountID, stockID string) error
	Unfollow(ctx context.Context, accountID, stockID string) error
	ListFollowed(ctx context.Context, accountID string) ([]Stock, error)
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

func (d *Database) Create(ctx context.Context, stock *Stock) error {
	return d.conn(ctx).Create(stock).Error
}

func (d *Database) FindBySymbol(ctx context.Context, symbol string) (*Stock, error) {
	var stock Stock
	if err := d.conn(ctx).Where("symbol = ?", symbol).First(&stock).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &stock, nil
}

func (d *Database) FindByID(ctx context.Context, stockID string) (*Stock, error) {
	var stock Stock
	if err := d.conn(ctx).Where("stock_id = ?", stockID).First(&stock).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &stock, nil
}

func (d *Database) List(ctx context.Context) ([]Stock, error) {
	var stocks []Stock
	if err := d.conn(ctx).Order("symbol").Find(&stocks).Error; err != nil {
		return nil, err
	}
	return stocks, nil
}

func (d *Database) UpdatePrice(ctx context.Context, stockID string, price decimal.Decimal, at time.Time) error {
	return d.conn(ctx).Model(&Stock{}).
		Where("stock_id = ?", stockID).
		Updates(map[string]interface{}{
			"last_price": price,
			"updated_at": at,
		}).Error
}

// Follow records the account as following the stock. Following a stock twice
// is a no-op.
func (d *Database) Follow(ctx context.Context, accountID, stockID string) error {
	entry := WatchlistEntry{AccountID: accountID, StockID: stockID, CreatedAt: time.Now().UTC()}
	return d.conn(ctx).
		Where("account_id = ? AND stock_id = ?", accountID, stockID).
		FirstOrCreate(&entry).Error
}

// Unfollow removes the relation outright. A soft delete would trip the
// unique (account, stock) index on a later re-follow.
func (d *Database) Unfollow(ctx context.Context, accountID, stockID string) error {
	return d.conn(ctx).Unscoped().
		Where("account_id = ? AND stock_id = ?", accountID, stockID).
		Delete(&WatchlistEntry{}).Error
}

func (d *Database) ListFollowed(ctx context.Context, accountID string) ([]Stock, error) {
	var stocks []Stock
	err := d.conn(ctx).Model(&Stock{}).
		Joins("JOIN watchlist_entries ON watchlist_entries.stock_id = stocks.stock_id").
		Where("watchlist_entries.account_id = ?", accountID).
		Order("stocks.symbol").
		Find(&stocks).Error
	if err != nil {
		return nil, err
	}
	return stocks, nil
}
