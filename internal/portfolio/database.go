package portfolio

import (
	"context"
	"errors"

	"github.com/SalahGhedda/BrokerX/internal/txn"
	"gorm.io/gorm"
)

// Repository is the position storage contract.
type Repository interface {
	Find(ctx context.Context, accountID, stockID string) (*Position, error)
	Upsert(ctx context.Context, position *Position) error
	ListByAccount(ctx context.Context, accountID string) ([]Position, error)
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

func (d *Database) Find(ctx context.Context, accountID, stockID string) (*Position, error) {
	var position Position
	if err := d.conn(ctx).Where("account_id = ? AND stock_id = ?", accountID, stockID).First(&position).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &position, nil
}

func (d *Database) Upsert(ctx context.Context, position *Position) error {
	existing, err := d.Find(ctx, position.AccountID, position.StockID)
	if err != nil {
		return err
	}
	if existing != nil {
		position.ID = existing.ID
		position.CreatedAt = existing.CreatedAt
	}
	return d.conn(ctx).Save(position).Error
}

func (d *Database) ListByAccount(ctx context.Context, accountID string) ([]Position, error) {
	var positions []Position
	if err := d.conn(ctx).Where("account_id = ?", accountID).Order("stock_id").Find(&positions).Error; err != nil {
		return nil, err
	}
	return positions, nil
}
