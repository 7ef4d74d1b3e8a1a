package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Position struct {
	gorm.Model   `json:"-"`
	AccountID    string          `gorm:"uniqueIndex:idx_positions_account_stock" json:"account_id"`
	StockID      string          `gorm:"uniqueIndex:idx_positions_account_stock" json:"stock_id"`
	Quantity     decimal.Decimal `gorm:"type:numeric(20,2)" json:"quantity"`
	AveragePrice decimal.Decimal `gorm:"type:numeric(20,2)" json:"average_price"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Empty returns the zero position a first fill starts from.
func Empty(accountID, stockID string) Position {
	return Position{
		AccountID:    accountID,
		StockID:      stockID,
		Quantity:     decimal.Zero.Round(2),
		AveragePrice: decimal.Zero.Round(2),
		UpdatedAt:    time.Now().UTC(),
	}
}

// WithFill folds one executed buy into the position using weighted average
// cost: the first fill takes the executed price, later fills blend it by
// quantity, rounded half-up to 2dp.
func (p Position) WithFill(executedPrice decimal.Decimal, fillQuantity int, at time.Time) Position {
	fillQty := decimal.NewFromInt(int64(fillQuantity))
	newQuantity := p.Quantity.Add(fillQty)

	var newAverage decimal.Decimal
	if p.Quantity.IsZero() {
		newAverage = executedPrice.Round(2)
	} else {
		totalCost := p.AveragePrice.Mul(p.Quantity).Add(executedPrice.Mul(fillQty))
		newAverage = totalCost.DivRound(newQuantity, 2)
	}

	if at.IsZero() {
		at = time.Now().UTC()
	}
	p.Quantity = newQuantity
	p.AveragePrice = newAverage
	p.UpdatedAt = at
	return p
}
