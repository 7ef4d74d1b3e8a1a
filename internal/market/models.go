package market

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Stock struct {
	gorm.Model  `json:"-"`
	StockID     string          `gorm:"uniqueIndex" json:"stock_id"`
	Symbol      string          `gorm:"uniqueIndex" json:"symbol"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	LastPrice   decimal.Decimal `gorm:"type:numeric(20,2)" json:"last_price"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Snapshot is one price observation for an instrument.
type Snapshot struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// WatchlistEntry marks one stock as followed by one account.
type WatchlistEntry struct {
	gorm.Model `json:"-"`
	AccountID  string    `gorm:"index;uniqueIndex:idx_watchlist_account_stock" json:"account_id"`
	StockID    string    `gorm:"uniqueIndex:idx_watchlist_account_stock" json:"stock_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Quote is one refreshed price for a followed instrument.
type Quote struct {
	StockID     string          `json:"stock_id"`
	Symbol      string          `json:"symbol"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
