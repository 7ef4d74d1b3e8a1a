package database

import (
	"fmt"

	"github.com/SalahGhedda/BrokerX/internal/auth"
	"github.com/SalahGhedda/BrokerX/internal/market"
	"github.com/SalahGhedda/BrokerX/internal/orders"
	"github.com/SalahGhedda/BrokerX/internal/portfolio"
	"github.com/SalahGhedda/BrokerX/internal/wallet"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDatabase initializes and returns a new GORM DB connection
func NewDatabase(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "brokerx.db"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Migrate auto-migrates every persistent schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&auth.Account{},
		&auth.AuditEntry{},
		&market.Stock{},
		&market.WatchlistEntry{},
		&wallet.Wallet{},
		&wallet.LedgerTransaction{},
		&orders.Order{},
		&orders.AuditEntry{},
		&portfolio.Position{},
	)
}
