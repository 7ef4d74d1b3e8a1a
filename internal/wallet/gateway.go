package wallet

import "github.com/shopspring/decimal"

// SettlementGateway moves real money for a deposit. A production
// implementation can fail; that failure propagates as a Deposit failure and
// rolls the scope back.
type SettlementGateway interface {
	Settle(amount decimal.Decimal) error
}

// MockGateway always succeeds. The prototype has no payment provider.
type MockGateway struct{}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (g *MockGateway) Settle(amount decimal.Decimal) error {
	return nil
}
