package orders

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order sides, types and statuses. PENDING is the only non-terminal status;
// COMPLETED, FAILED and CANCELLED are never left once reached.
const (
	SideBuy = "BUY"

	TypeMarket = "MARKET"
	TypeLimit  = "LIMIT"

	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
)

// Audit event types appended for every order transition.
const (
	EventOrderPending   = "ORDER_PENDING"
	EventOrderCompleted = "ORDER_COMPLETED"
	EventOrderFailed    = "ORDER_FAILED"
	EventOrderCancelled = "ORDER_CANCELLED"
)

type Order struct {
	gorm.Model    `json:"-"`
	OrderID       string              `gorm:"uniqueIndex" json:"order_id"`
	AccountID     string              `gorm:"index;uniqueIndex:idx_orders_account_client" json:"account_id"`
	StockID       string              `gorm:"index" json:"stock_id"`
	Symbol        string              `json:"symbol"`
	Side          string              `json:"side"`       // BUY
	OrderType     string              `json:"order_type"` // MARKET or LIMIT
	Quantity      int                 `json:"quantity"`
	LimitPrice    decimal.NullDecimal `gorm:"type:numeric(20,2)" json:"limit_price"`
	ExecutedPrice decimal.NullDecimal `gorm:"type:numeric(20,2)" json:"executed_price"`
	Notional      decimal.Decimal     `gorm:"type:numeric(20,2)" json:"notional"`
	ClientOrderID *string             `gorm:"uniqueIndex:idx_orders_account_client" json:"client_order_id,omitempty"`
	Status        string              `json:"status"`
	FailureReason string              `json:"failure_reason,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	ExecutedAt    *time.Time          `json:"executed_at,omitempty"`
}

// IsPending reports whether the order can still execute or be cancelled.
func (o *Order) IsPending() bool {
	return o.Status == StatusPending
}

// Complete returns the filled copy of the order: executed price and notional
// recomputed at the fill price, status COMPLETED.
func (o Order) Complete(executionPrice decimal.Decimal, executedAt time.Time) Order {
	price := executionPrice.Round(2)
	now := time.Now().UTC()
	if executedAt.IsZero() {
		executedAt = now
	}
	o.ExecutedPrice = decimal.NewNullDecimal(price)
	o.Notional = price.Mul(decimal.NewFromInt(int64(o.Quantity))).Round(2)
	o.Status = StatusCompleted
	o.UpdatedAt = now
	o.ExecutedAt = &executedAt
	o.FailureReason = ""
	return o
}

// Fail returns the failed copy of the order, recording the attempted price
// and the reason.
func (o Order) Fail(reason string, attemptedPrice decimal.Decimal, executedAt time.Time) Order {
	now := time.Now().UTC()
	if executedAt.IsZero() {
		executedAt = now
	}
	if attemptedPrice.IsPositive() {
		price := attemptedPrice.Round(2)
		o.ExecutedPrice = decimal.NewNullDecimal(price)
		o.Notional = price.Mul(decimal.NewFromInt(int64(o.Quantity))).Round(2)
	}
	o.Status = StatusFailed
	o.FailureReason = reason
	o.UpdatedAt = now
	o.ExecutedAt = &executedAt
	return o
}

// Cancel returns the cancelled copy of the order.
func (o Order) Cancel(cancelledAt time.Time, reason string) Order {
	if cancelledAt.IsZero() {
		cancelledAt = time.Now().UTC()
	}
	o.Status = StatusCancelled
	o.FailureReason = reason
	o.UpdatedAt = cancelledAt
	return o
}

// AuditEntry is one append-only record of an order transition.
type AuditEntry struct {
	gorm.Model `json:"-"`
	OrderID    string    `gorm:"index" json:"order_id"`
	EventType  string    `json:"event_type"`
	Payload    string    `json:"payload"`
	CreatedAt  time.Time `json:"created_at"`
}
