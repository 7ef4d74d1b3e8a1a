package auth

import (
	"time"

	"gorm.io/gorm"
)

// Account lifecycle states. A signup starts PENDING; verification activates
// it; compliance can suspend and reactivate. Only ACTIVE accounts may trade.
const (
	StatePending   = "PENDING"
	StateActive    = "ACTIVE"
	StateSuspended = "SUSPENDED"
)

type Account struct {
	gorm.Model   `json:"-"`
	AccountID    string    `gorm:"uniqueIndex" json:"account_id"`
	Email        string    `gorm:"uniqueIndex" json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	State        string    `json:"state"` // PENDING, ACTIVE, SUSPENDED
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsActive reports whether the account may place orders and move funds.
func (a *Account) IsActive() bool {
	return a.State == StateActive
}

// Audit event types appended for every account transition.
const (
	EventAccountCreated     = "ACCOUNT_CREATED"
	EventAccountActivated   = "ACCOUNT_ACTIVATED"
	EventAccountSuspended   = "ACCOUNT_SUSPENDED"
	EventAccountReactivated = "ACCOUNT_REACTIVATED"
)

// AuditEntry is one append-only record of an account transition.
type AuditEntry struct {
	gorm.Model `json:"-"`
	AccountID  string    `gorm:"index" json:"account_id"`
	EventType  string    `json:"event_type"`
	Payload    string    `json:"payload"`
	CreatedAt  time.Time `json:"created_at"`
}
