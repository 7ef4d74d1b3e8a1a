package notification

import (
	"sync"
	"time"

	"github.com/SalahGhedda/BrokerX/internal/types"
	"github.com/google/uuid"
)

// Notification is one best-effort message delivered to an account holder.
type Notification struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	Category    string    `json:"category"`
	Message     string    `json:"message"`
	ReferenceID string    `json:"reference_id"`
	Payload     string    `json:"payload"`
	CreatedAt   time.Time `json:"created_at"`
}

// Service keeps a bounded, newest-first list of notifications per account.
// Delivery is best-effort: callers log and swallow Publish errors rather than
// failing the domain transition that triggered them.
type Service struct {
	mu       sync.Mutex
	store    map[string][]Notification
	capacity int
}

func NewService(capacity int) *Service {
	if capacity <= 0 {
		capacity = 50
	}
	return &Service{
		store:    make(map[string][]Notification),
		capacity: capacity,
	}
}

// Publish records a notification for the account, evicting the oldest entry
// once the per-account capacity is reached.
func (s *Service) Publish(accountID, category, message, referenceID, payload string) error {
	if accountID == "" || category == "" || message == "" {
		return types.NewValidationError("accountID, category and message are required")
	}

	notification := Notification{
		ID:          uuid.New().String(),
		AccountID:   accountID,
		Category:    category,
		Message:     message,
		ReferenceID: referenceID,
		Payload:     payload,
		CreatedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entries := append([]Notification{notification}, s.store[accountID]...)
	if len(entries) > s.capacity {
		entries = entries[:s.capacity]
	}
	s.store[accountID] = entries
	return nil
}

// List returns the account's notifications, newest first.
func (s *Service) List(accountID string) []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.store[accountID]
	out := make([]Notification, len(entries))
	copy(out, entries)
	return out
}

// Clear drops all notifications for the account.
func (s *Service) Clear(accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, accountID)
}
