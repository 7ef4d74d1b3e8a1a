package auth

import (
	"context"
	"sync"
)

// MemoryRepository keeps accounts in a map. It carries no transactional
// guarantee and is meant for tests and non-production wiring together with
// txn.NoopManager.
type MemoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]Account
	audits   map[string][]AuditEntry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		accounts: make(map[string]Account),
		audits:   make(map[string][]AuditEntry),
	}
}

func (m *MemoryRepository) Create(ctx context.Context, account *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.AccountID] = *account
	return nil
}

func (m *MemoryRepository) Update(ctx context.Context, account *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.AccountID] = *account
	return nil
}

func (m *MemoryRepository) FindByID(ctx context.Context, accountID string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if account, ok := m.accounts[accountID]; ok {
		copied := account
		return &copied, nil
	}
	return nil, nil
}

func (m *MemoryRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, account := range m.accounts {
		if account.Email == email {
			copied := account
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository) AppendAudit(ctx context.Context, entry *AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits[entry.AccountID] = append(m.audits[entry.AccountID], *entry)
	return nil
}

func (m *MemoryRepository) ListAudit(ctx context.Context, accountID string) ([]AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]AuditEntry, len(m.audits[accountID]))
	copy(entries, m.audits[accountID])
	return entries, nil
}
