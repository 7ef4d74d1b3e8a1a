package orders

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository keeps orders and audit entries in maps. Non-atomic; pair
// with txn.NoopManager. The engine's per-order locking is what keeps this
// store consistent under concurrent ticks, which is exactly what the
// concurrency tests exercise.
type MemoryRepository struct {
	mu     sync.RWMutex
	orders map[string]Order // keyed by order id
	audit  []AuditEntry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orders: make(map[string]Order)}
}

func (m *MemoryRepository) Create(ctx context.Context, order *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.OrderID] = *order
	return nil
}

func (m *MemoryRepository) Update(ctx context.Context, order *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.OrderID] = *order
	return nil
}

func (m *MemoryRepository) FindByOrderID(ctx context.Context, orderID string) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if order, ok := m.orders[orderID]; ok {
		copied := order
		return &copied, nil
	}
	return nil, nil
}

func (m *MemoryRepository) FindByClientOrderID(ctx context.Context, accountID, clientOrderID string) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, order := range m.orders {
		if order.AccountID == accountID && order.ClientOrderID != nil && *order.ClientOrderID == clientOrderID {
			copied := order
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository) FindByAccount(ctx context.Context, accountID string) ([]Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var list []Order
	for _, order := range m.orders {
		if order.AccountID == accountID {
			list = append(list, order)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (m *MemoryRepository) FindPendingByStock(ctx context.Context, stockID string) ([]Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var list []Order
	for _, order := range m.orders {
		if order.StockID == stockID && order.Status == StatusPending {
			list = append(list, order)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

func (m *MemoryRepository) AppendAudit(ctx context.Context, entry *AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, *entry)
	return nil
}

func (m *MemoryRepository) ListAudit(ctx context.Context, orderID string) ([]AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []AuditEntry
	for _, entry := range m.audit {
		if entry.OrderID == orderID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}
