package portfolio

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository keeps positions in a map. Non-atomic; pair with
// txn.NoopManager outside production.
type MemoryRepository struct {
	mu        sync.RWMutex
	positions map[string]Position // keyed by accountID + "/" + stockID
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{positions: make(map[string]Position)}
}

func key(accountID, stockID string) string {
	return accountID + "/" + stockID
}

func (m *MemoryRepository) Find(ctx context.Context, accountID, stockID string) (*Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if position, ok := m.positions[key(accountID, stockID)]; ok {
		copied := position
		return &copied, nil
	}
	return nil, nil
}

func (m *MemoryRepository) Upsert(ctx context.Context, position *Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[key(position.AccountID, position.StockID)] = *position
	return nil
}

func (m *MemoryRepository) ListByAccount(ctx context.Context, accountID string) ([]Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var positions []Position
	for _, position := range m.positions {
		if position.AccountID == accountID {
			positions = append(positions, position)
		}
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].StockID < positions[j].StockID })
	return positions, nil
}
