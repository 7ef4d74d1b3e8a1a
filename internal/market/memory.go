package market

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// MemoryRepository keeps the stock catalogue in a map. No transactional
// guarantee; pair with txn.NoopManager outside production.
type MemoryRepository struct {
	mu      sync.RWMutex
	stocks  map[string]Stock           // keyed by stock id
	follows map[string]map[string]bool // account id -> followed stock ids
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		stocks:  make(map[string]Stock),
		follows: make(map[string]map[string]bool),
	}
}

func (m *MemoryRepository) Create(ctx context.Context, stock *Stock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stocks[stock.StockID] = *stock
	return nil
}

func (m *MemoryRepository) FindBySymbol(ctx context.Context, symbol string) (*Stock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, stock := range m.stocks {
		if stock.Symbol == symbol {
			copied := stock
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository) FindByID(ctx context.Context, stockID string) (*Stock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if stock, ok := m.stocks[stockID]; ok {
		copied := stock
		return &copied, nil
	}
	return nil, nil
}

func (m *MemoryRepository) List(ctx context.Context) ([]Stock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stocks := make([]Stock, 0, len(m.stocks))
	for _, stock := range m.stocks {
		stocks = append(stocks, stock)
	}
	sort.Slice(stocks, func(i, j int) bool { return stocks[i].Symbol < stocks[j].Symbol })
	return stocks, nil
}

func (m *MemoryRepository) UpdatePrice(ctx context.Context, stockID string, price decimal.Decimal, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stock, ok := m.stocks[stockID]; ok {
		stock.LastPrice = price
		stock.UpdatedAt = at
		m.stocks[stockID] = stock
	}
	return nil
}

func (m *MemoryRepository) Follow(ctx context.Context, accountID, stockID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.follows[accountID] == nil {
		m.follows[accountID] = make(map[string]bool)
	}
	m.follows[accountID][stockID] = true
	return nil
}

func (m *MemoryRepository) Unfollow(ctx context.Context, accountID, stockID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.follows[accountID], stockID)
	return nil
}

func (m *MemoryRepository) ListFollowed(ctx context.Context, accountID string) ([]Stock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stocks []Stock
	for stockID := range m.follows[accountID] {
		if stock, ok := m.stocks[stockID]; ok {
			stocks = append(stocks, stock)
		}
	}
	sort.Slice(stocks, func(i, j int) bool { return stocks[i].Symbol < stocks[j].Symbol })
	return stocks, nil
}
