package wallet

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository keeps wallets and ledger rows in maps. Writes apply
// immediately and cannot be rolled back, so it must be paired with
// txn.NoopManager and kept out of production.
type MemoryRepository struct {
	mu           sync.RWMutex
	wallets      map[string]Wallet            // keyed by owner id
	transactions map[string]LedgerTransaction // keyed by transaction id
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		wallets:      make(map[string]Wallet),
		transactions: make(map[string]LedgerTransaction),
	}
}

func (m *MemoryRepository) CreateWallet(ctx context.Context, wallet *Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wallets[wallet.OwnerID] = *wallet
	return nil
}

func (m *MemoryRepository) UpdateWallet(ctx context.Context, wallet *Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.wallets[wallet.OwnerID]
	if !ok || stored.Version != wallet.Version {
		return ErrStaleWallet
	}
	wallet.Version++
	m.wallets[wallet.OwnerID] = *wallet
	return nil
}

func (m *MemoryRepository) FindByOwner(ctx context.Context, ownerID string) (*Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if wallet, ok := m.wallets[ownerID]; ok {
		copied := wallet
		return &copied, nil
	}
	return nil, nil
}

func (m *MemoryRepository) AppendTransaction(ctx context.Context, tx *LedgerTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[tx.TransactionID] = *tx
	return nil
}

func (m *MemoryRepository) UpdateTransaction(ctx context.Context, tx *LedgerTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[tx.TransactionID] = *tx
	return nil
}

func (m *MemoryRepository) FindTransactionByKey(ctx context.Context, idempotencyKey string) (*LedgerTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, tx := range m.transactions {
		if tx.IdempotencyKey == idempotencyKey {
			copied := tx
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository) ListTransactions(ctx context.Context, walletID string) ([]LedgerTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var txs []LedgerTransaction
	for _, tx := range m.transactions {
		if tx.WalletID == walletID {
			txs = append(txs, tx)
		}
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].OccurredAt.Before(txs[j].OccurredAt) })
	return txs, nil
}
