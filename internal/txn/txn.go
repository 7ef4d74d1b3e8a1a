package txn

import (
	"context"

	"gorm.io/gorm"
)

// Manager is the atomic unit-of-work boundary shared by every write performed
// while handling one request. All repository writes issued by fn commit
// together or roll back together. Nested calls within the same logical request
// join the outer boundary instead of opening a second one.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type ctxKey struct{}

// WithTx returns a context carrying the active transaction handle.
func WithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, ctxKey{}, tx)
}

// FromContext resolves the ambient transaction, falling back to the base
// connection when the caller is not inside a coordinator scope.
func FromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(ctxKey{}).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return fallback
}

// GormManager runs work inside a real database transaction.
type GormManager struct {
	db *gorm.DB
}

// NewGormManager returns a Manager backed by db.
func NewGormManager(db *gorm.DB) *GormManager {
	return &GormManager{db: db}
}

// RunInTransaction opens a transaction and binds it into the context handed to
// fn. A call that already runs inside a scope reuses the outer transaction.
func (m *GormManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx, ok := ctx.Value(ctxKey{}).(*gorm.DB); ok && tx != nil {
		return fn(ctx)
	}
	return m.db.Transaction(func(tx *gorm.DB) error {
		return fn(WithTx(ctx, tx))
	})
}

// NoopManager satisfies Manager for the in-memory repositories, which have no
// transactional backing store. It provides a strictly weaker guarantee than
// GormManager: writes are applied sequentially and are NOT rolled back when fn
// fails. Acceptable for tests and non-production wiring only.
type NoopManager struct{}

// NewNoopManager returns the pass-through Manager.
func NewNoopManager() *NoopManager {
	return &NoopManager{}
}

// RunInTransaction invokes fn directly.
func (m *NoopManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
