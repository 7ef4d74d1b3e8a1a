package txn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type record struct {
	gorm.Model
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// One named in-memory database per test so parallel connections share it
	// without leaking rows across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&record{}))
	return db
}

func count(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&record{}).Count(&n).Error)
	return n
}

func TestGormManagerCommits(t *testing.T) {
	db := newTestDB(t)
	m := NewGormManager(db)

	err := m.RunInTransaction(context.Background(), func(ctx context.Context) error {
		return FromContext(ctx, db).Create(&record{Name: "kept"}).Error
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count(t, db))
}

func TestGormManagerRollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	m := NewGormManager(db)

	boom := errors.New("boom")
	err := m.RunInTransaction(context.Background(), func(ctx context.Context) error {
		if err := FromContext(ctx, db).Create(&record{Name: "discarded"}).Error; err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.EqualValues(t, 0, count(t, db))
}

func TestNestedScopesJoinTheOuterTransaction(t *testing.T) {
	db := newTestDB(t)
	m := NewGormManager(db)

	boom := errors.New("boom")
	err := m.RunInTransaction(context.Background(), func(ctx context.Context) error {
		if err := FromContext(ctx, db).Create(&record{Name: "outer"}).Error; err != nil {
			return err
		}
		// The inner call must reuse the outer handle, so its write dies
		// with the outer rollback.
		if err := m.RunInTransaction(ctx, func(ctx context.Context) error {
			return FromContext(ctx, db).Create(&record{Name: "inner"}).Error
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.EqualValues(t, 0, count(t, db))
}

func TestFromContextFallsBackToBaseConnection(t *testing.T) {
	db := newTestDB(t)
	assert.Same(t, db, FromContext(context.Background(), db))
}

func TestNoopManagerPassesThrough(t *testing.T) {
	m := NewNoopManager()

	calls := 0
	err := m.RunInTransaction(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	boom := errors.New("boom")
	err = m.RunInTransaction(context.Background(), func(ctx context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
}
