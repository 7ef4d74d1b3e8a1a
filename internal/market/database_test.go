package market

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newMarketTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// One named in-memory database per test so parallel connections share it
	// without leaking rows across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Stock{}, &WatchlistEntry{}))
	return db
}

func TestWatchlistFollowUnfollowRoundTrip(t *testing.T) {
	repo := NewDatabase(newMarketTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &Stock{
		StockID: "stock-aapl", Symbol: "AAPL", Name: "Apple Inc.",
		LastPrice: decimal.NewFromFloat(185.32),
	}))
	require.NoError(t, repo.Create(ctx, &Stock{
		StockID: "stock-tsla", Symbol: "TSLA", Name: "Tesla Inc.",
		LastPrice: decimal.NewFromFloat(251.44),
	}))

	require.NoError(t, repo.Follow(ctx, "acct-1", "stock-tsla"))
	require.NoError(t, repo.Follow(ctx, "acct-1", "stock-aapl"))
	// Following a stock twice keeps a single relation.
	require.NoError(t, repo.Follow(ctx, "acct-1", "stock-aapl"))

	followed, err := repo.ListFollowed(ctx, "acct-1")
	require.NoError(t, err)
	require.Len(t, followed, 2)
	assert.Equal(t, "AAPL", followed[0].Symbol)
	assert.Equal(t, "TSLA", followed[1].Symbol)

	require.NoError(t, repo.Unfollow(ctx, "acct-1", "stock-aapl"))
	followed, err = repo.ListFollowed(ctx, "acct-1")
	require.NoError(t, err)
	require.Len(t, followed, 1)
	assert.Equal(t, "TSLA", followed[0].Symbol)

	// Re-following after an unfollow must not collide with the old row.
	require.NoError(t, repo.Follow(ctx, "acct-1", "stock-aapl"))
	followed, err = repo.ListFollowed(ctx, "acct-1")
	require.NoError(t, err)
	assert.Len(t, followed, 2)

	// Other accounts are unaffected.
	followed, err = repo.ListFollowed(ctx, "acct-2")
	require.NoError(t, err)
	assert.Empty(t, followed)
}
