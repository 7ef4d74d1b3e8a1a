package market

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomWalkFirstTickSeedsFromReference(t *testing.T) {
	feed := NewRandomWalkFeed(42)

	snapshot := feed.TickFor("AAPL", decimal.NewFromFloat(185.32))
	assert.Equal(t, "185.32", snapshot.Price.StringFixed(2))
	assert.Equal(t, "AAPL", snapshot.Symbol)
}

func TestRandomWalkFirstTickWithoutReference(t *testing.T) {
	feed := NewRandomWalkFeed(42)

	snapshot := feed.TickFor("NEW", decimal.Zero)
	assert.True(t, snapshot.Price.GreaterThanOrEqual(decimal.NewFromInt(100)))
	assert.True(t, snapshot.Price.LessThan(decimal.NewFromInt(300)))
}

func TestRandomWalkStepsStayWithinOnePercent(t *testing.T) {
	feed := NewRandomWalkFeed(7)

	previous := feed.TickFor("AAPL", decimal.NewFromFloat(185.32)).Price
	for i := 0; i < 500; i++ {
		next := feed.TickFor("AAPL", decimal.Zero).Price
		ratio, _ := next.Div(previous).Float64()
		// Rounding to cents widens the band marginally.
		assert.InDelta(t, 1.0, ratio, 0.011, "tick %d: %s -> %s", i, previous, next)
		previous = next
	}
}

func TestRandomWalkNeverDropsBelowFloor(t *testing.T) {
	feed := NewRandomWalkFeed(99)
	floor := decimal.NewFromInt(1)

	feed.TickFor("PENNY", decimal.NewFromFloat(1.00))
	for i := 0; i < 2000; i++ {
		snapshot := feed.TickFor("PENNY", decimal.Zero)
		require.True(t, snapshot.Price.GreaterThanOrEqual(floor), "price %s below floor", snapshot.Price)
	}
}

func TestStaticFeedReturnsPinnedPrice(t *testing.T) {
	feed := NewStaticFeed()
	feed.SetPrice("AAPL", decimal.NewFromFloat(200.00))

	snapshot := feed.TickFor("AAPL", decimal.NewFromFloat(185.32))
	assert.Equal(t, "200.00", snapshot.Price.StringFixed(2))

	// Unpinned symbols fall back to the reference.
	other := feed.TickFor("MSFT", decimal.NewFromFloat(409.06))
	assert.Equal(t, "409.06", other.Price.StringFixed(2))
}

func TestQuoteAdvancesAndPersistsPrice(t *testing.T) {
	ctx := context.Background()

	feed := NewStaticFeed()
	feed.SetPrice("AAPL", decimal.NewFromFloat(190.00))

	repo := NewMemoryRepository()
	require.NoError(t, repo.Create(ctx, &Stock{
		StockID:   "stock-1",
		Symbol:    "AAPL",
		LastPrice: decimal.NewFromFloat(185.32),
	}))

	s := NewService(repo, feed)
	snapshot, err := s.Quote(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "190.00", snapshot.Price.StringFixed(2))

	stored, err := repo.FindByID(ctx, "stock-1")
	require.NoError(t, err)
	assert.Equal(t, "190.00", stored.LastPrice.StringFixed(2))
}

func TestSeedCatalogueIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewService(NewMemoryRepository(), NewStaticFeed())

	require.NoError(t, s.SeedCatalogue(ctx))
	first, err := s.ListStocks(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	require.NoError(t, s.SeedCatalogue(ctx))
	second, err := s.ListStocks(ctx)
	require.NoError(t, err)
	assert.Len(t, second, len(first))
}
