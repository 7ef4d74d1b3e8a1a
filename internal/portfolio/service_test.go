package portfolio

import (
	"context"
	"testing"
	"time"

	"github.com/SalahGhedda/BrokerX/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithFillWeightedAverage(t *testing.T) {
	now := time.Now().UTC()

	position := Empty("acct-1", "stock-1")
	position = position.WithFill(decimal.NewFromInt(100), 10, now)
	assert.Equal(t, "10.00", position.Quantity.StringFixed(2))
	assert.Equal(t, "100.00", position.AveragePrice.StringFixed(2))

	position = position.WithFill(decimal.NewFromInt(200), 10, now)
	assert.Equal(t, "20.00", position.Quantity.StringFixed(2))
	assert.Equal(t, "150.00", position.AveragePrice.StringFixed(2))
}

func TestWithFillRoundsAverageToCents(t *testing.T) {
	now := time.Now().UTC()

	position := Empty("acct-1", "stock-1")
	position = position.WithFill(decimal.NewFromInt(10), 3, now)
	position = position.WithFill(decimal.NewFromInt(11), 1, now)

	// (30 + 11) / 4 = 10.25
	assert.Equal(t, "10.25", position.AveragePrice.StringFixed(2))
}

func TestApplyFillCreatesAndBlendsPosition(t *testing.T) {
	s := NewService(NewMemoryRepository())
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.ApplyFill(ctx, "acct-1", "stock-1", decimal.NewFromFloat(185.32), 10, now))
	require.NoError(t, s.ApplyFill(ctx, "acct-1", "stock-1", decimal.NewFromFloat(190.00), 10, now))

	positions, err := s.ListPositions(ctx, "acct-1")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "20.00", positions[0].Quantity.StringFixed(2))
	assert.Equal(t, "187.66", positions[0].AveragePrice.StringFixed(2))
}

func TestApplyFillValidation(t *testing.T) {
	s := NewService(NewMemoryRepository())
	ctx := context.Background()

	var validationErr *types.ValidationError
	require.ErrorAs(t, s.ApplyFill(ctx, "acct-1", "stock-1", decimal.Zero, 10, time.Now()), &validationErr)
	require.ErrorAs(t, s.ApplyFill(ctx, "acct-1", "stock-1", decimal.NewFromInt(10), 0, time.Now()), &validationErr)
}

func TestPositionsAreIsolatedPerAccount(t *testing.T) {
	s := NewService(NewMemoryRepository())
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.ApplyFill(ctx, "acct-1", "stock-1", decimal.NewFromInt(100), 5, now))
	require.NoError(t, s.ApplyFill(ctx, "acct-2", "stock-1", decimal.NewFromInt(100), 7, now))

	first, err := s.ListPositions(ctx, "acct-1")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "5.00", first[0].Quantity.StringFixed(2))

	second, err := s.ListPositions(ctx, "acct-2")
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "7.00", second[0].Quantity.StringFixed(2))
}
