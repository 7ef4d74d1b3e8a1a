package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDomainError(t *testing.T) {
	assert.True(t, IsDomainError(NewValidationError("bad input")))
	assert.True(t, IsDomainError(NewStateError("wrong state")))
	assert.True(t, IsDomainError(NewNotFoundError("missing")))
	assert.True(t, IsDomainError(fmt.Errorf("wrapped: %w", NewStateError("wrong state"))))
	assert.False(t, IsDomainError(errors.New("storage exploded")))
	assert.False(t, IsDomainError(nil))
}

func TestInsufficientFundsIsAStateError(t *testing.T) {
	err := fmt.Errorf("%w: balance 10.00 below 20.00", ErrInsufficientFunds)

	require.ErrorIs(t, err, ErrInsufficientFunds)

	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.True(t, IsDomainError(err))
}

func TestErrorMessagesCarryFormattedReason(t *testing.T) {
	assert.Equal(t, "unknown symbol: XYZ", NewValidationError("unknown symbol: %s", "XYZ").Error())
	assert.Equal(t, "order not found", NewNotFoundError("order not found").Error())
}
