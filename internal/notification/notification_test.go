package notification

import (
	"fmt"
	"testing"

	"github.com/SalahGhedda/BrokerX/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishAndListNewestFirst(t *testing.T) {
	s := NewService(10)

	require.NoError(t, s.Publish("acct-1", "ORDER_COMPLETED", "first", "ref-1", ""))
	require.NoError(t, s.Publish("acct-1", "ORDER_FAILED", "second", "ref-2", ""))

	notes := s.List("acct-1")
	require.Len(t, notes, 2)
	assert.Equal(t, "second", notes[0].Message)
	assert.Equal(t, "first", notes[1].Message)

	assert.Empty(t, s.List("acct-2"))
}

func TestCapacityEvictsOldest(t *testing.T) {
	s := NewService(3)

	for i := 1; i <= 5; i++ {
		require.NoError(t, s.Publish("acct-1", "ORDER_PENDING", fmt.Sprintf("message %d", i), "", ""))
	}

	notes := s.List("acct-1")
	require.Len(t, notes, 3)
	assert.Equal(t, "message 5", notes[0].Message)
	assert.Equal(t, "message 3", notes[2].Message)
}

func TestPublishValidation(t *testing.T) {
	s := NewService(10)

	var validationErr *types.ValidationError
	require.ErrorAs(t, s.Publish("", "ORDER_PENDING", "msg", "", ""), &validationErr)
	require.ErrorAs(t, s.Publish("acct-1", "", "msg", "", ""), &validationErr)
	require.ErrorAs(t, s.Publish("acct-1", "ORDER_PENDING", "", "", ""), &validationErr)
}

func TestClearDropsAccountNotifications(t *testing.T) {
	s := NewService(10)

	require.NoError(t, s.Publish("acct-1", "ORDER_PENDING", "msg", "", ""))
	require.NoError(t, s.Publish("acct-2", "ORDER_PENDING", "msg", "", ""))

	s.Clear("acct-1")
	assert.Empty(t, s.List("acct-1"))
	assert.Len(t, s.List("acct-2"), 1)
}
