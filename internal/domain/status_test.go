package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatus_Predicates(t *testing.T) {
	tests := []struct {
		status     OrderStatus
		actionable bool
		terminal   bool
	}{
		{StatusPending, true, false},
		{StatusScheduled, true, false},
		{StatusRejected, false, true},
		{StatusCompleted, false, true},
		{StatusCancelled, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.actionable, tt.status.IsActionable())
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
			assert.Equal(t, tt.terminal, len(tt.status.AllowedTransitions()) == 0)
		})
	}
}

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("scheduled")
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, status)

	_, err = ParseOrderStatus("SCHEDULED")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = ParseOrderStatus("")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestAllowedTransitions_ReturnsCopy(t *testing.T) {
	allowed := StatusPending.AllowedTransitions()
	allowed[0] = StatusCancelled

	assert.Equal(t, []OrderStatus{StatusScheduled, StatusRejected}, StatusPending.AllowedTransitions())
}
