package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewStatus(t *testing.T) {
	for _, value := range []string{"new", "assigned", "in_progress", "done", "failed"} {
		status, err := NewStatus(value)
		assert.NoError(t, err)
		assert.Equal(t, value, status.String())
	}

	_, err := NewStatus("archived")
	assert.Error(t, err)
}

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, StatusNew.IsTerminal())
	assert.False(t, StatusAssigned.IsTerminal())
	assert.False(t, StatusInProgress.IsTerminal())
	assert.True(t, StatusDone.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
}

func TestStatusCanTransition(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusNew, StatusAssigned, true},
		{StatusAssigned, StatusInProgress, true},
		{StatusInProgress, StatusDone, true},

		// failed is reachable from any non-terminal state
		{StatusNew, StatusFailed, true},
		{StatusAssigned, StatusFailed, true},
		{StatusInProgress, StatusFailed, true},

		// no skipping, no going back
		{StatusNew, StatusInProgress, false},
		{StatusNew, StatusDone, false},
		{StatusAssigned, StatusNew, false},
		{StatusInProgress, StatusAssigned, false},

		// terminal states never leave
		{StatusDone, StatusFailed, false},
		{StatusFailed, StatusNew, false},
		{StatusDone, StatusNew, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}
