package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalPair(t *testing.T) {
	low, high := CanonicalPair(9, 3)
	assert.Equal(t, uint(3), low)
	assert.Equal(t, uint(9), high)

	edge := NewConnection(9, 3, StatePending, 9)
	assert.Equal(t, uint(3), edge.UserLowID)
	assert.Equal(t, uint(9), edge.UserHighID)
	assert.Equal(t, uint(9), edge.RequestedBy)
	assert.Equal(t, uint(9), edge.Other(3))
	assert.Equal(t, uint(3), edge.Other(9))
}
