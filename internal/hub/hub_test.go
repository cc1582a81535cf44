package hub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyReachesOnlyTargetUser(t *testing.T) {
	h := NewHub()
	ada, bob := NewClient(), NewClient()
	h.Subscribe(1, ada)
	h.Subscribe(2, bob)

	h.Notify(1, Event{Type: EventConnectionRequest, Payload: map[string]uint{"from": 2}})

	require.Len(t, ada, 1)
	assert.Len(t, bob, 0)

	var got struct {
		Type    string          `json:"type"`
		Payload map[string]uint `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(<-ada, &got))
	assert.Equal(t, EventConnectionRequest, got.Type)
	assert.Equal(t, uint(2), got.Payload["from"])
}

func TestNotifyDropsWhenBufferFull(t *testing.T) {
	h := NewHub()
	c := NewClient()
	h.Subscribe(1, c)

	for i := 0; i < ClientBuffer+5; i++ {
		h.Notify(1, Event{Type: EventConnectionAccepted})
	}
	assert.Len(t, c, ClientBuffer)
}

func TestUnsubscribeClosesClient(t *testing.T) {
	h := NewHub()
	c := NewClient()
	h.Subscribe(1, c)
	assert.Equal(t, 1, h.Subscribers(1))

	h.Unsubscribe(1, c)
	assert.Equal(t, 0, h.Subscribers(1))
	_, open := <-c
	assert.False(t, open)

	// Unknown users and repeated unsubscribes are ignored.
	h.Unsubscribe(1, c)
	h.Notify(1, Event{Type: EventConnectionAccepted})
}
