package hub

import (
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-sync/models"
	"github.com/yeremiapane/restaurant-sync/stream"
)

func TestBroadcastScopedToRestaurant(t *testing.T) {
	h := New(logrus.New())

	mine := h.Subscribe(1)
	other := h.Subscribe(2)
	defer h.Unsubscribe(mine)
	defer h.Unsubscribe(other)

	h.BroadcastOrderStatus(1, 12, models.OrderCooking)

	select {
	case data := <-mine:
		ev, err := stream.Decode(data)
		require.NoError(t, err)
		assert.Equal(t, stream.OrderStatusEvent{OrderID: 12, Status: models.OrderCooking}, ev)
	default:
		t.Fatal("subscriber of restaurant 1 received nothing")
	}

	select {
	case <-other:
		t.Fatal("subscriber of restaurant 2 must not receive restaurant 1 events")
	default:
	}
}

func TestBroadcastChatMessageCarriesID(t *testing.T) {
	h := New(logrus.New())
	ch := h.Subscribe(1)
	defer h.Unsubscribe(ch)

	h.BroadcastChatMessage(1, models.ChatMessage{
		ID:          44,
		SessionID:   3,
		SenderType:  models.SenderUser,
		MessageType: models.MessageText,
		Text:        "hello",
	})

	data := <-ch
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, stream.EventChatMessage, payload["type"])
	assert.Equal(t, float64(44), payload["messageId"])
	assert.Equal(t, float64(3), payload["sessionId"])
}

func TestSlowSubscriberNeverBlocksBroadcast(t *testing.T) {
	h := New(logrus.New())
	ch := h.Subscribe(1)
	defer h.Unsubscribe(ch)

	// Overflow the buffer without ever draining. Broadcasts must drop, not
	// deadlock.
	for i := 0; i < 100; i++ {
		h.BroadcastSessionEnded(1, uint(i+1))
	}

	assert.Equal(t, 32, len(ch))
}
