package syncer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yeremiapane/restaurant-sync/models"
	"github.com/yeremiapane/restaurant-sync/stream"
)

func TestNormalizeRole(t *testing.T) {
	assert.Equal(t, models.SenderUser, NormalizeRole("customer"))
	assert.Equal(t, models.SenderUser, NormalizeRole("GUEST"))
	assert.Equal(t, models.SenderUser, NormalizeRole(" user "))
	assert.Equal(t, models.SenderStaff, NormalizeRole("waiter"))
	assert.Equal(t, models.SenderStaff, NormalizeRole("admin"))
	assert.Equal(t, models.SenderSystem, NormalizeRole("system"))
	assert.Equal(t, "KITCHEN", NormalizeRole("kitchen"))
}

func TestSuppressEchoByRole(t *testing.T) {
	s := NewState(DefaultConfig(), newFakeClock())

	ev := stream.ChatMessageEvent{Sender: "WAITER", MessageType: models.MessageText}
	assert.True(t, s.SuppressEcho(ev, models.SenderStaff))
	assert.False(t, s.SuppressEcho(ev, models.SenderUser))
}

func TestSuppressEchoByWindow(t *testing.T) {
	clock := newFakeClock()
	s := NewState(DefaultConfig(), clock)

	s.NoteSend("temp-a")
	ev := stream.ChatMessageEvent{Sender: models.SenderUser, MessageType: models.MessageText}

	clock.Advance(2999 * time.Millisecond)
	assert.True(t, s.SuppressEcho(ev, models.SenderStaff))

	// At exactly the window boundary the event is processed.
	clock.Advance(time.Millisecond)
	assert.False(t, s.SuppressEcho(ev, models.SenderStaff))
}

func TestSuppressEchoByRecentID(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EchoWindow = 0
	clock := newFakeClock()
	s := NewState(cfg, clock)

	s.NoteSend("temp-a")
	s.ConfirmSend("temp-a", "41")

	ev := stream.ChatMessageEvent{Sender: models.SenderUser, MessageID: 41, MessageType: models.MessageText}
	assert.True(t, s.SuppressEcho(ev, models.SenderStaff))

	other := stream.ChatMessageEvent{Sender: models.SenderUser, MessageID: 42, MessageType: models.MessageText}
	assert.False(t, s.SuppressEcho(other, models.SenderStaff))

	clock.Advance(4 * time.Second)
	assert.False(t, s.SuppressEcho(ev, models.SenderStaff))
}
