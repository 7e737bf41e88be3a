package syncer

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-sync/models"
)

func msg(id uint, sender, kind string) models.ChatMessage {
	return models.ChatMessage{ID: id, SenderType: sender, MessageType: kind}
}

func TestComputeUnread(t *testing.T) {
	messages := []models.ChatMessage{
		msg(1, models.SenderUser, models.MessageText),
		msg(2, models.SenderStaff, models.MessageText),
		msg(3, models.SenderUser, models.MessageText),
		msg(4, models.SenderUser, models.MessageOrder),
		msg(5, models.SenderUser, models.MessageRequest),
	}

	// Cursor at the staff reply: two USER messages after it count, the
	// ORDER message does not.
	assert.Equal(t, 2, ComputeUnread(messages, 2))

	// Everything read.
	assert.Equal(t, 0, ComputeUnread(messages, 5))

	// Marking read twice is idempotent.
	assert.Equal(t, 0, ComputeUnread(messages, 5))

	// Cursor before a trailing ORDER-only gap.
	assert.Equal(t, 1, ComputeUnread(messages, 3))
}

func TestComputeUnreadStaleCursorFallback(t *testing.T) {
	messages := []models.ChatMessage{
		msg(10, models.SenderUser, models.MessageText),
		msg(11, models.SenderStaff, models.MessageText),
		msg(12, models.SenderUser, models.MessageText),
	}

	// Cursor id 5 is not in the list: fall back to the most recent STAFF
	// message as the boundary.
	assert.Equal(t, 1, ComputeUnread(messages, 5))

	// No cursor at all behaves the same.
	assert.Equal(t, 1, ComputeUnread(messages, 0))

	// No staff message either: everything counts.
	userOnly := []models.ChatMessage{
		msg(20, models.SenderUser, models.MessageText),
		msg(21, models.SenderUser, models.MessageOrder),
		msg(22, models.SenderUser, models.MessageText),
	}
	assert.Equal(t, 2, ComputeUnread(userOnly, 0))

	assert.Equal(t, 0, ComputeUnread(nil, 0))
}

type fakeReadAPI struct {
	calls []uint
	err   error
}

func (f *fakeReadAPI) MarkChatRead(ctx context.Context, sessionID, lastReadMessageID uint) error {
	f.calls = append(f.calls, lastReadMessageID)
	return f.err
}

func TestReadTrackerMarkRead(t *testing.T) {
	api := &fakeReadAPI{}
	tracker := NewReadTracker(api)

	require.NoError(t, tracker.MarkRead(context.Background(), 1, 5))
	assert.Equal(t, uint(5), tracker.Cursor(1))
	assert.Equal(t, []uint{5}, api.calls)

	messages := []models.ChatMessage{
		msg(4, models.SenderUser, models.MessageText),
		msg(5, models.SenderUser, models.MessageText),
		msg(6, models.SenderUser, models.MessageText),
	}
	assert.Equal(t, 1, tracker.Unread(1, messages))
}

func TestReadTrackerKeepsLocalCursorOnAPIFailure(t *testing.T) {
	api := &fakeReadAPI{err: errors.New("boom")}
	tracker := NewReadTracker(api)

	err := tracker.MarkRead(context.Background(), 1, 5)
	assert.Error(t, err)
	// Local cache still moved: this device's own view is already correct,
	// the server catches up on the next successful mark.
	assert.Equal(t, uint(5), tracker.Cursor(1))
}

func TestReadTrackerRemoteAndPrime(t *testing.T) {
	tracker := NewReadTracker(nil)

	tracker.Prime(map[uint]uint{1: 3, 2: 9})
	assert.Equal(t, uint(3), tracker.Cursor(1))
	assert.Equal(t, uint(9), tracker.Cursor(2))

	tracker.ApplyRemote(1, 7)
	assert.Equal(t, uint(7), tracker.Cursor(1))
}
