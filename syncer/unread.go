package syncer

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/yeremiapane/restaurant-sync/models"
)

// ComputeUnread derives the unread count from messages and the read
// cursor. Counted messages are customer messages that need a human reply:
// senderType USER and messageType != ORDER.
//
// If lastReadID is absent or stale (not found in messages, e.g. after
// history pruning), the boundary falls back to the most recent STAFF
// message, or the start of the list if there is none.
func ComputeUnread(messages []models.ChatMessage, lastReadID uint) int {
	boundary := -1
	if lastReadID != 0 {
		for i, m := range messages {
			if m.ID == lastReadID {
				boundary = i
				break
			}
		}
	}
	if boundary == -1 {
		for i := len(messages) - 1; i >= 0; i-- {
			if messages[i].SenderType == models.SenderStaff {
				boundary = i
				break
			}
		}
	}

	count := 0
	for _, m := range messages[boundary+1:] {
		if m.SenderType == models.SenderUser && m.MessageType != models.MessageOrder {
			count++
		}
	}
	return count
}

// ReadAPI is the slice of the collaborator surface the tracker writes to.
type ReadAPI interface {
	MarkChatRead(ctx context.Context, sessionID, lastReadMessageID uint) error
}

// ReadTracker caches per-session read cursors. MarkRead updates the local
// cache before the server round-trip so the same device's next computation
// is already correct; other devices learn the cursor via the chat:read
// stream event and recompute independently.
type ReadTracker struct {
	mu      sync.Mutex
	api     ReadAPI
	cursors map[uint]uint
}

func NewReadTracker(api ReadAPI) *ReadTracker {
	return &ReadTracker{
		api:     api,
		cursors: make(map[uint]uint),
	}
}

func (t *ReadTracker) Cursor(sessionID uint) uint {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cursors[sessionID]
}

// MarkRead persists the cursor remotely and caches it locally first.
func (t *ReadTracker) MarkRead(ctx context.Context, sessionID, lastMessageID uint) error {
	t.mu.Lock()
	t.cursors[sessionID] = lastMessageID
	t.mu.Unlock()

	if t.api == nil {
		return nil
	}
	if err := t.api.MarkChatRead(ctx, sessionID, lastMessageID); err != nil {
		return errors.Wrap(err, "mark chat read")
	}
	return nil
}

// ApplyRemote ingests a cursor move announced by another device.
func (t *ReadTracker) ApplyRemote(sessionID, lastMessageID uint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cursors[sessionID] = lastMessageID
}

// Prime seeds the cache from a bulk read-status fetch.
func (t *ReadTracker) Prime(cursors map[uint]uint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for sessionID, lastID := range cursors {
		t.cursors[sessionID] = lastID
	}
}

// Unread computes the unread count for one session's message list.
func (t *ReadTracker) Unread(sessionID uint, messages []models.ChatMessage) int {
	return ComputeUnread(messages, t.Cursor(sessionID))
}
