package syncer

import (
	"time"

	"github.com/google/uuid"
	"github.com/yeremiapane/restaurant-sync/models"
)

// LocalMessage is a chat message as held by one device: either a confirmed
// server row, or a provisional copy owned by the sending device until the
// write call resolves.
type LocalMessage struct {
	models.ChatMessage
	TempID  string `json:"temp_id,omitempty"`
	Pending bool   `json:"pending,omitempty"`
	// JustUpdatedAt tags a message confirmed in place so the rendering
	// layer can skip its entrance animation. No correctness role.
	JustUpdatedAt time.Time `json:"-"`
}

// JustUpdated reports whether the transient marker is still live.
func (m LocalMessage) JustUpdated(clock Clock, ttl time.Duration) bool {
	if m.JustUpdatedAt.IsZero() {
		return false
	}
	return clock.Now().Sub(m.JustUpdatedAt) < ttl
}

// NewProvisional builds the client-local copy inserted before the write
// call is issued. The temporary id is never sent to the server.
func NewProvisional(sessionID uint, senderType, messageType, text string, now time.Time) LocalMessage {
	return LocalMessage{
		ChatMessage: models.ChatMessage{
			SessionID:   sessionID,
			SenderType:  senderType,
			MessageType: messageType,
			Text:        text,
			CreatedAt:   now,
		},
		TempID:  uuid.NewString(),
		Pending: true,
	}
}

// The reducers below are pure functions over the message list, callable
// from any concurrency model. Both the user-input path and the stream
// reconciliation path go through them; neither ever blind-appends and
// dedupes afterwards.

// ApplyLocalSend appends a provisional message.
func ApplyLocalSend(list []LocalMessage, m LocalMessage) []LocalMessage {
	out := make([]LocalMessage, len(list), len(list)+1)
	copy(out, list)
	return append(out, m)
}

// ApplyServerConfirm replaces the provisional identified by tempID in place
// (same index) with the server-confirmed row. Lookup is by identity, not by
// position: a concurrent remote merge may have moved or removed the
// provisional. If it is gone, the confirmed row is appended unless the
// merge already delivered it, so the list never holds both a provisional
// and a confirmed copy of the same logical message.
func ApplyServerConfirm(list []LocalMessage, tempID string, confirmed models.ChatMessage, now time.Time) []LocalMessage {
	out := make([]LocalMessage, len(list))
	copy(out, list)
	for i := range out {
		if out[i].TempID == tempID {
			out[i] = LocalMessage{ChatMessage: confirmed, JustUpdatedAt: now}
			return out
		}
	}
	for i := range out {
		if out[i].ID == confirmed.ID {
			return out
		}
	}
	return append(out, LocalMessage{ChatMessage: confirmed, JustUpdatedAt: now})
}

// RemoveProvisional drops a failed optimistic send.
func RemoveProvisional(list []LocalMessage, tempID string) []LocalMessage {
	out := make([]LocalMessage, 0, len(list))
	for _, m := range list {
		if m.TempID == tempID {
			continue
		}
		out = append(out, m)
	}
	return out
}

// ApplyRemoteMerge replaces the list with the server's view. The server is
// the source of truth for ordering and content, so this is a full replace;
// echo suppression guarantees a merge cannot race the confirmation of a
// message sent inside the suppression window.
func ApplyRemoteMerge(_ []LocalMessage, server []models.ChatMessage) []LocalMessage {
	out := make([]LocalMessage, 0, len(server))
	for _, m := range server {
		out = append(out, LocalMessage{ChatMessage: m})
	}
	return out
}
