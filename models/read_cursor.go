package models

import "time"

// ChatReadCursor tracks per-viewer read progress in a session.
// LastReadMessageID is monotonic: the highest message ID the viewer has
// acknowledged. The cursor is the only derived-state input written back to
// the server; unread counts are recomputed from messages + cursor.
type ChatReadCursor struct {
	SessionID         uint      `gorm:"primaryKey" json:"session_id"`
	Viewer            string    `gorm:"primaryKey;type:varchar(20)" json:"viewer"`
	LastReadMessageID uint      `gorm:"not null;default:0" json:"last_read_message_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
