package models

import "time"

// Sender roles.
const (
	SenderUser   = "USER"
	SenderStaff  = "STAFF"
	SenderSystem = "SYSTEM"
)

// Message kinds. ORDER messages carry an order snapshot in Metadata and are
// excluded from unread counting.
const (
	MessageText    = "TEXT"
	MessageImage   = "IMAGE"
	MessageOrder   = "ORDER"
	MessageRequest = "REQUEST"
)

// ChatMessage belongs to exactly one session. Rows are immutable once
// created; the ID is server-assigned and auto-incrementing, so ordering by
// insertion is ordering by ID.
type ChatMessage struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	SessionID        uint      `gorm:"index;not null" json:"session_id"`
	Session          Session   `gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	SenderType       string    `gorm:"type:varchar(20);not null" json:"sender_type"`
	MessageType      string    `gorm:"type:varchar(20);not null;default:'TEXT'" json:"message_type"`
	Text             string    `gorm:"type:text" json:"text"`
	TextTranslated   string    `gorm:"type:text" json:"text_translated,omitempty"`
	DetectedLanguage string    `gorm:"type:varchar(10)" json:"detected_language,omitempty"`
	ImageURL         string    `gorm:"type:varchar(255)" json:"image_url,omitempty"`
	Metadata         string    `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt        time.Time `gorm:"not null" json:"created_at"`
}
