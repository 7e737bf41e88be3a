package models

import "time"

const (
	SessionActive = "ACTIVE"
	SessionEnded  = "ENDED"
)

// Session identifies one seating at one table. At most one ACTIVE session
// exists per table at any instant; ending a session clears
// Table.CurrentSessionID in the same transaction.
type Session struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TableID      uint      `gorm:"index;not null" json:"table_id"`
	Table        Table     `gorm:"foreignKey:TableID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	RestaurantID uint      `gorm:"index;not null" json:"restaurant_id"`
	Status       string    `gorm:"type:varchar(20);not null;default:'ACTIVE'" json:"status"`
	GuestCount   int       `gorm:"not null;default:1" json:"guest_count"`
	SessionKey   *string   `gorm:"type:varchar(255)" json:"session_key,omitempty"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}
