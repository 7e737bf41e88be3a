package models

import "time"

type Table struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	RestaurantID     uint      `gorm:"index;not null" json:"restaurant_id"`
	TableNumber      string    `gorm:"type:varchar(50);not null" json:"table_number"`
	CurrentSessionID *uint     `gorm:"index" json:"current_session_id,omitempty"`
	Status           string    `gorm:"type:varchar(20);not null;default:'EMPTY'" json:"status"`
	CreatedAt        time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null" json:"updated_at"`
}
