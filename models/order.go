package models

import "time"

// Order belongs to a table and, once session stamping has propagated, to a
// session. SessionID is nullable to tolerate the brief window between order
// creation and session-id propagation (see syncer.AttributeOrders).
type Order struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	SessionID   *uint       `gorm:"index" json:"session_id,omitempty"`
	Session     *Session    `gorm:"foreignKey:SessionID;references:ID" json:"-"`
	TableID     uint        `gorm:"index;not null" json:"table_id"`
	Table       Table       `gorm:"foreignKey:TableID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Status      string      `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	TotalAmount float64     `gorm:"type:decimal(10,2);not null;default:0.00" json:"total_amount"`
	OrderItems  []OrderItem `gorm:"foreignKey:OrderID" json:"order_items"`
	CreatedAt   time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"not null" json:"updated_at"`
}
