package syncer

import (
	"time"

	"github.com/yeremiapane/restaurant-sync/models"
)

// Derived table display statuses, highest precedence first:
// cleaning > paid > cooking > served > ordering > empty.
const (
	TableCleaning = "CLEANING"
	TablePaid     = "PAID"
	TableCooking  = "COOKING"
	TableServed   = "SERVED"
	TableOrdering = "ORDERING"
	TableEmpty    = "EMPTY"
)

// AttributeOrders filters orders down to the table's current view. An order
// counts if it is stamped with the table's active session id, or — only to
// close the race between order creation and session-id propagation — it is
// not yet stamped with any session and is younger than recency. Orders
// stamped with a different session id are always excluded: they belong to a
// previous occupant.
func AttributeOrders(orders []models.Order, currentSessionID *uint, now time.Time, recency time.Duration) []models.Order {
	if currentSessionID == nil {
		return nil
	}
	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		switch {
		case o.SessionID != nil && *o.SessionID == *currentSessionID:
			out = append(out, o)
		case o.SessionID == nil && now.Sub(o.CreatedAt) <= recency:
			out = append(out, o)
		}
	}
	return out
}

// DeriveTableStatus computes the coarse display status from the attributed
// orders and the reset flag. Derived, never stored.
func DeriveTableStatus(orders []models.Order, reset bool) string {
	if reset {
		return TableCleaning
	}

	var hasPaid, hasCooking, hasServed, hasPending bool
	for _, o := range orders {
		switch o.Status {
		case models.OrderPaid:
			hasPaid = true
		case models.OrderCooking:
			hasCooking = true
		case models.OrderServed:
			hasServed = true
		case models.OrderPending:
			hasPending = true
		}
	}

	switch {
	case hasPaid:
		return TablePaid
	case hasCooking:
		return TableCooking
	case hasServed:
		return TableServed
	case hasPending:
		return TableOrdering
	default:
		return TableEmpty
	}
}

// HasAlert reports whether the session has a customer request no staff
// member has replied to yet: a USER REQUEST message with no later STAFF
// message.
func HasAlert(messages []models.ChatMessage) bool {
	for i := len(messages) - 1; i >= 0; i-- {
		switch {
		case messages[i].SenderType == models.SenderStaff:
			return false
		case messages[i].SenderType == models.SenderUser && messages[i].MessageType == models.MessageRequest:
			return true
		}
	}
	return false
}
