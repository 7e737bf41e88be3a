package models

import "fmt"

// Order statuses form a strictly forward state machine:
// PENDING -> COOKING -> SERVED -> PAID, with CANCELLED reachable only from
// PENDING or COOKING. Transitions are staff-driven.
const (
	OrderPending   = "PENDING"
	OrderCooking   = "COOKING"
	OrderServed    = "SERVED"
	OrderPaid      = "PAID"
	OrderCancelled = "CANCELLED"
)

var orderSuccessor = map[string]string{
	OrderPending: OrderCooking,
	OrderCooking: OrderServed,
	OrderServed:  OrderPaid,
}

// NextOrderStatus returns the immediate successor of a status, if any.
func NextOrderStatus(from string) (string, bool) {
	next, ok := orderSuccessor[from]
	return next, ok
}

// CanTransitionOrder reports whether from -> to is a legal transition.
// Only the immediate successor is allowed; CANCELLED is reachable from
// PENDING and COOKING.
func CanTransitionOrder(from, to string) bool {
	if to == OrderCancelled {
		return from == OrderPending || from == OrderCooking
	}
	next, ok := orderSuccessor[from]
	return ok && next == to
}

// ValidateOrderTransition is the shared guard used by both the client
// engine (before any network call) and the server controller.
func ValidateOrderTransition(from, to string) error {
	if !CanTransitionOrder(from, to) {
		return fmt.Errorf("illegal order transition %s -> %s", from, to)
	}
	return nil
}
