package domain

import "fmt"

// OrderStatus is the lifecycle state of a warehouse order
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusScheduled OrderStatus = "scheduled"
	StatusRejected  OrderStatus = "rejected"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// transitions is the order lifecycle table. Terminal states map to nothing.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusScheduled, StatusRejected},
	StatusScheduled: {StatusCompleted, StatusCancelled},
	StatusRejected:  {},
	StatusCompleted: {},
	StatusCancelled: {},
}

// ParseOrderStatus validates s as an order status
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return status, nil
}

// IsValid returns true for the five known statuses
func (s OrderStatus) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// String returns the string representation of the status
func (s OrderStatus) String() string {
	return string(s)
}

// AllowedTransitions returns the statuses reachable from s in one step
func (s OrderStatus) AllowedTransitions() []OrderStatus {
	allowed := transitions[s]
	out := make([]OrderStatus, len(allowed))
	copy(out, allowed)
	return out
}

// CanTransitionTo checks the lifecycle table
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsActionable reports whether operator actions are offered (pending or scheduled)
func (s OrderStatus) IsActionable() bool {
	return s == StatusPending || s == StatusScheduled
}

// IsTerminal reports whether no further transition is permitted
func (s OrderStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusCompleted || s == StatusCancelled
}

// AllOrderStatuses lists every status in lifecycle order
func AllOrderStatuses() []OrderStatus {
	return []OrderStatus{StatusPending, StatusScheduled, StatusRejected, StatusCompleted, StatusCancelled}
}
