package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrInvalidStatus         = errors.New("invalid order status")
	ErrInvalidOrderType      = errors.New("invalid order type")
	ErrInvalidAction         = errors.New("invalid order action")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrMalformedLocationCode = errors.New("malformed location code")
	ErrOrderNotFound         = errors.New("order not found")
	ErrOrderNotActionable    = errors.New("order is not actionable")
	ErrNoAvailableAMR        = errors.New("no AMR available")
	ErrAMRNotFound           = errors.New("AMR not found")
	ErrAMRBusy               = errors.New("AMR is not idle")
	ErrAMRNotCharging        = errors.New("AMR is not charging")
	ErrInvalidTaskType       = errors.New("invalid task type")
	ErrStatusUpdateRejected  = errors.New("order API rejected status update")
)

// InvalidTransitionError names the rejected from/to pair.
// errors.Is(err, ErrInvalidTransition) holds for it.
type InvalidTransitionError struct {
	OrderID string
	From    OrderStatus
	To      OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %s: cannot transition from %s to %s", e.OrderID, e.From, e.To)
}

// Is reports whether target is ErrInvalidTransition
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
