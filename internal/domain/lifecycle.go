package domain

import (
	"fmt"
	"strings"
	"time"
)

// TransitionResult is the outcome of a successful Transition call
type TransitionResult struct {
	Order   Order
	From    OrderStatus
	Changed bool
	Message string
}

// Transition applies target to order. Repeating the current status is a no-op
// success. A target outside the lifecycle table yields *InvalidTransitionError
// and the result carries the unchanged order.
func Transition(order Order, target OrderStatus, now time.Time) (TransitionResult, error) {
	from := order.Status

	if !target.IsValid() {
		return TransitionResult{Order: order, From: from}, fmt.Errorf("%w: %q", ErrInvalidStatus, target)
	}

	if from == target {
		return TransitionResult{
			Order:   order,
			From:    from,
			Message: fmt.Sprintf("order %s already %s", order.OrderID, target),
		}, nil
	}

	if !from.CanTransitionTo(target) {
		return TransitionResult{Order: order, From: from}, &InvalidTransitionError{
			OrderID: order.OrderID,
			From:    from,
			To:      target,
		}
	}

	next := order.Clone()
	next.Status = target
	next.UpdatedAt = now.UTC()

	return TransitionResult{
		Order:   next,
		From:    from,
		Changed: true,
		Message: fmt.Sprintf("order %s transitioned from %s to %s", order.OrderID, from, target),
	}, nil
}

// OrderAction is a named operator command on an order
type OrderAction string

const (
	ActionApprove  OrderAction = "approve"
	ActionDecline  OrderAction = "decline"
	ActionComplete OrderAction = "complete"
	ActionCancel   OrderAction = "cancel"
)

var actionTargets = map[OrderAction]OrderStatus{
	ActionApprove:  StatusScheduled,
	ActionDecline:  StatusRejected,
	ActionComplete: StatusCompleted,
	ActionCancel:   StatusCancelled,
}

// ParseOrderAction validates an action name
func ParseOrderAction(s string) (OrderAction, error) {
	a := OrderAction(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := actionTargets[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
	return a, nil
}

// TargetStatus is the status the action requests
func (a OrderAction) TargetStatus() OrderStatus {
	return actionTargets[a]
}

// AvailableActions lists the actions whose target is reachable from s
func AvailableActions(s OrderStatus) []OrderAction {
	var actions []OrderAction
	for _, a := range []OrderAction{ActionApprove, ActionDecline, ActionComplete, ActionCancel} {
		if s.CanTransitionTo(a.TargetStatus()) {
			actions = append(actions, a)
		}
	}
	return actions
}
