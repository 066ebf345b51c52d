package http

import (
	stderrors "errors"

	"github.com/wms-platform/warehouse-state/internal/application"
	"github.com/wms-platform/warehouse-state/internal/domain"
	"github.com/wms-platform/warehouse-state/pkg/errors"
	"github.com/wms-platform/warehouse-state/pkg/resilience"
)

// toAppError maps engine errors to API errors
func toAppError(err error) *errors.AppError {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}

	var transitionErr *domain.InvalidTransitionError
	if stderrors.As(err, &transitionErr) {
		return errors.ErrInvalidTransition(string(transitionErr.From), string(transitionErr.To)).
			WithDetail("orderId", transitionErr.OrderID).
			Wrap(err)
	}

	switch {
	case stderrors.Is(err, domain.ErrOrderNotFound):
		return errors.ErrNotFound("order").Wrap(err)
	case stderrors.Is(err, domain.ErrStatusUpdateRejected):
		return errors.ErrConflict(err.Error()).Wrap(err)
	case stderrors.Is(err, resilience.ErrCircuitOpen),
		stderrors.Is(err, application.ErrOrderAPIUnavailable):
		return errors.ErrServiceUnavailable("order API").Wrap(err)
	case stderrors.Is(err, domain.ErrAMRNotFound):
		return errors.ErrNotFound("AMR").Wrap(err)
	case stderrors.Is(err, domain.ErrMalformedLocationCode),
		stderrors.Is(err, domain.ErrInvalidStatus),
		stderrors.Is(err, domain.ErrInvalidAction),
		stderrors.Is(err, domain.ErrInvalidTaskType):
		return errors.ErrValidation(err.Error()).Wrap(err)
	case stderrors.Is(err, domain.ErrOrderNotActionable),
		stderrors.Is(err, domain.ErrAMRBusy),
		stderrors.Is(err, domain.ErrAMRNotCharging),
		stderrors.Is(err, domain.ErrNoAvailableAMR):
		return errors.ErrConflict(err.Error()).Wrap(err)
	}

	return errors.FromError(err)
}
