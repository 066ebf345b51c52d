package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wms-platform/warehouse-state/pkg/logging"
)

// EventFactory creates CloudEvents for a single source
type EventFactory struct {
	source string
	now    func() time.Time
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source, now: time.Now}
}

// CreateEvent creates a new envelope. The correlation ID is taken from ctx when present.
func (f *EventFactory) CreateEvent(ctx context.Context, eventType, subject string, data interface{}) *WMSCloudEvent {
	event := &WMSCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            f.now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}

	if ctx != nil {
		if v, ok := ctx.Value(logging.CorrelationIDKey).(string); ok {
			event.CorrelationID = v
		}
	}

	return event
}

// CreateOrderStatusChangedEvent creates a wms.order.status-changed event
func (f *EventFactory) CreateOrderStatusChangedEvent(ctx context.Context, data OrderStatusChangedData) *WMSCloudEvent {
	event := f.CreateEvent(ctx, OrderStatusChanged, "order/"+data.OrderID, data)
	event.OrderID = data.OrderID
	return event
}

// CreateAMRDispatchedEvent creates a wms.amr.dispatched event
func (f *EventFactory) CreateAMRDispatchedEvent(ctx context.Context, data AMRDispatchedData) *WMSCloudEvent {
	event := f.CreateEvent(ctx, AMRDispatched, "amr/"+data.AMRID, data)
	event.AMRID = data.AMRID
	event.OrderID = data.OrderID
	return event
}

// CreateProjectionRebuiltEvent creates a wms.inventory.projection-rebuilt event
func (f *EventFactory) CreateProjectionRebuiltEvent(ctx context.Context, data InventoryProjectionRebuiltData) *WMSCloudEvent {
	return f.CreateEvent(ctx, InventoryProjectionRebuilt, "inventory/projection", data)
}
