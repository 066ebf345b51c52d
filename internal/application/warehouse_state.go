package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/warehouse-state/internal/domain"
	"github.com/wms-platform/warehouse-state/pkg/cloudevents"
	"github.com/wms-platform/warehouse-state/pkg/logging"
	"github.com/wms-platform/warehouse-state/pkg/tracing"
)

// ErrOrderAPIUnavailable wraps a status update that failed in transport, on a 5xx or on an open breaker
var ErrOrderAPIUnavailable = errors.New("order API unavailable")

// WarehouseState composes the projector, lifecycle, simulator and dispatch
// policy for API consumers.
type WarehouseState struct {
	orders       *OrderSyncService
	projections  *ProjectionCache
	simulator    *FleetSimulator
	dispatcher   *DispatchPolicy
	gateway      domain.OrderGateway
	publisher    EventPublisher
	eventFactory *cloudevents.EventFactory
	metrics      MetricsRecorder
	logger       *logging.Logger
	tracer       trace.Tracer
	now          func() time.Time

	transitionMu sync.Mutex
}

// WarehouseStateDeps groups the facade collaborators. Publisher and Metrics may be nil.
type WarehouseStateDeps struct {
	Orders       *OrderSyncService
	Projections  *ProjectionCache
	Simulator    *FleetSimulator
	Dispatcher   *DispatchPolicy
	Gateway      domain.OrderGateway
	Publisher    EventPublisher
	EventFactory *cloudevents.EventFactory
	Metrics      MetricsRecorder
	Logger       *logging.Logger
}

// NewWarehouseState wires the facade and announces projection rebuilds after each order refresh
func NewWarehouseState(deps WarehouseStateDeps) *WarehouseState {
	w := &WarehouseState{
		orders:       deps.Orders,
		projections:  deps.Projections,
		simulator:    deps.Simulator,
		dispatcher:   deps.Dispatcher,
		gateway:      deps.Gateway,
		publisher:    deps.Publisher,
		eventFactory: deps.EventFactory,
		metrics:      deps.Metrics,
		logger:       deps.Logger.WithComponent("warehouse-state"),
		tracer:       otel.Tracer("warehouse-state"),
		now:          time.Now,
	}
	if w.publisher == nil {
		w.publisher = nopPublisher{}
	}
	if w.metrics == nil {
		w.metrics = nopMetrics{}
	}
	if w.eventFactory == nil {
		w.eventFactory = cloudevents.NewEventFactory("/warehouse-state")
	}

	w.orders.OnRefresh(w.onOrdersRefreshed)
	return w
}

func (w *WarehouseState) onOrdersRefreshed(ctx context.Context, orders []domain.Order) {
	projection, stats, hit := w.projections.Get(orders)
	w.metrics.RecordProjection(hit, stats.LinesSkipped, stats.ClampedPairs, len(projection))
	if hit {
		return
	}

	w.publish(ctx, w.eventFactory.CreateProjectionRebuiltEvent(ctx, cloudevents.InventoryProjectionRebuiltData{
		OrdersReplayed:    stats.OrdersReplayed,
		LinesApplied:      stats.LinesApplied,
		LinesSkipped:      stats.LinesSkipped,
		ClampedPairs:      stats.ClampedPairs,
		OccupiedLocations: len(projection),
	}))
}

func (w *WarehouseState) currentProjection() (domain.Projection, domain.ProjectionStats) {
	start := w.now()
	projection, stats, hit := w.projections.Get(w.orders.Orders())
	w.metrics.RecordProjection(hit, stats.LinesSkipped, stats.ClampedPairs, len(projection))
	if !hit {
		w.logger.Performance(context.Background(), "inventory.project", w.now().Sub(start), true, map[string]any{
			"ordersReplayed": stats.OrdersReplayed,
			"linesSkipped":   stats.LinesSkipped,
			"clampedPairs":   stats.ClampedPairs,
		})
	}
	return projection, stats
}

// QueryLocation returns the projected entries for one slot. Malformed codes yield
// domain.ErrMalformedLocationCode; a valid but empty slot yields no entries.
func (w *WarehouseState) QueryLocation(code string) ([]domain.InventoryProjectionEntry, error) {
	location, err := domain.ParseLocationCode(code)
	if err != nil {
		return nil, err
	}
	projection, _ := w.currentProjection()
	return projection.Entries(location), nil
}

// Projection returns a copy of the full projection and the stats of its replay
func (w *WarehouseState) Projection() (domain.Projection, domain.ProjectionStats) {
	projection, stats := w.currentProjection()
	return projection.Clone(), stats
}

// LocationOccupancy is the total quantity stored at one slot
type LocationOccupancy struct {
	LocationCode domain.LocationCode `json:"locationCode"`
	Quantity     int                 `json:"quantity"`
	Items        int                 `json:"items"`
}

// OccupiedLocations lists every slot holding stock, sorted by code
func (w *WarehouseState) OccupiedLocations() []LocationOccupancy {
	projection, _ := w.currentProjection()
	totals := projection.Occupancy()

	out := make([]LocationOccupancy, 0, len(totals))
	for code, qty := range totals {
		out = append(out, LocationOccupancy{LocationCode: code, Quantity: qty, Items: len(projection[code])})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocationCode < out[j].LocationCode })
	return out
}

// Orders returns the cached order list and its freshness
func (w *WarehouseState) Orders() ([]domain.Order, SyncStatus) {
	return w.orders.Orders(), w.orders.Status()
}

// RefreshOrders forces an order poll
func (w *WarehouseState) RefreshOrders(ctx context.Context) (SyncStatus, error) {
	err := w.orders.Refresh(ctx)
	return w.orders.Status(), err
}

// ListAMRs returns a snapshot of the fleet
func (w *WarehouseState) ListAMRs() []domain.AMR {
	return w.simulator.Snapshot()
}

// SubscribeAMRUpdates calls callback with every published snapshot until
// unsubscribe is called. callback runs on its own goroutine, never the tick loop.
func (w *WarehouseState) SubscribeAMRUpdates(callback func([]domain.AMR)) (unsubscribe func()) {
	ch, unsub := w.simulator.Subscribe(0)
	go func() {
		for snapshot := range ch {
			callback(snapshot)
		}
	}()
	return unsub
}

// SubscribeAMRSnapshots is the channel form of SubscribeAMRUpdates
func (w *WarehouseState) SubscribeAMRSnapshots(buffer int) (<-chan []domain.AMR, func()) {
	return w.simulator.Subscribe(buffer)
}

// RequestTransition validates the transition locally, sends it to the order API
// and updates the cache only once the API accepts it.
func (w *WarehouseState) RequestTransition(ctx context.Context, orderID string, target domain.OrderStatus) (domain.Order, error) {
	return tracing.TracedOperation(ctx, w.tracer, "warehouse.RequestTransition", func(ctx context.Context) (domain.Order, error) {
		return w.requestTransition(ctx, orderID, target)
	}, tracing.OrderSpanAttributes(orderID, "", string(target))...)
}

func (w *WarehouseState) requestTransition(ctx context.Context, orderID string, target domain.OrderStatus) (domain.Order, error) {
	w.transitionMu.Lock()
	defer w.transitionMu.Unlock()

	log := w.logger.WithOperation("order.transition").WithContext(ctx).
		WithFields(map[string]any{"orderId": orderID, "targetStatus": string(target)})

	order, ok := w.orders.Get(orderID)
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
	}

	result, err := domain.Transition(order, target, w.now())
	if err != nil {
		w.metrics.RecordTransition(string(order.Status), string(target), "rejected")
		log.WithError(err).Warn("Transition rejected")
		return result.Order, err
	}
	if !result.Changed {
		w.metrics.RecordTransition(string(order.Status), string(target), "noop")
		log.Debug(result.Message)
		return result.Order, nil
	}

	if err := w.gateway.UpdateOrderStatus(ctx, orderID, target); err != nil {
		w.metrics.RecordTransition(string(result.From), string(target), "upstream_error")
		if errors.Is(err, domain.ErrOrderNotFound) || errors.Is(err, domain.ErrStatusUpdateRejected) {
			log.WithError(err).Warn("Order API refused status update")
			return order, err
		}
		log.WithError(err).Error("Order API status update failed")
		return order, fmt.Errorf("%w: %w", ErrOrderAPIUnavailable, err)
	}

	w.orders.Replace(result.Order)
	w.metrics.RecordTransition(string(result.From), string(target), "applied")

	w.logger.Audit(ctx, "order.transition", "order", orderID, map[string]any{
		"from":    string(result.From),
		"to":      string(target),
		"message": result.Message,
	})

	w.publish(ctx, w.eventFactory.CreateOrderStatusChangedEvent(ctx, cloudevents.OrderStatusChangedData{
		OrderID:        orderID,
		PreviousStatus: string(result.From),
		NewStatus:      string(target),
		Message:        result.Message,
		ChangedAt:      result.Order.UpdatedAt,
	}))

	return result.Order, nil
}

// ApplyAction runs a named operator action (approve, decline, complete, cancel)
func (w *WarehouseState) ApplyAction(ctx context.Context, orderID string, action domain.OrderAction) (domain.Order, error) {
	target := action.TargetStatus()
	if target == "" {
		return domain.Order{}, fmt.Errorf("%w: %q", domain.ErrInvalidAction, action)
	}
	return w.RequestTransition(ctx, orderID, target)
}

// Dispatch assigns the first idle AMR. ok is false when no AMR is available.
func (w *WarehouseState) Dispatch(ctx context.Context, task domain.TaskType, locationLabel string) (string, bool, error) {
	amr, err := w.dispatch(ctx, task, locationLabel, "")
	if errors.Is(err, domain.ErrNoAvailableAMR) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return amr.ID, true, nil
}

// DispatchOrder dispatches an AMR for an actionable order. The task type follows
// the order type and the label is the order's first location code.
func (w *WarehouseState) DispatchOrder(ctx context.Context, orderID string) (domain.AMR, error) {
	order, ok := w.orders.Get(orderID)
	if !ok {
		return domain.AMR{}, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
	}
	if !order.Status.IsActionable() {
		return domain.AMR{}, fmt.Errorf("%w: %s is %s", domain.ErrOrderNotActionable, orderID, order.Status)
	}

	label := order.PrimaryLocation()
	if code, err := domain.ParseLocationCode(label); err == nil {
		label = code.String()
	}
	if label == "" {
		label = orderID
	}

	return w.dispatch(ctx, domain.TaskTypeFor(order.Type), label, orderID)
}

func (w *WarehouseState) dispatch(ctx context.Context, task domain.TaskType, label, orderID string) (domain.AMR, error) {
	log := w.logger.WithOperation("amr.dispatch")

	amr, err := w.dispatcher.Assign(task, label)
	if err == nil || errors.Is(err, domain.ErrNoAvailableAMR) {
		w.metrics.RecordDispatch(string(task), err == nil)
	}
	if err != nil {
		log.WithContext(ctx).WithError(err).Debug("Dispatch not assigned", "taskType", string(task), "label", label)
		return domain.AMR{}, err
	}

	log.Event(ctx, "amr.dispatched", map[string]any{
		"amrId":    amr.ID,
		"taskType": string(task),
		"label":    amr.CurrentTaskLabel,
		"orderId":  orderID,
	})

	w.publish(ctx, w.eventFactory.CreateAMRDispatchedEvent(ctx, cloudevents.AMRDispatchedData{
		AMRID:    amr.ID,
		TaskType: string(task),
		Label:    amr.CurrentTaskLabel,
		TargetX:  amr.Target.X,
		TargetY:  amr.Target.Y,
		OrderID:  orderID,
	}))
	return amr, nil
}

// MoveAMR forces an AMR towards (x, y)
func (w *WarehouseState) MoveAMR(ctx context.Context, amrID string, x, y float64) (domain.AMR, error) {
	amr, err := w.simulator.MoveTo(amrID, x, y)
	w.auditAMRCommand(ctx, "amr.move", amrID, err, map[string]any{"x": x, "y": y})
	return amr, err
}

// StartCharging sends an idle AMR to charge
func (w *WarehouseState) StartCharging(ctx context.Context, amrID string) (domain.AMR, error) {
	amr, err := w.simulator.StartCharging(amrID)
	w.auditAMRCommand(ctx, "amr.charging.start", amrID, err, nil)
	return amr, err
}

// StopCharging returns a charging AMR to idle
func (w *WarehouseState) StopCharging(ctx context.Context, amrID string) (domain.AMR, error) {
	amr, err := w.simulator.StopCharging(amrID)
	w.auditAMRCommand(ctx, "amr.charging.stop", amrID, err, nil)
	return amr, err
}

func (w *WarehouseState) auditAMRCommand(ctx context.Context, operation, amrID string, err error, details map[string]any) {
	if err != nil {
		w.logger.WithOperation(operation).WithContext(ctx).WithError(err).Warn("AMR command refused", "amrId", amrID)
		return
	}
	w.logger.Audit(ctx, operation, "amr", amrID, details)
}

// publish never fails the caller; event delivery is best effort
func (w *WarehouseState) publish(ctx context.Context, event *cloudevents.WMSCloudEvent) {
	if err := w.publisher.Publish(ctx, event); err != nil {
		w.logger.WithContext(ctx).WithError(err).Warn("Failed to publish event",
			"eventType", event.Type,
			"subject", event.Subject,
		)
	}
}
