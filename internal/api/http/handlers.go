package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/warehouse-state/internal/application"
	"github.com/wms-platform/warehouse-state/internal/domain"
	"github.com/wms-platform/warehouse-state/pkg/errors"
	"github.com/wms-platform/warehouse-state/pkg/logging"
	"github.com/wms-platform/warehouse-state/pkg/middleware"
)

// Handlers holds the HTTP handlers for the warehouse state service
type Handlers struct {
	state        *application.WarehouseState
	logger       *logging.Logger
	streamBuffer int
}

// NewHandlers creates a new Handlers instance
func NewHandlers(state *application.WarehouseState, logger *logging.Logger) *Handlers {
	return &Handlers{
		state:        state,
		logger:       logger.WithComponent("http"),
		streamBuffer: 4,
	}
}

// WithStreamBuffer sets the per-client snapshot buffer of the AMR stream
func (h *Handlers) WithStreamBuffer(n int) *Handlers {
	if n > 0 {
		h.streamBuffer = n
	}
	return h
}

func (h *Handlers) fail(c *gin.Context, err error) {
	middleware.AbortWithAppError(c, toAppError(err))
}

// ProjectionResponse is the full inventory projection
type ProjectionResponse struct {
	Locations domain.Projection      `json:"locations"`
	Stats     domain.ProjectionStats `json:"stats"`
}

// GetProjection handles GET /api/v1/locations
func (h *Handlers) GetProjection(c *gin.Context) {
	projection, stats := h.state.Projection()
	c.JSON(http.StatusOK, ProjectionResponse{Locations: projection, Stats: stats})
}

// GetOccupancy handles GET /api/v1/locations/occupancy
func (h *Handlers) GetOccupancy(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"locations": h.state.OccupiedLocations()})
}

type locationURI struct {
	Code string `uri:"code" binding:"required,location_code"`
}

// GetLocationInventory handles GET /api/v1/locations/:code/inventory
func (h *Handlers) GetLocationInventory(c *gin.Context) {
	var uri locationURI
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.AbortWithAppError(c, errors.ErrValidationWithFields(
			"malformed location code", middleware.ValidationErrorFormatter(err)))
		return
	}
	code := uri.Code

	entries, err := h.state.QueryLocation(code)
	if err != nil {
		h.fail(c, err)
		return
	}
	if entries == nil {
		entries = []domain.InventoryProjectionEntry{}
	}

	c.JSON(http.StatusOK, gin.H{
		"locationCode": domain.NormalizeLocationCode(code),
		"entries":      entries,
	})
}

// OrderView is an order plus the actions an operator may take on it
type OrderView struct {
	domain.Order
	AvailableActions []domain.OrderAction `json:"availableActions"`
}

func toOrderView(order domain.Order) OrderView {
	actions := domain.AvailableActions(order.Status)
	if actions == nil {
		actions = []domain.OrderAction{}
	}
	return OrderView{Order: order, AvailableActions: actions}
}

// ListOrders handles GET /api/v1/orders
func (h *Handlers) ListOrders(c *gin.Context) {
	orders, status := h.state.Orders()

	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toOrderView(o))
	}

	c.JSON(http.StatusOK, gin.H{"orders": views, "sync": status})
}

// SyncOrders handles POST /api/v1/orders/sync
func (h *Handlers) SyncOrders(c *gin.Context) {
	status, err := h.state.RefreshOrders(c.Request.Context())
	if err != nil {
		appErr := errors.ErrServiceUnavailable("order API").
			WithDetail("stale", "true").
			Wrap(err)
		middleware.AbortWithAppError(c, appErr)
		return
	}

	c.JSON(http.StatusOK, status)
}

// TransitionRequest is the body of POST /api/v1/orders/:orderId/transitions
type TransitionRequest struct {
	Status string `json:"status" binding:"required,order_status"`
}

// RequestTransition handles POST /api/v1/orders/:orderId/transitions
func (h *Handlers) RequestTransition(c *gin.Context) {
	var req TransitionRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	order, err := h.state.RequestTransition(c.Request.Context(), c.Param("orderId"), domain.OrderStatus(req.Status))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderView(order))
}

// ApplyAction handles POST /api/v1/orders/:orderId/actions/:action
func (h *Handlers) ApplyAction(c *gin.Context) {
	action, err := domain.ParseOrderAction(c.Param("action"))
	if err != nil {
		h.fail(c, err)
		return
	}

	order, err := h.state.ApplyAction(c.Request.Context(), c.Param("orderId"), action)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderView(order))
}

// DispatchOrder handles POST /api/v1/orders/:orderId/dispatch
func (h *Handlers) DispatchOrder(c *gin.Context) {
	amr, err := h.state.DispatchOrder(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusAccepted, amr)
}

// ListAMRs handles GET /api/v1/amrs
func (h *Handlers) ListAMRs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"amrs": h.state.ListAMRs()})
}

// StreamAMRs handles GET /api/v1/amrs/stream as server-sent events.
// Every fleet snapshot is sent as an "amrs" event until the client leaves.
func (h *Handlers) StreamAMRs(c *gin.Context) {
	snapshots, unsubscribe := h.state.SubscribeAMRSnapshots(h.streamBuffer)
	defer unsubscribe()

	h.logger.Debug("AMR stream opened", "clientIp", c.ClientIP())
	defer h.logger.Debug("AMR stream closed", "clientIp", c.ClientIP())

	// The stream outlives the server's write timeout
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("amrs", h.state.ListAMRs())
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-snapshots:
			if !ok {
				return
			}
			c.SSEvent("amrs", snapshot)
			c.Writer.Flush()
		}
	}
}

// MoveRequest is the body of POST /api/v1/amrs/:amrId/move
type MoveRequest struct {
	X *float64 `json:"x" binding:"required"`
	Y *float64 `json:"y" binding:"required"`
}

// MoveAMR handles POST /api/v1/amrs/:amrId/move
func (h *Handlers) MoveAMR(c *gin.Context) {
	var req MoveRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	amr, err := h.state.MoveAMR(c.Request.Context(), c.Param("amrId"), *req.X, *req.Y)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusAccepted, amr)
}

// StartCharging handles POST /api/v1/amrs/:amrId/charging
func (h *Handlers) StartCharging(c *gin.Context) {
	amr, err := h.state.StartCharging(c.Request.Context(), c.Param("amrId"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, amr)
}

// StopCharging handles DELETE /api/v1/amrs/:amrId/charging
func (h *Handlers) StopCharging(c *gin.Context) {
	amr, err := h.state.StopCharging(c.Request.Context(), c.Param("amrId"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, amr)
}

// DispatchRequest is the body of POST /api/v1/dispatch
type DispatchRequest struct {
	TaskType      string `json:"taskType" binding:"required,task_type"`
	LocationLabel string `json:"locationLabel" binding:"required"`
}

// DispatchResponse reports which AMR, if any, took the task
type DispatchResponse struct {
	Dispatched bool      `json:"dispatched"`
	AMRID      string    `json:"amrId,omitempty"`
	TaskLabel  string    `json:"taskLabel"`
	At         time.Time `json:"at"`
}

// Dispatch handles POST /api/v1/dispatch. No idle AMR is not an error.
func (h *Handlers) Dispatch(c *gin.Context) {
	var req DispatchRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	task, err := domain.ParseTaskType(req.TaskType)
	if err != nil {
		h.fail(c, err)
		return
	}

	amrID, ok, err := h.state.Dispatch(c.Request.Context(), task, req.LocationLabel)
	if err != nil {
		h.fail(c, err)
		return
	}

	status := http.StatusAccepted
	if !ok {
		status = http.StatusOK
	}
	c.JSON(status, DispatchResponse{
		Dispatched: ok,
		AMRID:      amrID,
		TaskLabel:  application.TaskLabel(task, req.LocationLabel),
		At:         time.Now().UTC(),
	})
}
