package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/warehouse-state/internal/application"
	"github.com/wms-platform/warehouse-state/internal/domain"
	"github.com/wms-platform/warehouse-state/pkg/logging"
	"github.com/wms-platform/warehouse-state/pkg/middleware"
	wmstesting "github.com/wms-platform/warehouse-state/pkg/testing"
)

var testNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type MockOrderGateway struct {
	mock.Mock
}

func (m *MockOrderGateway) ListOrders(ctx context.Context) ([]domain.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *MockOrderGateway) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

func testOrders() []domain.Order {
	return []domain.Order{
		{
			OrderID:   "IN-1",
			Type:      domain.OrderTypeInbound,
			CreatedAt: testNow,
			UpdatedAt: testNow,
			Status:    domain.StatusCompleted,
			Lines:     []domain.OrderLine{{ItemID: "item7", ItemName: "Pallet wrap", RequestedQuantity: 50, LocationCode: "I009"}},
		},
		{
			OrderID:   "OUT-1",
			Type:      domain.OrderTypeOutbound,
			CreatedAt: testNow,
			Status:    domain.StatusPending,
			Lines:     []domain.OrderLine{{ItemID: "item7", ItemName: "Pallet wrap", RequestedQuantity: 20, LocationCode: "i-009"}},
		},
	}
}

func testLayout() domain.Layout {
	return domain.Layout{
		Width:  1000,
		Height: 700,
		Zones: []domain.Zone{
			{ID: "receiving", Type: domain.ZoneUnloading, Rect: domain.Rect{X: 20, Y: 20, Width: 160, Height: 100}},
			{ID: "outbound", Type: domain.ZoneLoading, Rect: domain.Rect{X: 860, Y: 580, Width: 120, Height: 100}},
			{ID: "charging", Type: domain.ZoneCharging, Rect: domain.Rect{X: 20, Y: 580, Width: 100, Height: 100}},
		},
	}
}

type apiFixture struct {
	router    *gin.Engine
	gateway   *MockOrderGateway
	simulator *application.FleetSimulator
}

func newAPIFixture(t *testing.T, gateway *MockOrderGateway) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, RegisterValidators())

	logger := logging.NewNop()
	if gateway == nil {
		gateway = new(MockOrderGateway)
		gateway.On("ListOrders", mock.Anything).Return(testOrders(), nil)
	}

	simCfg := application.DefaultSimulatorConfig()
	simCfg.WanderProbability = 0
	simCfg.Seed = 7
	fleet := []domain.AMR{{ID: "amr-1", Name: "AMR 1", Position: domain.Point{X: 100, Y: 500}, Status: domain.AMRIdle, BatteryLevel: 80, Speed: 2}}
	sim, err := application.NewFleetSimulator(fleet, testLayout(), simCfg, logger, nil)
	require.NoError(t, err)
	policy, err := application.NewDispatchPolicy(sim, testLayout(), domain.Point{X: 0, Y: 70}, logger)
	require.NoError(t, err)

	orders := application.NewOrderSyncService(gateway, nil, application.OrderSyncConfig{Schedule: "@every 1h", RequestTimeout: time.Second}, logger, nil)
	state := application.NewWarehouseState(application.WarehouseStateDeps{
		Orders:      orders,
		Projections: application.NewProjectionCache(application.NewInventoryProjector(logger)),
		Simulator:   sim,
		Dispatcher:  policy,
		Gateway:     gateway,
		Logger:      logger,
	})
	require.NoError(t, orders.Refresh(context.Background()))

	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig("warehouse-state-test", logger.Logger))
	SetupRoutes(router, NewHandlers(state, logger))

	return &apiFixture{router: router, gateway: gateway, simulator: sim}
}

func (f *apiFixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestGetLocationInventory(t *testing.T) {
	f := newAPIFixture(t, nil)

	w := f.do(http.MethodGet, "/api/v1/locations/i-009/inventory", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "I009", body["locationCode"])
	entries := body["entries"].([]any)
	require.Len(t, entries, 1)
	assert.Equal(t, float64(50), entries[0].(map[string]any)["quantity"])
}

func TestGetLocationInventory_EmptyLocation(t *testing.T) {
	f := newAPIFixture(t, nil)

	w := f.do(http.MethodGet, "/api/v1/locations/Z999/inventory", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["entries"])
}

func TestGetLocationInventory_MalformedCode(t *testing.T) {
	f := newAPIFixture(t, nil)

	w := f.do(http.MethodGet, "/api/v1/locations/"+url.PathEscape("창고1")+"/inventory", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w)["code"])
}

func TestGetOccupancy(t *testing.T) {
	f := newAPIFixture(t, nil)

	w := f.do(http.MethodGet, "/api/v1/locations/occupancy", "")
	require.Equal(t, http.StatusOK, w.Code)

	locations := decode(t, w)["locations"].([]any)
	require.Len(t, locations, 1)
	loc := locations[0].(map[string]any)
	assert.Equal(t, "I009", loc["locationCode"])
	assert.Equal(t, float64(50), loc["quantity"])
}

func TestListOrders_IncludesActionsAndSyncStatus(t *testing.T) {
	f := newAPIFixture(t, nil)

	w := f.do(http.MethodGet, "/api/v1/orders", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	orders := body["orders"].([]any)
	require.Len(t, orders, 2)

	byID := map[string]map[string]any{}
	for _, o := range orders {
		m := o.(map[string]any)
		byID[m["orderId"].(string)] = m
	}
	assert.Equal(t, []any{"approve", "decline"}, byID["OUT-1"]["availableActions"])
	assert.Equal(t, []any{}, byID["IN-1"]["availableActions"])

	sync := body["sync"].(map[string]any)
	assert.Equal(t, false, sync["stale"])
	assert.Equal(t, float64(2), sync["orderCount"])
}

func TestSyncOrders_UpstreamFailure(t *testing.T) {
	gateway := new(MockOrderGateway)
	gateway.On("ListOrders", mock.Anything).Return(testOrders(), nil).Once()
	gateway.On("ListOrders", mock.Anything).Return(nil, errors.New("connection refused")).Once()
	f := newAPIFixture(t, gateway)

	w := f.do(http.MethodPost, "/api/v1/orders/sync", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = f.do(http.MethodGet, "/api/v1/orders", "")
	body := decode(t, w)
	assert.Len(t, body["orders"], 2, "last good list is still served")
	assert.Equal(t, true, body["sync"].(map[string]any)["stale"])
}

func TestRequestTransition(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.gateway.On("UpdateOrderStatus", mock.Anything, "OUT-1", domain.StatusScheduled).Return(nil).Once()

	w := f.do(http.MethodPost, "/api/v1/orders/OUT-1/transitions", `{"status":"scheduled"}`)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "scheduled", body["status"])
	assert.Equal(t, []any{"complete", "cancel"}, body["availableActions"])
	f.gateway.AssertExpectations(t)
}

func TestRequestTransition_Invalid(t *testing.T) {
	f := newAPIFixture(t, nil)

	w := f.do(http.MethodPost, "/api/v1/orders/OUT-1/transitions", `{"status":"completed"}`)
	require.Equal(t, http.StatusConflict, w.Code)

	body := decode(t, w)
	assert.Equal(t, "INVALID_TRANSITION", body["code"])
	details := body["details"].(map[string]any)
	assert.Equal(t, "pending", details["from"])
	assert.Equal(t, "completed", details["to"])
	assert.Equal(t, "OUT-1", details["orderId"])
	f.gateway.AssertNotCalled(t, "UpdateOrderStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestTransition_UnknownStatus(t *testing.T) {
	f := newAPIFixture(t, nil)

	w := f.do(http.MethodPost, "/api/v1/orders/OUT-1/transitions", `{"status":"shipped"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decode(t, w)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.Contains(t, body["details"], "status")
}

func TestRequestTransition_UnknownOrder(t *testing.T) {
	f := newAPIFixture(t, nil)

	w := f.do(http.MethodPost, "/api/v1/orders/NOPE/transitions", `{"status":"scheduled"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestTransition_UpstreamFailure(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.gateway.On("UpdateOrderStatus", mock.Anything, "OUT-1", domain.StatusScheduled).Return(errors.New("502 bad gateway")).Once()

	w := f.do(http.MethodPost, "/api/v1/orders/OUT-1/transitions", `{"status":"scheduled"}`)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", decode(t, w)["code"])

	w = f.do(http.MethodGet, "/api/v1/orders", "")
	for _, o := range decode(t, w)["orders"].([]any) {
		m := o.(map[string]any)
		if m["orderId"] == "OUT-1" {
			assert.Equal(t, "pending", m["status"])
		}
	}
}

func TestRequestTransition_UpstreamNotFound(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.gateway.On("UpdateOrderStatus", mock.Anything, "OUT-1", domain.StatusScheduled).
		Return(fmt.Errorf("%w: OUT-1", domain.ErrOrderNotFound)).Once()

	w := f.do(http.MethodPost, "/api/v1/orders/OUT-1/transitions", `{"status":"scheduled"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RESOURCE_NOT_FOUND", decode(t, w)["code"])
}

func TestRequestTransition_UpstreamRejected(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.gateway.On("UpdateOrderStatus", mock.Anything, "OUT-1", domain.StatusScheduled).
		Return(fmt.Errorf("%w: status 409", domain.ErrStatusUpdateRejected)).Once()

	w := f.do(http.MethodPost, "/api/v1/orders/OUT-1/transitions", `{"status":"scheduled"}`)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", decode(t, w)["code"])
}

func TestApplyAction(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.gateway.On("UpdateOrderStatus", mock.Anything, "OUT-1", domain.StatusRejected).Return(nil).Once()

	w := f.do(http.MethodPost, "/api/v1/orders/OUT-1/actions/decline", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "rejected", decode(t, w)["status"])

	w = f.do(http.MethodPost, "/api/v1/orders/OUT-1/actions/explode", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDispatchOrder(t *testing.T) {
	f := newAPIFixture(t, nil)

	w := f.do(http.MethodPost, "/api/v1/orders/OUT-1/dispatch", "")
	require.Equal(t, http.StatusAccepted, w.Code)

	body := decode(t, w)
	assert.Equal(t, "amr-1", body["id"])
	assert.Equal(t, "I009 outbound", body["currentTaskLabel"])
	assert.Equal(t, "moving", body["status"])

	w = f.do(http.MethodPost, "/api/v1/orders/IN-1/dispatch", "")
	assert.Equal(t, http.StatusConflict, w.Code, "completed orders are not actionable")
}

func TestDispatch_NoIdleAMRIsNotAnError(t *testing.T) {
	f := newAPIFixture(t, nil)

	w := f.do(http.MethodPost, "/api/v1/dispatch", `{"taskType":"inbound","locationLabel":"A01"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["dispatched"])
	assert.Equal(t, "amr-1", body["amrId"])
	assert.Equal(t, "A01 inbound", body["taskLabel"])

	w = f.do(http.MethodPost, "/api/v1/dispatch", `{"taskType":"INBOUND","locationLabel":"A02"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, false, body["dispatched"])
	assert.NotContains(t, body, "amrId")
}

func TestDispatch_InvalidTaskType(t *testing.T) {
	f := newAPIFixture(t, nil)

	w := f.do(http.MethodPost, "/api/v1/dispatch", `{"taskType":"sideways","locationLabel":"A01"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["details"], "taskType")
}

func TestMoveAMR(t *testing.T) {
	f := newAPIFixture(t, nil)

	w := f.do(http.MethodPost, "/api/v1/amrs/amr-1/move", `{"x":10,"y":0}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	body := decode(t, w)
	assert.Equal(t, "moving", body["status"])
	assert.Equal(t, map[string]any{"x": float64(10), "y": float64(0)}, body["target"])

	w = f.do(http.MethodPost, "/api/v1/amrs/amr-1/move", `{"x":10}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/v1/amrs/amr-9/move", `{"x":10,"y":20}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChargingCommands(t *testing.T) {
	f := newAPIFixture(t, nil)

	w := f.do(http.MethodPost, "/api/v1/amrs/amr-1/charging", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "charging", decode(t, w)["status"])

	w = f.do(http.MethodDelete, "/api/v1/amrs/amr-1/charging", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "idle", decode(t, w)["status"])

	w = f.do(http.MethodDelete, "/api/v1/amrs/amr-1/charging", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListAMRs(t *testing.T) {
	f := newAPIFixture(t, nil)

	w := f.do(http.MethodGet, "/api/v1/amrs", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["amrs"], 1)
}

func TestStreamAMRs(t *testing.T) {
	f := newAPIFixture(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/amrs/stream", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		f.router.ServeHTTP(w, req)
		close(done)
	}()

	wmstesting.AssertEventually(t, func() bool {
		return f.simulator.SubscriberCount() == 1
	}, time.Second, "stream should subscribe")

	f.simulator.Tick()
	cancel()
	<-done

	assert.Equal(t, 0, f.simulator.SubscriberCount(), "stream should unsubscribe on disconnect")
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/event-stream"))
	assert.GreaterOrEqual(t, strings.Count(w.Body.String(), "event:amrs"), 1)
	assert.Contains(t, w.Body.String(), `"id":"amr-1"`)
}

func TestUnknownRoute(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.router.NoRoute(middleware.NoRoute())

	w := f.do(http.MethodGet, "/api/v1/forklifts", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
