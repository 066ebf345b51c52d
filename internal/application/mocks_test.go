package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/warehouse-state/internal/domain"
	"github.com/wms-platform/warehouse-state/pkg/cloudevents"
	"github.com/wms-platform/warehouse-state/pkg/logging"
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

type MockSnapshotRepository struct {
	mock.Mock
}

func (m *MockSnapshotRepository) Save(ctx context.Context, snapshot domain.OrderSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockSnapshotRepository) Load(ctx context.Context) (*domain.OrderSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OrderSnapshot), args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*cloudevents.WMSCloudEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event *cloudevents.WMSCloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}

type recordingMetrics struct {
	nopMetrics
	mu          sync.Mutex
	transitions []string
	dispatches  map[bool]int
	syncs       map[bool]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{dispatches: map[bool]int{}, syncs: map[bool]int{}}
}

func (m *recordingMetrics) RecordTransition(from, to, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, from+">"+to+":"+result)
}

func (m *recordingMetrics) RecordDispatch(_ string, dispatched bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatches[dispatched]++
}

func (m *recordingMetrics) RecordOrderSync(success bool, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncs[success]++
}

// testLayout puts the receiving dock top-left and the outbound dock bottom-right
func testLayout() domain.Layout {
	return domain.Layout{
		Width:  1000,
		Height: 700,
		Zones: []domain.Zone{
			{ID: "receiving", Name: "Receiving Dock", Type: domain.ZoneUnloading, Rect: domain.Rect{X: 20, Y: 20, Width: 160, Height: 100}},
			{ID: "outbound", Name: "Outbound Dock", Type: domain.ZoneLoading, Rect: domain.Rect{X: 860, Y: 580, Width: 120, Height: 100}},
			{ID: "charging", Name: "Charging Station", Type: domain.ZoneCharging, Rect: domain.Rect{X: 20, Y: 580, Width: 100, Height: 100}},
			{ID: "A", Name: "Rack A", Type: domain.ZoneStorage, Rect: domain.Rect{X: 300, Y: 100, Width: 80, Height: 200}},
		},
	}
}

func idleAMR(id string, x, y float64) domain.AMR {
	return domain.AMR{
		ID:           id,
		Name:         "AMR " + id,
		Position:     domain.Point{X: x, Y: y},
		Status:       domain.AMRIdle,
		BatteryLevel: 80,
		Speed:        2,
	}
}

// quietConfig disables wandering so ticks are deterministic
func quietConfig() SimulatorConfig {
	cfg := DefaultSimulatorConfig()
	cfg.WanderProbability = 0
	cfg.Seed = 42
	cfg.TickInterval = 5 * time.Millisecond
	return cfg
}

func newTestSimulator(t *testing.T, fleet ...domain.AMR) *FleetSimulator {
	t.Helper()
	sim, err := NewFleetSimulator(fleet, testLayout(), quietConfig(), logging.NewNop(), nil)
	require.NoError(t, err)
	return sim
}

func completedOrder(id string, typ domain.OrderType, touched time.Time, lines ...domain.OrderLine) domain.Order {
	return domain.Order{
		OrderID:   id,
		Type:      typ,
		CompanyID: "CMP-1",
		CreatedAt: touched,
		UpdatedAt: touched,
		Status:    domain.StatusCompleted,
		Lines:     lines,
	}
}

func line(item, name string, qty int, code string) domain.OrderLine {
	return domain.OrderLine{ItemID: item, ItemName: name, RequestedQuantity: qty, LocationCode: code}
}
