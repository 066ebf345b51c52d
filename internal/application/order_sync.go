package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wms-platform/warehouse-state/internal/domain"
	"github.com/wms-platform/warehouse-state/pkg/logging"
)

// SyncStatus describes the freshness of the cached order list
type SyncStatus struct {
	Stale         bool       `json:"stale"`
	OrderCount    int        `json:"orderCount"`
	LastSyncedAt  *time.Time `json:"lastSyncedAt,omitempty"`
	LastAttemptAt *time.Time `json:"lastAttemptAt,omitempty"`
	LastError     string     `json:"lastError,omitempty"`
	Restored      bool       `json:"restored"`
}

// OrderSyncConfig configures order polling
type OrderSyncConfig struct {
	Schedule       string        `json:"schedule"` // robfig/cron spec, e.g. "@every 30s"
	RequestTimeout time.Duration `json:"requestTimeout"`
}

// DefaultOrderSyncConfig polls every 30 seconds
func DefaultOrderSyncConfig() OrderSyncConfig {
	return OrderSyncConfig{
		Schedule:       "@every 30s",
		RequestTimeout: 20 * time.Second,
	}
}

// OrderSyncService keeps the last good order list fetched from the order API.
// A failed fetch keeps the previous list and marks the cache stale.
type OrderSyncService struct {
	gateway   domain.OrderGateway
	snapshots domain.OrderSnapshotRepository
	config    OrderSyncConfig
	logger    *logging.Logger
	metrics   MetricsRecorder
	now       func() time.Time

	refreshMu sync.Mutex
	listeners []func(ctx context.Context, orders []domain.Order)

	mu     sync.RWMutex
	orders []domain.Order
	index  map[string]int
	status SyncStatus

	runMu sync.Mutex
	cron  *cron.Cron
}

// NewOrderSyncService creates the sync service. snapshots may be nil.
func NewOrderSyncService(
	gateway domain.OrderGateway,
	snapshots domain.OrderSnapshotRepository,
	config OrderSyncConfig,
	logger *logging.Logger,
	metrics MetricsRecorder,
) *OrderSyncService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if config.Schedule == "" {
		config.Schedule = DefaultOrderSyncConfig().Schedule
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultOrderSyncConfig().RequestTimeout
	}

	return &OrderSyncService{
		gateway:   gateway,
		snapshots: snapshots,
		config:    config,
		logger:    logger.WithComponent("order-sync"),
		metrics:   metrics,
		now:       time.Now,
		index:     make(map[string]int),
		status:    SyncStatus{Stale: true},
	}
}

// OnRefresh registers fn to run after every successful refresh
func (s *OrderSyncService) OnRefresh(fn func(ctx context.Context, orders []domain.Order)) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Refresh fetches the order list. On failure the previous list stays in place.
func (s *OrderSyncService) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	attempt := s.now().UTC()
	orders, err := s.gateway.ListOrders(ctx)
	if err != nil {
		s.mu.Lock()
		s.status.Stale = true
		s.status.LastAttemptAt = &attempt
		s.status.LastError = err.Error()
		count := len(s.orders)
		s.mu.Unlock()

		s.metrics.RecordOrderSync(false, count)
		s.logger.WithError(err).Warn("Order refresh failed, serving stale orders", "cachedOrders", count)
		return fmt.Errorf("refresh orders: %w", err)
	}

	s.replaceAll(orders, attempt, false)
	s.metrics.RecordOrderSync(true, len(orders))
	s.logger.Debug("Orders refreshed", "orders", len(orders))

	if s.snapshots != nil {
		if err := s.snapshots.Save(ctx, domain.OrderSnapshot{Orders: orders, FetchedAt: attempt}); err != nil {
			s.logger.WithError(err).Warn("Failed to persist order snapshot")
		}
	}

	current := s.Orders()
	for _, fn := range s.listeners {
		fn(ctx, current)
	}
	return nil
}

// Restore loads the persisted snapshot when nothing has been fetched yet.
// The restored list is served as stale until the next successful refresh.
func (s *OrderSyncService) Restore(ctx context.Context) error {
	if s.snapshots == nil {
		return nil
	}

	snapshot, err := s.snapshots.Load(ctx)
	if err != nil {
		return fmt.Errorf("load order snapshot: %w", err)
	}
	if snapshot == nil {
		return nil
	}

	s.mu.RLock()
	synced := s.status.LastSyncedAt != nil
	s.mu.RUnlock()
	if synced {
		return nil
	}

	s.replaceAll(snapshot.Orders, snapshot.FetchedAt, true)
	s.logger.Info("Restored order snapshot",
		"orders", len(snapshot.Orders),
		"fetchedAt", snapshot.FetchedAt,
	)
	return nil
}

func (s *OrderSyncService) replaceAll(orders []domain.Order, at time.Time, restored bool) {
	copied := make([]domain.Order, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		copied[i] = o.Clone()
		index[o.OrderID] = i
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders = copied
	s.index = index
	s.status.OrderCount = len(copied)
	s.status.Restored = restored
	if restored {
		s.status.Stale = true
		s.status.LastSyncedAt = &at
		return
	}
	s.status.Stale = false
	s.status.LastSyncedAt = &at
	s.status.LastAttemptAt = &at
	s.status.LastError = ""
}

// Orders returns a copy of the cached order list in API order
func (s *OrderSyncService) Orders() []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Order, len(s.orders))
	for i, o := range s.orders {
		out[i] = o.Clone()
	}
	return out
}

// Get returns one cached order
func (s *OrderSyncService) Get(orderID string) (domain.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[orderID]
	if !ok {
		return domain.Order{}, false
	}
	return s.orders[i].Clone(), true
}

// Replace overwrites a cached order after the order API accepted a change
func (s *OrderSyncService) Replace(order domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.index[order.OrderID]; ok {
		s.orders[i] = order.Clone()
		return
	}
	s.index[order.OrderID] = len(s.orders)
	s.orders = append(s.orders, order.Clone())
	s.status.OrderCount = len(s.orders)
}

// Status reports cache freshness
func (s *OrderSyncService) Status() SyncStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Start schedules periodic refreshes and runs one immediately
func (s *OrderSyncService) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.cron != nil {
		return fmt.Errorf("order sync is already running")
	}

	cronLogger := cronLogAdapter{logger: s.logger}
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))

	if _, err := c.AddFunc(s.config.Schedule, func() {
		_ = s.Refresh(ctx)
	}); err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", s.config.Schedule, err)
	}

	s.cron = c
	c.Start()

	go func() {
		_ = s.Refresh(ctx)
	}()

	s.logger.Info("Order sync started", "schedule", s.config.Schedule)
	return nil
}

// Stop stops scheduling and waits for a running refresh to finish
func (s *OrderSyncService) Stop() {
	s.runMu.Lock()
	c := s.cron
	s.cron = nil
	s.runMu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	s.logger.Info("Order sync stopped")
}

// IsRunning reports whether refreshes are scheduled
func (s *OrderSyncService) IsRunning() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.cron != nil
}

type cronLogAdapter struct {
	logger *logging.Logger
}

func (a cronLogAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Debug(msg, keysAndValues...)
}

func (a cronLogAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	a.logger.WithError(err).Error(msg, keysAndValues...)
}
