package application

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/wms-platform/warehouse-state/internal/domain"
	"github.com/wms-platform/warehouse-state/pkg/logging"
)

// ChargingExitMode controls how an AMR leaves the charging state
type ChargingExitMode string

const (
	// ChargingExitManual leaves charging only on an explicit StopCharging call
	ChargingExitManual ChargingExitMode = "manual"
	// ChargingExitBatteryThreshold returns to idle once the battery reaches ResumeLevel
	ChargingExitBatteryThreshold ChargingExitMode = "battery_threshold"
)

// ChargingPolicy configures charging behaviour
type ChargingPolicy struct {
	Mode        ChargingExitMode `json:"mode"`
	ChargeRate  float64          `json:"chargeRate"`  // battery percent gained per tick
	ResumeLevel float64          `json:"resumeLevel"` // battery percent at which charging ends
}

// SimulatorConfig configures the fleet simulator
type SimulatorConfig struct {
	TickInterval      time.Duration  `json:"tickInterval"`
	WanderProbability float64        `json:"wanderProbability"`
	TrailLength       int            `json:"trailLength"`
	SubscriberBuffer  int            `json:"subscriberBuffer"`
	DefaultSpeed      float64        `json:"defaultSpeed"`
	Charging          ChargingPolicy `json:"charging"`
	Seed              int64          `json:"seed"` // 0 seeds from the clock
}

// DefaultSimulatorConfig returns default simulator settings
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		TickInterval:      50 * time.Millisecond,
		WanderProbability: 0.02,
		TrailLength:       10,
		SubscriberBuffer:  4,
		DefaultSpeed:      2,
		Charging: ChargingPolicy{
			Mode:        ChargingExitManual,
			ChargeRate:  0.5,
			ResumeLevel: 95,
		},
	}
}

type snapshotSubscriber struct {
	ch   chan []domain.AMR
	once sync.Once
}

// FleetSimulator owns the AMR fleet and advances it one tick at a time.
// Every mutation (tick, dispatch, manual move, charging) holds mu, so ticks
// never interleave with commands.
type FleetSimulator struct {
	config  SimulatorConfig
	layout  domain.Layout
	logger  *logging.Logger
	metrics MetricsRecorder

	mu          sync.Mutex
	amrs        []*domain.AMR
	index       map[string]*domain.AMR
	rng         *rand.Rand
	subscribers map[uint64]*snapshotSubscriber
	nextSubID   uint64
	ticks       uint64

	runMu    sync.Mutex
	running  bool
	stopChan chan struct{}
	done     chan struct{}
}

// NewFleetSimulator creates a simulator over fleet. AMRs are copied; duplicate IDs are rejected.
func NewFleetSimulator(
	fleet []domain.AMR,
	layout domain.Layout,
	config SimulatorConfig,
	logger *logging.Logger,
	metrics MetricsRecorder,
) (*FleetSimulator, error) {
	if config.TrailLength <= 0 {
		config.TrailLength = DefaultSimulatorConfig().TrailLength
	}
	if config.SubscriberBuffer <= 0 {
		config.SubscriberBuffer = 1
	}
	if config.DefaultSpeed <= 0 {
		config.DefaultSpeed = DefaultSimulatorConfig().DefaultSpeed
	}
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultSimulatorConfig().TickInterval
	}
	if config.Charging.Mode == "" {
		config.Charging.Mode = ChargingExitManual
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}

	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &FleetSimulator{
		config:      config,
		layout:      layout,
		logger:      logger.WithComponent("fleet-simulator"),
		metrics:     metrics,
		index:       make(map[string]*domain.AMR, len(fleet)),
		rng:         rand.New(rand.NewSource(seed)),
		subscribers: make(map[uint64]*snapshotSubscriber),
	}

	for _, a := range fleet {
		if a.ID == "" {
			return nil, fmt.Errorf("AMR %q has no id", a.Name)
		}
		if _, dup := s.index[a.ID]; dup {
			return nil, fmt.Errorf("duplicate AMR id %q", a.ID)
		}
		amr := a.Clone()
		if amr.Speed <= 0 {
			amr.Speed = config.DefaultSpeed
		}
		if amr.Status == "" {
			amr.Status = domain.AMRIdle
		}
		if amr.Status != domain.AMRMoving {
			amr.Target = amr.Position
		}
		s.amrs = append(s.amrs, &amr)
		s.index[amr.ID] = &amr
	}

	return s, nil
}

// Config returns the effective configuration
func (s *FleetSimulator) Config() SimulatorConfig {
	return s.config
}

// Tick advances the fleet one step and publishes a snapshot
func (s *FleetSimulator) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, amr := range s.amrs {
		switch amr.Status {
		case domain.AMRMoving:
			s.advance(amr)
		case domain.AMRIdle:
			s.maybeWander(amr)
		case domain.AMRCharging:
			s.charge(amr)
		}
	}
	s.ticks++

	s.metrics.RecordSimulatorTick()
	s.metrics.SetAMRStatusCounts(s.statusCountsLocked())
	s.publishLocked()
}

func (s *FleetSimulator) advance(amr *domain.AMR) {
	dx := amr.Target.X - amr.Position.X
	dy := amr.Target.Y - amr.Position.Y
	distance := amr.Position.DistanceTo(amr.Target)

	if distance < amr.Speed {
		amr.Position = amr.Target
		amr.Status = domain.AMRIdle
		amr.RecentPath = nil
		return
	}

	amr.Position = domain.Point{
		X: amr.Position.X + dx/distance*amr.Speed,
		Y: amr.Position.Y + dy/distance*amr.Speed,
	}
	amr.RecentPath = append(amr.RecentPath, amr.Position)
	if over := len(amr.RecentPath) - s.config.TrailLength; over > 0 {
		amr.RecentPath = append(amr.RecentPath[:0], amr.RecentPath[over:]...)
	}
}

func (s *FleetSimulator) maybeWander(amr *domain.AMR) {
	if s.config.WanderProbability <= 0 || len(s.layout.Zones) == 0 {
		return
	}
	if s.rng.Float64() >= s.config.WanderProbability {
		return
	}

	zone := s.layout.Zones[s.rng.Intn(len(s.layout.Zones))]
	amr.Target = zone.Rect.Centroid()
	amr.Status = domain.AMRMoving
	amr.CurrentTaskLabel = ""
}

func (s *FleetSimulator) charge(amr *domain.AMR) {
	if s.config.Charging.Mode != ChargingExitBatteryThreshold {
		return
	}

	amr.BatteryLevel += s.config.Charging.ChargeRate
	if amr.BatteryLevel > 100 {
		amr.BatteryLevel = 100
	}
	if amr.BatteryLevel >= s.config.Charging.ResumeLevel {
		amr.Status = domain.AMRIdle
		s.logger.Info("AMR finished charging", "amrId", amr.ID, "batteryLevel", amr.BatteryLevel)
	}
}

// MoveTo forces a new target and the moving status regardless of current state
func (s *FleetSimulator) MoveTo(amrID string, x, y float64) (domain.AMR, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	amr, ok := s.index[amrID]
	if !ok {
		return domain.AMR{}, fmt.Errorf("%w: %s", domain.ErrAMRNotFound, amrID)
	}

	previous := amr.Status
	amr.Target = domain.Point{X: x, Y: y}
	amr.Status = domain.AMRMoving

	s.logger.Info("AMR manually repositioned",
		"amrId", amrID,
		"previousStatus", string(previous),
		"targetX", x,
		"targetY", y,
	)
	return amr.Clone(), nil
}

// StartCharging moves an idle AMR into charging
func (s *FleetSimulator) StartCharging(amrID string) (domain.AMR, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	amr, ok := s.index[amrID]
	if !ok {
		return domain.AMR{}, fmt.Errorf("%w: %s", domain.ErrAMRNotFound, amrID)
	}
	if amr.Status == domain.AMRCharging {
		return amr.Clone(), nil
	}
	if amr.Status != domain.AMRIdle {
		return amr.Clone(), fmt.Errorf("%w: %s is %s", domain.ErrAMRBusy, amrID, amr.Status)
	}

	amr.Status = domain.AMRCharging
	amr.Target = amr.Position
	return amr.Clone(), nil
}

// StopCharging returns a charging AMR to idle
func (s *FleetSimulator) StopCharging(amrID string) (domain.AMR, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	amr, ok := s.index[amrID]
	if !ok {
		return domain.AMR{}, fmt.Errorf("%w: %s", domain.ErrAMRNotFound, amrID)
	}
	if amr.Status != domain.AMRCharging {
		return amr.Clone(), fmt.Errorf("%w: %s is %s", domain.ErrAMRNotCharging, amrID, amr.Status)
	}

	amr.Status = domain.AMRIdle
	return amr.Clone(), nil
}

// Snapshot returns a deep copy of the fleet in fleet order
func (s *FleetSimulator) Snapshot() []domain.AMR {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Get returns a copy of one AMR
func (s *FleetSimulator) Get(amrID string) (domain.AMR, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	amr, ok := s.index[amrID]
	if !ok {
		return domain.AMR{}, false
	}
	return amr.Clone(), true
}

// Ticks returns how many ticks have run
func (s *FleetSimulator) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

func (s *FleetSimulator) snapshotLocked() []domain.AMR {
	out := make([]domain.AMR, len(s.amrs))
	for i, amr := range s.amrs {
		out[i] = amr.Clone()
	}
	return out
}

func (s *FleetSimulator) statusCountsLocked() map[string]int {
	counts := make(map[string]int)
	for _, st := range domain.AllAMRStatuses() {
		counts[string(st)] = 0
	}
	for _, amr := range s.amrs {
		counts[string(amr.Status)]++
	}
	return counts
}

// withFleet runs fn with exclusive access to the live fleet
func (s *FleetSimulator) withFleet(fn func(fleet []*domain.AMR) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.amrs)
}

// Subscribe registers a snapshot channel holding at most buffer snapshots.
// A full channel loses its oldest snapshot, so a slow reader never stalls the
// tick loop and always sees the newest state next. unsubscribe closes the
// channel and may be called more than once.
func (s *FleetSimulator) Subscribe(buffer int) (<-chan []domain.AMR, func()) {
	if buffer <= 0 {
		buffer = s.config.SubscriberBuffer
	}

	sub := &snapshotSubscriber{ch: make(chan []domain.AMR, buffer)}

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = sub
	s.mu.Unlock()

	unsubscribe := func() {
		sub.once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			close(sub.ch)
			s.mu.Unlock()
		})
	}
	return sub.ch, unsubscribe
}

// SubscriberCount returns the number of live subscriptions
func (s *FleetSimulator) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

func (s *FleetSimulator) publishLocked() {
	if len(s.subscribers) == 0 {
		return
	}

	for _, sub := range s.subscribers {
		snapshot := s.snapshotLocked()
		select {
		case sub.ch <- snapshot:
			continue
		default:
		}

		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- snapshot:
		default:
		}
	}
}

// Start runs the tick loop at TickInterval until Stop or ctx is done
func (s *FleetSimulator) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.running {
		return fmt.Errorf("fleet simulator is already running")
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})

	go s.run(ctx, s.stopChan, s.done)

	s.logger.Info("Fleet simulator started",
		"amrs", len(s.amrs),
		"tickInterval", s.config.TickInterval.String(),
		"chargingExit", string(s.config.Charging.Mode),
	)
	return nil
}

// Stop halts the tick loop and waits for it to exit. Stopping a stopped
// simulator is a no-op.
func (s *FleetSimulator) Stop() {
	s.runMu.Lock()
	if !s.running {
		s.runMu.Unlock()
		return
	}
	close(s.stopChan)
	s.running = false
	done := s.done
	s.runMu.Unlock()

	<-done
	s.logger.Info("Fleet simulator stopped")
}

// IsRunning returns whether the tick loop is active
func (s *FleetSimulator) IsRunning() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.running
}

func (s *FleetSimulator) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.runMu.Lock()
			if s.stopChan == stop {
				s.running = false
			}
			s.runMu.Unlock()
			return
		case <-stop:
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}
