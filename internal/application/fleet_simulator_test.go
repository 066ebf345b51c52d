package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/warehouse-state/internal/domain"
	"github.com/wms-platform/warehouse-state/pkg/logging"
	wmstesting "github.com/wms-platform/warehouse-state/pkg/testing"
)

func TestNewFleetSimulator_RejectsDuplicateIDs(t *testing.T) {
	_, err := NewFleetSimulator([]domain.AMR{idleAMR("amr1", 0, 0), idleAMR("amr1", 10, 10)}, testLayout(), quietConfig(), logging.NewNop(), nil)
	assert.Error(t, err)

	_, err = NewFleetSimulator([]domain.AMR{idleAMR("", 0, 0)}, testLayout(), quietConfig(), logging.NewNop(), nil)
	assert.Error(t, err)
}

func TestNewFleetSimulator_FillsDefaults(t *testing.T) {
	amr := idleAMR("amr1", 5, 5)
	amr.Speed = 0
	amr.Status = ""
	amr.Target = domain.Point{X: 99, Y: 99}

	sim := newTestSimulator(t, amr)

	got, ok := sim.Get("amr1")
	require.True(t, ok)
	assert.Equal(t, domain.AMRIdle, got.Status)
	assert.Equal(t, 2.0, got.Speed)
	assert.Equal(t, got.Position, got.Target)
}

func TestFleetSimulator_ArrivalConvergence(t *testing.T) {
	sim := newTestSimulator(t, idleAMR("amr1", 100, 500))

	_, err := sim.MoveTo("amr1", 137.3, 421.9)
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		sim.Tick()
		if amr, _ := sim.Get("amr1"); amr.Status == domain.AMRIdle {
			break
		}
	}

	amr, _ := sim.Get("amr1")
	assert.Equal(t, domain.AMRIdle, amr.Status)
	assert.Equal(t, domain.Point{X: 137.3, Y: 421.9}, amr.Position)
	assert.Empty(t, amr.RecentPath)
}

func TestFleetSimulator_DistanceDecreasesEveryTick(t *testing.T) {
	sim := newTestSimulator(t, idleAMR("amr1", 100, 500))
	policy, err := NewDispatchPolicy(sim, testLayout(), domain.Point{X: 0, Y: 70}, logging.NewNop())
	require.NoError(t, err)

	amr, err := policy.Assign(domain.TaskOutbound, "창고1")
	require.NoError(t, err)
	assert.Equal(t, domain.AMRMoving, amr.Status)
	assert.Equal(t, domain.Point{X: 920, Y: 630}, amr.Target)

	previous := amr.DistanceToTarget()
	for i := 0; i < 1000; i++ {
		sim.Tick()
		current, _ := sim.Get("amr1")
		if current.Status == domain.AMRIdle {
			assert.Equal(t, domain.Point{X: 920, Y: 630}, current.Position)
			return
		}
		d := current.DistanceToTarget()
		require.Less(t, d, previous, "tick %d", i)
		previous = d
	}
	t.Fatal("AMR never arrived")
}

func TestFleetSimulator_TrailIsCapped(t *testing.T) {
	sim := newTestSimulator(t, idleAMR("amr1", 0, 0))
	_, err := sim.MoveTo("amr1", 500, 0)
	require.NoError(t, err)

	for i := 0; i < 25; i++ {
		sim.Tick()
	}

	amr, _ := sim.Get("amr1")
	require.Len(t, amr.RecentPath, 10)
	assert.Equal(t, amr.Position, amr.RecentPath[9])
	assert.Equal(t, domain.Point{X: 32, Y: 0}, amr.RecentPath[0])
}

func TestFleetSimulator_MoveToOverridesAnyState(t *testing.T) {
	sim := newTestSimulator(t, idleAMR("amr1", 0, 0))
	_, err := sim.StartCharging("amr1")
	require.NoError(t, err)

	amr, err := sim.MoveTo("amr1", 10, 10)
	require.NoError(t, err)
	assert.Equal(t, domain.AMRMoving, amr.Status)
	assert.Equal(t, domain.Point{X: 10, Y: 10}, amr.Target)

	_, err = sim.MoveTo("ghost", 1, 1)
	assert.ErrorIs(t, err, domain.ErrAMRNotFound)
}

func TestFleetSimulator_ManualChargingExit(t *testing.T) {
	sim := newTestSimulator(t, idleAMR("amr1", 0, 0))

	amr, err := sim.StartCharging("amr1")
	require.NoError(t, err)
	assert.Equal(t, domain.AMRCharging, amr.Status)

	for i := 0; i < 500; i++ {
		sim.Tick()
	}
	amr, _ = sim.Get("amr1")
	assert.Equal(t, domain.AMRCharging, amr.Status)
	assert.Equal(t, 80.0, amr.BatteryLevel)

	amr, err = sim.StopCharging("amr1")
	require.NoError(t, err)
	assert.Equal(t, domain.AMRIdle, amr.Status)

	_, err = sim.StopCharging("amr1")
	assert.ErrorIs(t, err, domain.ErrAMRNotCharging)
}

func TestFleetSimulator_BatteryThresholdChargingExit(t *testing.T) {
	cfg := quietConfig()
	cfg.Charging = ChargingPolicy{Mode: ChargingExitBatteryThreshold, ChargeRate: 5, ResumeLevel: 95}
	sim, err := NewFleetSimulator([]domain.AMR{idleAMR("amr1", 0, 0)}, testLayout(), cfg, logging.NewNop(), nil)
	require.NoError(t, err)

	_, err = sim.StartCharging("amr1")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		sim.Tick()
	}
	amr, _ := sim.Get("amr1")
	assert.Equal(t, domain.AMRCharging, amr.Status)
	assert.Equal(t, 90.0, amr.BatteryLevel)

	sim.Tick()
	amr, _ = sim.Get("amr1")
	assert.Equal(t, domain.AMRIdle, amr.Status)
	assert.Equal(t, 95.0, amr.BatteryLevel)
}

func TestFleetSimulator_StartChargingRequiresIdle(t *testing.T) {
	sim := newTestSimulator(t, idleAMR("amr1", 0, 0))
	_, err := sim.MoveTo("amr1", 100, 0)
	require.NoError(t, err)

	_, err = sim.StartCharging("amr1")
	assert.ErrorIs(t, err, domain.ErrAMRBusy)
}

func TestFleetSimulator_WanderTargetsZoneCentroid(t *testing.T) {
	cfg := quietConfig()
	cfg.WanderProbability = 1
	sim, err := NewFleetSimulator([]domain.AMR{idleAMR("amr1", 500, 400)}, testLayout(), cfg, logging.NewNop(), nil)
	require.NoError(t, err)

	sim.Tick()

	amr, _ := sim.Get("amr1")
	assert.Equal(t, domain.AMRMoving, amr.Status)
	var centroids []domain.Point
	for _, z := range testLayout().Zones {
		centroids = append(centroids, z.Rect.Centroid())
	}
	assert.Contains(t, centroids, amr.Target)
}

func TestFleetSimulator_SnapshotIsACopy(t *testing.T) {
	sim := newTestSimulator(t, idleAMR("amr1", 0, 0))
	_, err := sim.MoveTo("amr1", 100, 0)
	require.NoError(t, err)
	sim.Tick()

	snapshot := sim.Snapshot()
	snapshot[0].Position = domain.Point{X: -1, Y: -1}
	snapshot[0].RecentPath[0] = domain.Point{X: -1, Y: -1}

	amr, _ := sim.Get("amr1")
	assert.Equal(t, domain.Point{X: 2, Y: 0}, amr.Position)
	assert.Equal(t, domain.Point{X: 2, Y: 0}, amr.RecentPath[0])
}

func TestFleetSimulator_SlowSubscriberKeepsNewestSnapshot(t *testing.T) {
	sim := newTestSimulator(t, idleAMR("amr1", 0, 0))
	_, err := sim.MoveTo("amr1", 1000, 0)
	require.NoError(t, err)

	ch, unsubscribe := sim.Subscribe(1)
	defer unsubscribe()

	for i := 0; i < 5; i++ {
		sim.Tick()
	}

	snapshot := <-ch
	require.Len(t, snapshot, 1)
	assert.Equal(t, 10.0, snapshot[0].Position.X)

	select {
	case <-ch:
		t.Fatal("expected a single buffered snapshot")
	default:
	}
}

func TestFleetSimulator_UnsubscribeClosesChannel(t *testing.T) {
	sim := newTestSimulator(t, idleAMR("amr1", 0, 0))

	ch, unsubscribe := sim.Subscribe(2)
	assert.Equal(t, 1, sim.SubscriberCount())

	unsubscribe()
	unsubscribe()

	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, sim.SubscriberCount())

	sim.Tick()
}

func TestFleetSimulator_StartStop(t *testing.T) {
	sim := newTestSimulator(t, idleAMR("amr1", 0, 0))

	require.NoError(t, sim.Start(context.Background()))
	assert.True(t, sim.IsRunning())
	assert.Error(t, sim.Start(context.Background()))

	wmstesting.AssertEventually(t, func() bool { return sim.Ticks() >= 3 }, time.Second, "simulator should tick")

	sim.Stop()
	sim.Stop()
	assert.False(t, sim.IsRunning())

	ticks := sim.Ticks()
	wmstesting.AssertNever(t, func() bool { return sim.Ticks() != ticks }, 50*time.Millisecond, "stopped simulator should not tick")
}

func TestFleetSimulator_StopsWithContext(t *testing.T) {
	sim := newTestSimulator(t, idleAMR("amr1", 0, 0))
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, sim.Start(ctx))
	cancel()

	wmstesting.AssertEventually(t, func() bool { return !sim.IsRunning() }, time.Second, "simulator should stop with its context")
	require.NoError(t, sim.Start(context.Background()))
	sim.Stop()
}
