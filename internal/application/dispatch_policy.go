package application

import (
	"fmt"
	"strings"

	"github.com/wms-platform/warehouse-state/internal/domain"
	"github.com/wms-platform/warehouse-state/pkg/logging"
)

// DispatchPolicy assigns tasks to the first idle AMR in fleet order.
// There is no load balancing and no distance-based selection.
type DispatchPolicy struct {
	fleet          *FleetSimulator
	inboundTarget  domain.Point
	outboundTarget domain.Point
	logger         *logging.Logger
}

// NewDispatchPolicy resolves dispatch targets from layout. Inbound tasks head for
// the first unloading zone's centroid shifted by approachOffset; outbound tasks
// head for the first loading zone's centroid.
func NewDispatchPolicy(fleet *FleetSimulator, layout domain.Layout, approachOffset domain.Point, logger *logging.Logger) (*DispatchPolicy, error) {
	unloading, ok := layout.FirstZone(domain.ZoneUnloading)
	if !ok {
		return nil, fmt.Errorf("layout has no %s zone", domain.ZoneUnloading)
	}
	loading, ok := layout.FirstZone(domain.ZoneLoading)
	if !ok {
		return nil, fmt.Errorf("layout has no %s zone", domain.ZoneLoading)
	}

	dock := unloading.Rect.Centroid()
	return &DispatchPolicy{
		fleet:          fleet,
		inboundTarget:  domain.Point{X: dock.X + approachOffset.X, Y: dock.Y + approachOffset.Y},
		outboundTarget: loading.Rect.Centroid(),
		logger:         logger.WithComponent("dispatch-policy"),
	}, nil
}

// TargetFor returns the floor position a task of type task is sent to
func (p *DispatchPolicy) TargetFor(task domain.TaskType) (domain.Point, error) {
	switch task {
	case domain.TaskInbound:
		return p.inboundTarget, nil
	case domain.TaskOutbound:
		return p.outboundTarget, nil
	default:
		return domain.Point{}, fmt.Errorf("%w: %q", domain.ErrInvalidTaskType, task)
	}
}

// TaskLabel builds "<locationLabel> inbound" or "<locationLabel> outbound"
func TaskLabel(task domain.TaskType, locationLabel string) string {
	return strings.TrimSpace(strings.TrimSpace(locationLabel) + " " + task.LabelSuffix())
}

// Assign sends the first idle AMR to the task's target. It returns
// domain.ErrNoAvailableAMR when every AMR is busy; a busy AMR is never preempted.
func (p *DispatchPolicy) Assign(task domain.TaskType, locationLabel string) (domain.AMR, error) {
	target, err := p.TargetFor(task)
	if err != nil {
		return domain.AMR{}, err
	}

	label := TaskLabel(task, locationLabel)

	var assigned domain.AMR
	err = p.fleet.withFleet(func(fleet []*domain.AMR) error {
		for _, amr := range fleet {
			if amr.Status != domain.AMRIdle {
				continue
			}
			amr.Target = target
			amr.Status = domain.AMRMoving
			amr.CurrentTaskLabel = label
			assigned = amr.Clone()
			return nil
		}
		return domain.ErrNoAvailableAMR
	})
	if err != nil {
		p.logger.Warn("No idle AMR for task", "taskType", string(task), "label", label)
		return domain.AMR{}, err
	}

	p.logger.Info("AMR dispatched",
		"amrId", assigned.ID,
		"taskType", string(task),
		"label", label,
		"targetX", target.X,
		"targetY", target.Y,
	)
	return assigned, nil
}
