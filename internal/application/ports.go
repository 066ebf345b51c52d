package application

import (
	"context"

	"github.com/wms-platform/warehouse-state/pkg/cloudevents"
)

// EventPublisher publishes warehouse state events
type EventPublisher interface {
	Publish(ctx context.Context, event *cloudevents.WMSCloudEvent) error
}

// MetricsRecorder receives engine measurements. *metrics.Metrics implements it.
type MetricsRecorder interface {
	RecordProjection(cacheHit bool, skipped, clamped, occupied int)
	RecordTransition(from, to, result string)
	RecordDispatch(taskType string, dispatched bool)
	RecordOrderSync(success bool, cached int)
	RecordSimulatorTick()
	SetAMRStatusCounts(counts map[string]int)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, *cloudevents.WMSCloudEvent) error { return nil }

type nopMetrics struct{}

func (nopMetrics) RecordProjection(bool, int, int, int)    {}
func (nopMetrics) RecordTransition(string, string, string) {}
func (nopMetrics) RecordDispatch(string, bool)             {}
func (nopMetrics) RecordOrderSync(bool, int)               {}
func (nopMetrics) RecordSimulatorTick()                    {}
func (nopMetrics) SetAMRStatusCounts(map[string]int)       {}
