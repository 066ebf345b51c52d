package domain

import (
	"fmt"
	"math"
	"strings"
)

// AMRStatus is the motion state of an autonomous mobile robot
type AMRStatus string

const (
	AMRIdle      AMRStatus = "idle"
	AMRMoving    AMRStatus = "moving"
	AMRLoading   AMRStatus = "loading"   // reserved, never entered
	AMRUnloading AMRStatus = "unloading" // reserved, never entered
	AMRCharging  AMRStatus = "charging"
)

// AllAMRStatuses lists every AMR status
func AllAMRStatuses() []AMRStatus {
	return []AMRStatus{AMRIdle, AMRMoving, AMRLoading, AMRUnloading, AMRCharging}
}

// Point is a position on the warehouse floor plan
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// DistanceTo is the Euclidean distance between p and q
func (p Point) DistanceTo(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// AMR is an autonomous mobile robot
type AMR struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Position         Point     `json:"position"`
	Target           Point     `json:"target"`
	Status           AMRStatus `json:"status"`
	BatteryLevel     float64   `json:"batteryLevel"`
	Speed            float64   `json:"speed"`
	RecentPath       []Point   `json:"recentPath"`
	CurrentTaskLabel string    `json:"currentTaskLabel,omitempty"`
	Color            string    `json:"color"`
}

// Clone returns a deep copy
func (a AMR) Clone() AMR {
	c := a
	c.RecentPath = make([]Point, len(a.RecentPath))
	copy(c.RecentPath, a.RecentPath)
	return c
}

// DistanceToTarget is the remaining straight-line distance
func (a AMR) DistanceToTarget() float64 {
	return a.Position.DistanceTo(a.Target)
}

// TaskType is the kind of work a dispatched AMR performs
type TaskType string

const (
	TaskInbound  TaskType = "INBOUND"
	TaskOutbound TaskType = "OUTBOUND"
)

// ParseTaskType accepts either case ("outbound", "INBOUND")
func ParseTaskType(s string) (TaskType, error) {
	t := TaskType(strings.ToUpper(strings.TrimSpace(s)))
	if t != TaskInbound && t != TaskOutbound {
		return "", fmt.Errorf("%w: %q", ErrInvalidTaskType, s)
	}
	return t, nil
}

// TaskTypeFor maps an order direction to the AMR task it needs
func TaskTypeFor(t OrderType) TaskType {
	if t == OrderTypeOutbound {
		return TaskOutbound
	}
	return TaskInbound
}

// LabelSuffix is the lowercase word appended to task labels
func (t TaskType) LabelSuffix() string {
	return strings.ToLower(string(t))
}
