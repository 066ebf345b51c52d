package layout

import (
	"fmt"

	"github.com/wms-platform/warehouse-state/internal/domain"
)

const (
	canvasWidth  = 1000
	canvasHeight = 700
)

// DefaultLayout is the built-in floor plan: receiving dock top-left, outbound
// dock bottom-right, a charging station bottom-left and storage sections A-I in
// a three by three rack grid.
func DefaultLayout() domain.Layout {
	zones := []domain.Zone{
		{ID: "receiving-dock", Name: "Receiving Dock", Type: domain.ZoneUnloading, Rect: domain.Rect{X: 20, Y: 20, Width: 160, Height: 100}},
		{ID: "outbound-dock", Name: "Outbound Dock", Type: domain.ZoneLoading, Rect: domain.Rect{X: 860, Y: 580, Width: 120, Height: 100}},
		{ID: "charging-station", Name: "Charging Station", Type: domain.ZoneCharging, Rect: domain.Rect{X: 20, Y: 580, Width: 100, Height: 100}},
	}

	for i, section := range "ABCDEFGHI" {
		col, row := i%3, i/3
		zones = append(zones, domain.Zone{
			ID:   fmt.Sprintf("section-%c", section),
			Name: fmt.Sprintf("Section %c", section),
			Type: domain.ZoneStorage,
			Rect: domain.Rect{
				X:      260 + float64(col)*200,
				Y:      60 + float64(row)*170,
				Width:  140,
				Height: 110,
			},
		})
	}

	obstacles := []domain.Obstacle{
		{ID: "pillar-1", Kind: "pillar", Rect: domain.Rect{X: 220, Y: 200, Width: 20, Height: 20}},
		{ID: "pillar-2", Kind: "pillar", Rect: domain.Rect{X: 620, Y: 200, Width: 20, Height: 20}},
		{ID: "pillar-3", Kind: "pillar", Rect: domain.Rect{X: 220, Y: 540, Width: 20, Height: 20}},
		{ID: "pillar-4", Kind: "pillar", Rect: domain.Rect{X: 620, Y: 540, Width: 20, Height: 20}},
	}

	return domain.Layout{
		Width:     canvasWidth,
		Height:    canvasHeight,
		Zones:     zones,
		Obstacles: obstacles,
	}
}

// DefaultFleet is four idle AMRs spread over the open floor
func DefaultFleet() []domain.AMR {
	return []domain.AMR{
		{ID: "amr-1", Name: "AMR-01", Position: domain.Point{X: 100, Y: 500}, Status: domain.AMRIdle, BatteryLevel: 100, Speed: 2, Color: "#3b82f6"},
		{ID: "amr-2", Name: "AMR-02", Position: domain.Point{X: 200, Y: 160}, Status: domain.AMRIdle, BatteryLevel: 85, Speed: 2, Color: "#10b981"},
		{ID: "amr-3", Name: "AMR-03", Position: domain.Point{X: 760, Y: 400}, Status: domain.AMRIdle, BatteryLevel: 70, Speed: 2.5, Color: "#f59e0b"},
		{ID: "amr-4", Name: "AMR-04", Position: domain.Point{X: 500, Y: 640}, Status: domain.AMRIdle, BatteryLevel: 55, Speed: 1.5, Color: "#ef4444"},
	}
}
