package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/warehouse-state/internal/domain"
)

const sampleLayout = `
width: 800
height: 600
zones:
  - id: dock-in
    name: Inbound
    type: unloading
    rect: {x: 0, y: 0, width: 100, height: 60}
  - id: dock-out
    name: Outbound
    type: loading
    rect: {x: 700, y: 540, width: 100, height: 60}
obstacles:
  - id: p1
    kind: pillar
    rect: {x: 400, y: 300, width: 10, height: 10}
fleet:
  - id: r1
    position: {x: 50, y: 300}
    speed: 3
  - id: r2
    name: Robot Two
    position: {x: 60, y: 300}
    batteryLevel: 20
    status: charging
`

func TestDefaultLayout(t *testing.T) {
	l := DefaultLayout()
	require.NoError(t, l.Validate())

	outbound, ok := l.FirstZone(domain.ZoneLoading)
	require.True(t, ok)
	assert.Equal(t, domain.Point{X: 920, Y: 630}, outbound.Rect.Centroid())

	var storage []string
	for _, z := range l.Zones {
		if z.Type == domain.ZoneStorage {
			storage = append(storage, z.Name)
		}
	}
	assert.Len(t, storage, 9)
	assert.Equal(t, "Section A", storage[0])
	assert.Equal(t, "Section I", storage[8])
}

func TestDefaultLayout_ZonesInsideCanvas(t *testing.T) {
	l := DefaultLayout()
	canvas := domain.Rect{Width: l.Width, Height: l.Height}
	for _, z := range l.Zones {
		assert.True(t, canvas.Contains(domain.Point{X: z.Rect.X, Y: z.Rect.Y}), z.ID)
		assert.True(t, canvas.Contains(domain.Point{X: z.Rect.X + z.Rect.Width, Y: z.Rect.Y + z.Rect.Height}), z.ID)
	}
}

func TestDefaultFleet(t *testing.T) {
	fleet := DefaultFleet()
	require.NotEmpty(t, fleet)

	ids := map[string]bool{}
	for _, amr := range fleet {
		assert.False(t, ids[amr.ID], "duplicate id %s", amr.ID)
		ids[amr.ID] = true
		assert.Equal(t, domain.AMRIdle, amr.Status)
	}
	assert.Equal(t, domain.Point{X: 100, Y: 500}, fleet[0].Position)
}

func TestParse(t *testing.T) {
	l, fleet, err := Parse([]byte(sampleLayout))
	require.NoError(t, err)

	assert.Equal(t, 800.0, l.Width)
	assert.Len(t, l.Zones, 2)
	assert.Len(t, l.Obstacles, 1)

	require.Len(t, fleet, 2)
	assert.Equal(t, "r1", fleet[0].Name)
	assert.Equal(t, 100.0, fleet[0].BatteryLevel)
	assert.Equal(t, 3.0, fleet[0].Speed)
	assert.Equal(t, fleet[0].Position, fleet[0].Target)
	assert.Equal(t, domain.AMRCharging, fleet[1].Status)
	assert.Equal(t, 20.0, fleet[1].BatteryLevel)
}

func TestParse_DefaultFleetWhenOmitted(t *testing.T) {
	doc := `
zones:
  - {id: in, type: unloading, rect: {x: 0, y: 0, width: 10, height: 10}}
  - {id: out, type: loading, rect: {x: 20, y: 0, width: 10, height: 10}}
`
	l, fleet, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, float64(canvasWidth), l.Width)
	assert.Equal(t, DefaultFleet(), fleet)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "unknown field", doc: "zones: []\nfloors: 2\n"},
		{name: "missing docks", doc: "zones:\n  - {id: a, type: storage, rect: {x: 0, y: 0, width: 1, height: 1}}\n"},
		{name: "bad zone type", doc: "zones:\n  - {id: in, type: unloading, rect: {x: 0, y: 0, width: 1, height: 1}}\n  - {id: out, type: loading, rect: {x: 0, y: 0, width: 1, height: 1}}\n  - {id: x, type: mezzanine, rect: {x: 0, y: 0, width: 1, height: 1}}\n"},
		{name: "moving fleet entry", doc: "zones:\n  - {id: in, type: unloading, rect: {x: 0, y: 0, width: 1, height: 1}}\n  - {id: out, type: loading, rect: {x: 0, y: 0, width: 1, height: 1}}\nfleet:\n  - {id: r1, status: moving}\n"},
		{name: "fleet entry without id", doc: "zones:\n  - {id: in, type: unloading, rect: {x: 0, y: 0, width: 1, height: 1}}\n  - {id: out, type: loading, rect: {x: 0, y: 0, width: 1, height: 1}}\nfleet:\n  - {name: nobody}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	l, fleet, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultLayout(), l)
	assert.Equal(t, DefaultFleet(), fleet)

	path := filepath.Join(t.TempDir(), "layout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleLayout), 0o600))
	l, fleet, err = Load(path)
	require.NoError(t, err)
	assert.Len(t, l.Zones, 2)
	assert.Len(t, fleet, 2)

	_, _, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
