package domain

import (
	"errors"
	"fmt"
)

// ZoneType classifies a layout zone
type ZoneType string

const (
	ZoneStorage   ZoneType = "storage"
	ZoneLoading   ZoneType = "loading"
	ZoneCharging  ZoneType = "charging"
	ZoneUnloading ZoneType = "unloading"
)

// IsValid returns true for the four known zone types
func (t ZoneType) IsValid() bool {
	switch t {
	case ZoneStorage, ZoneLoading, ZoneCharging, ZoneUnloading:
		return true
	default:
		return false
	}
}

// Rect is an axis-aligned rectangle; X,Y is the top-left corner
type Rect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Centroid is the rectangle's centre
func (r Rect) Centroid() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Contains reports whether p lies inside r, edges included
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Zone is a named area of the floor plan
type Zone struct {
	ID   string   `json:"id" yaml:"id"`
	Name string   `json:"name" yaml:"name"`
	Type ZoneType `json:"type" yaml:"type"`
	Rect Rect     `json:"rect" yaml:"rect"`
}

// Obstacle is a static blocked area (pillar, wall)
type Obstacle struct {
	ID   string `json:"id" yaml:"id"`
	Kind string `json:"kind" yaml:"kind"`
	Rect Rect   `json:"rect" yaml:"rect"`
}

// Layout is the static floor plan. It is never mutated after load.
type Layout struct {
	Width     float64    `json:"width" yaml:"width"`
	Height    float64    `json:"height" yaml:"height"`
	Zones     []Zone     `json:"zones" yaml:"zones"`
	Obstacles []Obstacle `json:"obstacles" yaml:"obstacles"`
}

// FirstZone returns the first zone of type t in declaration order
func (l Layout) FirstZone(t ZoneType) (Zone, bool) {
	for _, z := range l.Zones {
		if z.Type == t {
			return z, true
		}
	}
	return Zone{}, false
}

// Validate checks the layout can serve dispatch
func (l Layout) Validate() error {
	var errs []error
	if len(l.Zones) == 0 {
		errs = append(errs, errors.New("layout has no zones"))
	}

	seen := make(map[string]bool, len(l.Zones))
	for _, z := range l.Zones {
		if z.ID == "" {
			errs = append(errs, fmt.Errorf("zone %q has no id", z.Name))
		}
		if seen[z.ID] {
			errs = append(errs, fmt.Errorf("duplicate zone id %q", z.ID))
		}
		seen[z.ID] = true
		if !z.Type.IsValid() {
			errs = append(errs, fmt.Errorf("zone %q has unknown type %q", z.ID, z.Type))
		}
		if z.Rect.Width <= 0 || z.Rect.Height <= 0 {
			errs = append(errs, fmt.Errorf("zone %q has an empty rectangle", z.ID))
		}
	}

	if _, ok := l.FirstZone(ZoneUnloading); !ok {
		errs = append(errs, errors.New("layout needs an unloading zone for inbound dispatch"))
	}
	if _, ok := l.FirstZone(ZoneLoading); !ok {
		errs = append(errs, errors.New("layout needs a loading zone for outbound dispatch"))
	}

	return errors.Join(errs...)
}
