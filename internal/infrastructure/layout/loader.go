package layout

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wms-platform/warehouse-state/internal/domain"
)

// File is the YAML document describing a floor plan and its fleet
type File struct {
	Width     float64           `yaml:"width"`
	Height    float64           `yaml:"height"`
	Zones     []domain.Zone     `yaml:"zones"`
	Obstacles []domain.Obstacle `yaml:"obstacles"`
	Fleet     []AMRSpec         `yaml:"fleet"`
}

// AMRSpec is the initial state of one AMR
type AMRSpec struct {
	ID           string       `yaml:"id"`
	Name         string       `yaml:"name"`
	Position     domain.Point `yaml:"position"`
	BatteryLevel float64      `yaml:"batteryLevel"`
	Speed        float64      `yaml:"speed"`
	Color        string       `yaml:"color"`
	Status       string       `yaml:"status"`
}

// Load reads path, or returns the built-in layout and fleet when path is empty.
// A file without a fleet section gets the default fleet.
func Load(path string) (domain.Layout, []domain.AMR, error) {
	if path == "" {
		return DefaultLayout(), DefaultFleet(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Layout{}, nil, fmt.Errorf("read layout %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a layout document
func Parse(data []byte) (domain.Layout, []domain.AMR, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return domain.Layout{}, nil, fmt.Errorf("decode layout: %w", err)
	}

	layout := domain.Layout{
		Width:     f.Width,
		Height:    f.Height,
		Zones:     f.Zones,
		Obstacles: f.Obstacles,
	}
	if layout.Width == 0 {
		layout.Width = canvasWidth
	}
	if layout.Height == 0 {
		layout.Height = canvasHeight
	}
	if err := layout.Validate(); err != nil {
		return domain.Layout{}, nil, fmt.Errorf("invalid layout: %w", err)
	}

	if len(f.Fleet) == 0 {
		return layout, DefaultFleet(), nil
	}

	fleet := make([]domain.AMR, 0, len(f.Fleet))
	for _, spec := range f.Fleet {
		amr, err := spec.toDomain()
		if err != nil {
			return domain.Layout{}, nil, err
		}
		fleet = append(fleet, amr)
	}
	return layout, fleet, nil
}

func (s AMRSpec) toDomain() (domain.AMR, error) {
	if s.ID == "" {
		return domain.AMR{}, fmt.Errorf("fleet entry %q has no id", s.Name)
	}

	status := domain.AMRIdle
	switch strings.ToLower(strings.TrimSpace(s.Status)) {
	case "", string(domain.AMRIdle):
	case string(domain.AMRCharging):
		status = domain.AMRCharging
	default:
		return domain.AMR{}, fmt.Errorf("AMR %s: initial status must be idle or charging, got %q", s.ID, s.Status)
	}

	battery := s.BatteryLevel
	if battery == 0 {
		battery = 100
	}
	name := s.Name
	if name == "" {
		name = s.ID
	}

	return domain.AMR{
		ID:           s.ID,
		Name:         name,
		Position:     s.Position,
		Target:       s.Position,
		Status:       status,
		BatteryLevel: battery,
		Speed:        s.Speed,
		Color:        s.Color,
	}, nil
}
