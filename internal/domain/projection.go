package domain

import "time"

// InventoryProjectionEntry is the derived stock of one item in one slot
type InventoryProjectionEntry struct {
	LocationCode LocationCode `json:"locationCode"`
	ItemID       string       `json:"itemId"`
	ItemName     string       `json:"itemName"`
	Quantity     int          `json:"quantity"`
	LastUpdated  time.Time    `json:"lastUpdated"`
}

// Projection maps a normalized location code to its entries, sorted by item ID
type Projection map[LocationCode][]InventoryProjectionEntry

// Entries returns the entries of code, or nil
func (p Projection) Entries(code LocationCode) []InventoryProjectionEntry {
	entries := p[code]
	if entries == nil {
		return nil
	}
	out := make([]InventoryProjectionEntry, len(entries))
	copy(out, entries)
	return out
}

// Occupancy sums quantities per location
func (p Projection) Occupancy() map[LocationCode]int {
	out := make(map[LocationCode]int, len(p))
	for code, entries := range p {
		total := 0
		for _, e := range entries {
			total += e.Quantity
		}
		out[code] = total
	}
	return out
}

// ProjectionStats describes one replay
type ProjectionStats struct {
	OrdersReplayed int `json:"ordersReplayed"`
	LinesApplied   int `json:"linesApplied"`
	LinesSkipped   int `json:"linesSkipped"`
	ClampedPairs   int `json:"clampedPairs"`
}

// Clone returns a deep copy
func (p Projection) Clone() Projection {
	out := make(Projection, len(p))
	for code := range p {
		out[code] = p.Entries(code)
	}
	return out
}
