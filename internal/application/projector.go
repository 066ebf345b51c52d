package application

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/wms-platform/warehouse-state/internal/domain"
	"github.com/wms-platform/warehouse-state/pkg/logging"
)

type pairKey struct {
	location domain.LocationCode
	itemID   string
}

type runningTotal struct {
	quantity    int
	itemName    string
	lastUpdated time.Time
}

// InventoryProjector rebuilds per-location stock by replaying completed orders.
// It holds no mutable state; Project is safe for concurrent use.
type InventoryProjector struct {
	logger *logging.Logger
}

// NewInventoryProjector creates a projector
func NewInventoryProjector(logger *logging.Logger) *InventoryProjector {
	return &InventoryProjector{logger: logger.WithComponent("inventory-projector")}
}

// Project replays every completed order from empty. Inbound lines add, outbound
// lines subtract, totals are floored at zero and only positive entries are kept.
// Lines with a malformed location code, an empty item ID or a negative quantity
// are skipped.
func (p *InventoryProjector) Project(orders []domain.Order) (domain.Projection, domain.ProjectionStats) {
	var stats domain.ProjectionStats
	totals := make(map[pairKey]*runningTotal)

	for _, order := range orders {
		if order.Status != domain.StatusCompleted {
			continue
		}
		if !order.Type.IsValid() {
			p.logger.Warn("Skipping completed order with unknown type",
				"orderId", order.OrderID,
				"type", string(order.Type),
			)
			stats.LinesSkipped += len(order.Lines)
			continue
		}
		stats.OrdersReplayed++

		sign := order.Type.Sign()
		touched := order.LastTouched()

		for i, line := range order.Lines {
			code, err := domain.ParseLocationCode(line.LocationCode)
			if err != nil {
				p.skip(&stats, order.OrderID, i, "malformed location code", line)
				continue
			}
			if line.ItemID == "" {
				p.skip(&stats, order.OrderID, i, "missing item id", line)
				continue
			}
			if line.RequestedQuantity < 0 {
				p.skip(&stats, order.OrderID, i, "negative quantity", line)
				continue
			}

			key := pairKey{location: code, itemID: line.ItemID}
			total, ok := totals[key]
			if !ok {
				total = &runningTotal{}
				totals[key] = total
			}
			total.quantity += sign * line.RequestedQuantity
			if !touched.Before(total.lastUpdated) {
				total.lastUpdated = touched
				total.itemName = line.ItemName
			}
			stats.LinesApplied++
		}
	}

	projection := make(domain.Projection)
	for key, total := range totals {
		if total.quantity < 0 {
			stats.ClampedPairs++
			p.logger.Warn("Outbound exceeds inbound, clamping to zero",
				"locationCode", string(key.location),
				"itemId", key.itemID,
				"netQuantity", total.quantity,
			)
			continue
		}
		if total.quantity == 0 {
			continue
		}
		projection[key.location] = append(projection[key.location], domain.InventoryProjectionEntry{
			LocationCode: key.location,
			ItemID:       key.itemID,
			ItemName:     total.itemName,
			Quantity:     total.quantity,
			LastUpdated:  total.lastUpdated,
		})
	}

	for code := range projection {
		entries := projection[code]
		sort.Slice(entries, func(i, j int) bool { return entries[i].ItemID < entries[j].ItemID })
	}

	return projection, stats
}

func (p *InventoryProjector) skip(stats *domain.ProjectionStats, orderID string, lineIndex int, reason string, line domain.OrderLine) {
	stats.LinesSkipped++
	p.logger.Warn("Skipping order line during replay",
		"orderId", orderID,
		"line", lineIndex,
		"reason", reason,
		"locationCode", line.LocationCode,
		"itemId", line.ItemID,
	)
}

// ProjectionCache memoizes the last projection. The key is a fingerprint of the
// completed orders, so any change to that set falls back to a full replay.
type ProjectionCache struct {
	projector *InventoryProjector

	mu          sync.Mutex
	fingerprint string
	projection  domain.Projection
	stats       domain.ProjectionStats
}

// NewProjectionCache creates an empty cache in front of projector
func NewProjectionCache(projector *InventoryProjector) *ProjectionCache {
	return &ProjectionCache{projector: projector}
}

// Get returns the projection for orders and whether it was served from cache.
// The returned projection is shared and must not be modified.
func (c *ProjectionCache) Get(orders []domain.Order) (domain.Projection, domain.ProjectionStats, bool) {
	fp := completedFingerprint(orders)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.projection != nil && fp == c.fingerprint {
		return c.projection, c.stats, true
	}

	c.projection, c.stats = c.projector.Project(orders)
	c.fingerprint = fp
	return c.projection, c.stats, false
}

// Invalidate drops the cached projection
func (c *ProjectionCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.projection = nil
	c.fingerprint = ""
}

func completedFingerprint(orders []domain.Order) string {
	h := sha256.New()
	for _, o := range orders {
		if o.Status != domain.StatusCompleted {
			continue
		}
		h.Write([]byte(o.OrderID))
		h.Write([]byte{0})
		h.Write([]byte(o.Type))
		h.Write([]byte{0})
		h.Write([]byte(o.LastTouched().UTC().Format(time.RFC3339Nano)))
		h.Write([]byte{0})
		for _, l := range o.Lines {
			h.Write([]byte(l.LocationCode))
			h.Write([]byte{0})
			h.Write([]byte(l.ItemID))
			h.Write([]byte{0})
			h.Write([]byte(l.ItemName))
			h.Write([]byte{0})
			h.Write([]byte(strconv.Itoa(l.RequestedQuantity)))
			h.Write([]byte{1})
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
