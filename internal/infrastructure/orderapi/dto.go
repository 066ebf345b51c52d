package orderapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wms-platform/warehouse-state/internal/domain"
)

type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return "failed to decode orders response: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

// orderDTO is the order API's wire shape
type orderDTO struct {
	OrderID   string         `json:"orderId"`
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	CompanyID string         `json:"companyId"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Status    string         `json:"status"`
	Lines     []orderLineDTO `json:"lines"`
	Items     []orderLineDTO `json:"items"`
}

type orderLineDTO struct {
	ItemID            string `json:"itemId"`
	ItemName          string `json:"itemName"`
	Specification     string `json:"specification"`
	RequestedQuantity int    `json:"requestedQuantity"`
	LocationCode      string `json:"locationCode"`
}

// pagedOrdersResponse is the enveloped form of GET /orders
type pagedOrdersResponse struct {
	Data []orderDTO `json:"data"`
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

// decodeOrders accepts either a bare JSON array or a {"data": [...]} envelope
func decodeOrders(body []byte) ([]orderDTO, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, &decodeError{err: fmt.Errorf("empty body")}
	}

	if trimmed[0] == '[' {
		var orders []orderDTO
		if err := json.Unmarshal(trimmed, &orders); err != nil {
			return nil, &decodeError{err: err}
		}
		return orders, nil
	}

	var paged pagedOrdersResponse
	if err := json.Unmarshal(trimmed, &paged); err != nil {
		return nil, &decodeError{err: err}
	}
	return paged.Data, nil
}

// toDomain maps the wire shape. Unknown types and statuses are kept verbatim so
// the projector and lifecycle reject them explicitly.
func (d orderDTO) toDomain() domain.Order {
	id := d.OrderID
	if id == "" {
		id = d.ID
	}

	orderType := domain.OrderType(strings.ToUpper(strings.TrimSpace(d.Type)))
	if parsed, err := domain.ParseOrderType(d.Type); err == nil {
		orderType = parsed
	}

	status := domain.OrderStatus(strings.ToLower(strings.TrimSpace(d.Status)))

	lines := d.Lines
	if len(lines) == 0 {
		lines = d.Items
	}
	out := make([]domain.OrderLine, len(lines))
	for i, l := range lines {
		out[i] = domain.OrderLine{
			ItemID:            l.ItemID,
			ItemName:          l.ItemName,
			Specification:     l.Specification,
			RequestedQuantity: l.RequestedQuantity,
			LocationCode:      l.LocationCode,
		}
	}

	return domain.Order{
		OrderID:   id,
		Type:      orderType,
		CompanyID: d.CompanyID,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
		Status:    status,
		Lines:     out,
	}
}
