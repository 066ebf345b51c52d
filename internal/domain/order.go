package domain

import (
	"fmt"
	"strings"
	"time"
)

// OrderType is the direction of stock movement
type OrderType string

const (
	OrderTypeInbound  OrderType = "INBOUND"
	OrderTypeOutbound OrderType = "OUTBOUND"
)

// ParseOrderType accepts either case ("inbound", "OUTBOUND")
func ParseOrderType(s string) (OrderType, error) {
	t := OrderType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidOrderType, s)
	}
	return t, nil
}

// IsValid returns true for INBOUND and OUTBOUND
func (t OrderType) IsValid() bool {
	return t == OrderTypeInbound || t == OrderTypeOutbound
}

// Sign is +1 for inbound and -1 for outbound
func (t OrderType) Sign() int {
	if t == OrderTypeOutbound {
		return -1
	}
	return 1
}

// Order is an externally created warehouse order. Only Status changes locally.
type Order struct {
	OrderID   string      `json:"orderId" bson:"orderId"`
	Type      OrderType   `json:"type" bson:"type"`
	CompanyID string      `json:"companyId" bson:"companyId"`
	CreatedAt time.Time   `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt" bson:"updatedAt"`
	Status    OrderStatus `json:"status" bson:"status"`
	Lines     []OrderLine `json:"lines" bson:"lines"`
}

// OrderLine is a single item movement within an order
type OrderLine struct {
	ItemID            string `json:"itemId" bson:"itemId"`
	ItemName          string `json:"itemName" bson:"itemName"`
	Specification     string `json:"specification,omitempty" bson:"specification,omitempty"`
	RequestedQuantity int    `json:"requestedQuantity" bson:"requestedQuantity"`
	LocationCode      string `json:"locationCode" bson:"locationCode"`
}

// LastTouched is UpdatedAt, falling back to CreatedAt
func (o Order) LastTouched() time.Time {
	if !o.UpdatedAt.IsZero() {
		return o.UpdatedAt
	}
	return o.CreatedAt
}

// Clone returns a copy that shares no line storage with o
func (o Order) Clone() Order {
	c := o
	if o.Lines != nil {
		c.Lines = make([]OrderLine, len(o.Lines))
		copy(c.Lines, o.Lines)
	}
	return c
}

// PrimaryLocation is the first line's location code, or "" for an order without lines
func (o Order) PrimaryLocation() string {
	if len(o.Lines) == 0 {
		return ""
	}
	return o.Lines[0].LocationCode
}
