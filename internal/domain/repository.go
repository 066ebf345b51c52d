package domain

import (
	"context"
	"time"
)

// OrderGateway is the remote order API
type OrderGateway interface {
	ListOrders(ctx context.Context) ([]Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status OrderStatus) error
}

// OrderSnapshot is the last order list fetched successfully
type OrderSnapshot struct {
	Orders    []Order   `json:"orders" bson:"orders"`
	FetchedAt time.Time `json:"fetchedAt" bson:"fetchedAt"`
}

// OrderSnapshotRepository persists the last good order list across restarts
type OrderSnapshotRepository interface {
	Save(ctx context.Context, snapshot OrderSnapshot) error
	Load(ctx context.Context) (*OrderSnapshot, error)
}
