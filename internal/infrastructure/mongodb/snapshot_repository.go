package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/warehouse-state/internal/domain"
	"github.com/wms-platform/warehouse-state/pkg/logging"
)

const (
	snapshotCollection = "order_snapshots"
	snapshotID         = "latest"
)

// Metrics receives MongoDB operation measurements. *metrics.Metrics implements it.
type Metrics interface {
	RecordMongoDBOperation(collection, operation string, success bool, duration time.Duration)
}

type snapshotDocument struct {
	ID        string         `bson:"_id"`
	Orders    []domain.Order `bson:"orders"`
	FetchedAt time.Time      `bson:"fetchedAt"`
	SavedAt   time.Time      `bson:"savedAt"`
}

// OrderSnapshotRepository implements domain.OrderSnapshotRepository with a
// single upserted document holding the last good order list
type OrderSnapshotRepository struct {
	collection *mongo.Collection
	logger     *logging.Logger
	metrics    Metrics
}

// NewOrderSnapshotRepository creates a new OrderSnapshotRepository. metrics may be nil.
func NewOrderSnapshotRepository(db *mongo.Database, logger *logging.Logger, metrics Metrics) *OrderSnapshotRepository {
	return &OrderSnapshotRepository{
		collection: db.Collection(snapshotCollection),
		logger:     logger.WithComponent("order-snapshots"),
		metrics:    metrics,
	}
}

// Save replaces the stored snapshot
func (r *OrderSnapshotRepository) Save(ctx context.Context, snapshot domain.OrderSnapshot) error {
	start := time.Now()

	doc := snapshotDocument{
		ID:        snapshotID,
		Orders:    snapshot.Orders,
		FetchedAt: snapshot.FetchedAt.UTC(),
		SavedAt:   time.Now().UTC(),
	}
	if doc.Orders == nil {
		doc.Orders = []domain.Order{}
	}

	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": snapshotID}, doc, opts)
	r.record(ctx, "replace", err, start)
	if err != nil {
		return fmt.Errorf("failed to save order snapshot: %w", err)
	}
	return nil
}

// Load returns the stored snapshot, or nil if none was saved yet
func (r *OrderSnapshotRepository) Load(ctx context.Context) (*domain.OrderSnapshot, error) {
	start := time.Now()

	var doc snapshotDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": snapshotID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		r.record(ctx, "find", nil, start)
		return nil, nil
	}
	r.record(ctx, "find", err, start)
	if err != nil {
		return nil, fmt.Errorf("failed to load order snapshot: %w", err)
	}

	return &domain.OrderSnapshot{
		Orders:    doc.Orders,
		FetchedAt: doc.FetchedAt,
	}, nil
}

func (r *OrderSnapshotRepository) record(ctx context.Context, operation string, err error, start time.Time) {
	duration := time.Since(start)
	r.logger.DatabaseQuery(ctx, snapshotCollection, operation, duration, err == nil)
	if r.metrics != nil {
		r.metrics.RecordMongoDBOperation(snapshotCollection, operation, err == nil, duration)
	}
}
