package db

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ukydev/fleet-trip-simulator/internal/models"
)

// TelemetryCollection defines the storage operations of the ingestion sink.
type TelemetryCollection interface {
	InsertBatch(ctx context.Context, batch models.Batch) error
	InsertStatus(ctx context.Context, status models.Status) error
	FindBatches(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (Cursor, error)
}

// Cursor defines the interface for cursor operations.
type Cursor interface {
	All(ctx context.Context, out interface{}) error
	Close(ctx context.Context) error
}
