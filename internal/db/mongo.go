package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ukydev/fleet-trip-simulator/internal/models"
)

// ConnectMongo connects to MongoDB and verifies the connection with a ping.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo URI is empty")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// MongoCollection wraps a MongoDB collection for received telemetry.
type MongoCollection struct {
	Collection *mongo.Collection
}

// InsertBatch stores one received batch, stamping ReceivedAt if unset.
func (c *MongoCollection) InsertBatch(ctx context.Context, batch models.Batch) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if batch.ReceivedAt.IsZero() {
		batch.ReceivedAt = time.Now().UTC()
	}
	_, err := c.Collection.InsertOne(ctx, batch)
	return err
}

// InsertStatus stores one received status report.
func (c *MongoCollection) InsertStatus(ctx context.Context, status models.Status) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	_, err := c.Collection.InsertOne(ctx, bson.M{
		"vehicle_id":  status.VehicleID,
		"status":      status.Status,
		"received_at": time.Now().UTC(),
	})
	return err
}

// mongoBatchCursor wraps a MongoDB cursor for batch queries.
type mongoBatchCursor struct {
	cursor *mongo.Cursor
}

func (m *mongoBatchCursor) All(ctx context.Context, out interface{}) error {
	return m.cursor.All(ctx, out)
}

func (m *mongoBatchCursor) Close(ctx context.Context) error {
	return m.cursor.Close(ctx)
}

// FindBatches queries stored batches, e.g. bson.M{"vehicle_id": id}.
func (c *MongoCollection) FindBatches(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (Cursor, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	cursor, err := c.Collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return &mongoBatchCursor{cursor: cursor}, nil
}
