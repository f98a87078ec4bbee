package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNoVehicles is returned when the vehicles collection is empty.
var ErrNoVehicles = errors.New("no vehicles available")

// VehicleStore resolves trip identities by sampling a random vehicle document.
type VehicleStore struct {
	Collection *mongo.Collection
}

// ResolveIdentity returns the _id of one randomly sampled vehicle.
func (s *VehicleStore) ResolveIdentity(ctx context.Context) (string, error) {
	if s.Collection == nil {
		return "", fmt.Errorf("mongo collection is nil")
	}
	pipeline := mongo.Pipeline{
		{{Key: "$sample", Value: bson.D{{Key: "size", Value: 1}}}},
		{{Key: "$project", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cursor, err := s.Collection.Aggregate(ctx, pipeline)
	if err != nil {
		return "", err
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return "", err
		}
		return "", ErrNoVehicles
	}
	var doc bson.M
	if err := cursor.Decode(&doc); err != nil {
		return "", err
	}
	return idString(doc["_id"])
}

func idString(v interface{}) (string, error) {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex(), nil
	case string:
		if id == "" {
			return "", fmt.Errorf("empty vehicle _id")
		}
		return id, nil
	case nil:
		return "", fmt.Errorf("vehicle document has no _id")
	default:
		return fmt.Sprint(id), nil
	}
}
