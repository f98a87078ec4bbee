package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Position is a route point stamped with the simulated time the vehicle reaches it.
type Position struct {
	Latitude  float64   `bson:"latitude" json:"latitude"`
	Longitude float64   `bson:"longitude" json:"longitude"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// Batch is the body of one telemetry submission.
type Batch struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	VehicleID   string             `bson:"vehicle_id" json:"id"`
	Coordinates []Position         `bson:"coordinates" json:"coordinates"`
	ReceivedAt  time.Time          `bson:"received_at" json:"-"`
}
