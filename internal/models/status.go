package models

import "fmt"

// StatusCode is the coarse trip state reported to the ingestion service.
type StatusCode int

const (
	StatusEnRoute StatusCode = 0
	StatusArrived StatusCode = 1
)

func (s StatusCode) String() string {
	switch s {
	case StatusEnRoute:
		return "en_route"
	case StatusArrived:
		return "arrived"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Valid reports whether s is one of the two known codes.
func (s StatusCode) Valid() bool {
	return s == StatusEnRoute || s == StatusArrived
}

// Status is the body of one status submission.
type Status struct {
	VehicleID string     `bson:"vehicle_id" json:"id"`
	Status    StatusCode `bson:"status" json:"status"`
}
