// Package route loads the coordinate sequences that simulated vehicles drive.
package route

import (
	"context"
	"errors"

	"github.com/ukydev/fleet-trip-simulator/internal/models"
)

var (
	// ErrRouteUnavailable is returned when a route source cannot be read.
	ErrRouteUnavailable = errors.New("route unavailable")
	// ErrMalformedRoute is returned when route data does not decode into coordinate pairs.
	ErrMalformedRoute = errors.New("malformed route")
	// ErrNoRoutes is returned when discovery finds nothing to drive.
	ErrNoRoutes = errors.New("no routes found")
)

// Source resolves a route identifier to its ordered coordinates.
type Source interface {
	Load(ctx context.Context, id string) ([]models.Coordinate, error)
}

// Lister enumerates the identifiers a Source can load.
type Lister interface {
	List(ctx context.Context) ([]string, error)
}
