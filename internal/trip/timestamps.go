// Package trip plays one simulated vehicle along a route: it stamps the route
// with simulated arrival times, cuts it into batches, paces the batches against
// a compressed clock and interleaves status reports.
package trip

import (
	"time"

	"github.com/ukydev/fleet-trip-simulator/internal/models"
)

// AssignTimestamps stamps point i with start + i*interval.
func AssignTimestamps(coords []models.Coordinate, interval time.Duration, start time.Time) []models.Position {
	points := make([]models.Position, len(coords))
	ts := start
	for i, c := range coords {
		points[i] = models.Position{Latitude: c.Lat, Longitude: c.Lon, Timestamp: ts}
		ts = ts.Add(interval)
	}
	return points
}
