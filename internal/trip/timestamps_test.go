package trip

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/fleet-trip-simulator/internal/models"
)

func TestAssignTimestamps(t *testing.T) {
	start := time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC)
	coords := straightRoute(25)

	for _, interval := range []time.Duration{time.Second, 3 * time.Second, 250 * time.Millisecond} {
		points := AssignTimestamps(coords, interval, start)
		require.Len(t, points, len(coords))
		for i, p := range points {
			assert.Equal(t, coords[i].Lat, p.Latitude)
			assert.Equal(t, coords[i].Lon, p.Longitude)
			assert.True(t, p.Timestamp.Equal(start.Add(time.Duration(i)*interval)), "point %d", i)
			if i > 0 {
				assert.Equal(t, interval, p.Timestamp.Sub(points[i-1].Timestamp))
			}
		}
	}
}

func TestAssignTimestamps_Empty(t *testing.T) {
	points := AssignTimestamps(nil, time.Second, time.Now())
	assert.Empty(t, points)
}

func TestAssignTimestamps_DoesNotReadClock(t *testing.T) {
	start := time.Date(1999, time.December, 31, 23, 59, 59, 0, time.UTC)
	points := AssignTimestamps([]models.Coordinate{{Lat: 1, Lon: 2}}, time.Second, start)
	assert.Equal(t, start, points[0].Timestamp)
}
