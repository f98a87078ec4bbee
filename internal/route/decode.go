package route

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ukydev/fleet-trip-simulator/internal/models"
)

// Decode parses route data. Two encodings are accepted:
//
//   - a JSON array of [lat, lon] pairs
//   - a GeoJSON LineString, Feature or FeatureCollection, whose positions are [lon, lat]
//
// An empty array is a valid route with no points.
func Decode(data []byte) ([]models.Coordinate, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedRoute)
	}

	switch trimmed[0] {
	case '[':
		var pairs [][]float64
		if err := json.Unmarshal(trimmed, &pairs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRoute, err)
		}
		return FromPairs(pairs)
	case '{':
		return decodeGeoJSON(trimmed)
	default:
		return nil, fmt.Errorf("%w: expected a JSON array or GeoJSON object", ErrMalformedRoute)
	}
}

// FromPairs converts [lat, lon] pairs to coordinates. Elements past the second are ignored.
func FromPairs(pairs [][]float64) ([]models.Coordinate, error) {
	coords := make([]models.Coordinate, 0, len(pairs))
	for i, p := range pairs {
		if len(p) < 2 {
			return nil, fmt.Errorf("%w: point %d has %d values, want 2", ErrMalformedRoute, i, len(p))
		}
		coords = append(coords, models.Coordinate{Lat: p[0], Lon: p[1]})
	}
	return coords, nil
}

type geoGeometry struct {
	Type        string      `json:"type"`
	Coordinates [][]float64 `json:"coordinates"`
}

type geoObject struct {
	Type        string       `json:"type"`
	Coordinates [][]float64  `json:"coordinates"`
	Geometry    *geoGeometry `json:"geometry"`
	Features    []struct {
		Geometry *geoGeometry `json:"geometry"`
	} `json:"features"`
}

func decodeGeoJSON(data []byte) ([]models.Coordinate, error) {
	var obj geoObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRoute, err)
	}

	var lines [][][]float64
	switch obj.Type {
	case "LineString":
		lines = append(lines, obj.Coordinates)
	case "Feature":
		if obj.Geometry == nil || obj.Geometry.Type != "LineString" {
			return nil, fmt.Errorf("%w: feature geometry must be a LineString", ErrMalformedRoute)
		}
		lines = append(lines, obj.Geometry.Coordinates)
	case "FeatureCollection":
		for i, f := range obj.Features {
			if f.Geometry == nil || f.Geometry.Type != "LineString" {
				return nil, fmt.Errorf("%w: feature %d geometry must be a LineString", ErrMalformedRoute, i)
			}
			lines = append(lines, f.Geometry.Coordinates)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported GeoJSON type %q", ErrMalformedRoute, obj.Type)
	}

	var coords []models.Coordinate
	for _, line := range lines {
		for i, p := range line {
			if len(p) < 2 {
				return nil, fmt.Errorf("%w: position %d has %d values, want 2", ErrMalformedRoute, i, len(p))
			}
			coords = append(coords, models.Coordinate{Lat: p[1], Lon: p[0]})
		}
	}
	return coords, nil
}
