package db

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ukydev/fleet-trip-simulator/internal/models"
	"github.com/ukydev/fleet-trip-simulator/internal/route"
)

// RouteStore serves routes from a collection of models.Route documents keyed by name.
// It implements route.Source and route.Lister.
type RouteStore struct {
	Collection *mongo.Collection
}

func (s *RouteStore) Load(ctx context.Context, name string) ([]models.Coordinate, error) {
	if s.Collection == nil {
		return nil, fmt.Errorf("%w: mongo collection is nil", route.ErrRouteUnavailable)
	}
	var doc models.Route
	err := s.Collection.FindOne(ctx, bson.M{"name": name}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: route %q not found", route.ErrRouteUnavailable, name)
		}
		return nil, fmt.Errorf("%w: %w", route.ErrRouteUnavailable, err)
	}
	coords, err := route.FromPairs(doc.Coordinates)
	if err != nil {
		return nil, fmt.Errorf("route %s: %w", name, err)
	}
	return coords, nil
}

// List returns the distinct route names, sorted.
func (s *RouteStore) List(ctx context.Context) ([]string, error) {
	if s.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	values, err := s.Collection.Distinct(ctx, "name", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	names := make([]string, 0, len(values))
	for _, v := range values {
		if name, ok := v.(string); ok && name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w in collection %s", route.ErrNoRoutes, s.Collection.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Save upserts a route by name.
func (s *RouteStore) Save(ctx context.Context, r models.Route) error {
	if s.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	_, err := s.Collection.ReplaceOne(ctx, bson.M{"name": r.Name}, r, options.Replace().SetUpsert(true))
	return err
}

// Import copies every route src can list into the store, keyed by file name
// without extension. It returns the number of routes written.
func (s *RouteStore) Import(ctx context.Context, src route.Source, lister route.Lister) (int, error) {
	ids, err := lister.List(ctx)
	if err != nil {
		return 0, err
	}
	for i, id := range ids {
		coords, err := src.Load(ctx, id)
		if err != nil {
			return i, err
		}
		if err := s.Save(ctx, routeDocument(routeName(id), coords)); err != nil {
			return i, fmt.Errorf("save route %s: %w", id, err)
		}
	}
	return len(ids), nil
}

func routeName(id string) string {
	base := filepath.Base(id)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func routeDocument(name string, coords []models.Coordinate) models.Route {
	pairs := make([][]float64, len(coords))
	for i, c := range coords {
		pairs[i] = []float64{c.Lat, c.Lon}
	}
	return models.Route{Name: name, Coordinates: pairs}
}
