package route

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ukydev/fleet-trip-simulator/internal/models"
)

// FileSource loads routes from the local filesystem. Route identifiers are file paths.
type FileSource struct{}

// Load reads and decodes the route file at path.
func (FileSource) Load(ctx context.Context, path string) ([]models.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRouteUnavailable, err)
	}
	coords, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("route %s: %w", filepath.Base(path), err)
	}
	return coords, nil
}

// DirLister lists the route files in a directory.
type DirLister struct {
	Dir string
}

// List returns the paths of all regular, non-hidden files in the directory, sorted by name.
func (d DirLister) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return nil, fmt.Errorf("list routes in %s: %w", d.Dir, err)
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		paths = append(paths, filepath.Join(d.Dir, e.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoRoutes, d.Dir)
	}
	return paths, nil
}
