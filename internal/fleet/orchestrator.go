// Package fleet runs many independent trips concurrently and reports their outcomes.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ukydev/fleet-trip-simulator/internal/trip"
)

var (
	ErrNoRoutes     = errors.New("fleet: route set is empty")
	ErrInvalidCount = errors.New("fleet: trip count must be positive")
)

// TripRunner plays a single trip to a terminal state.
type TripRunner interface {
	Run(ctx context.Context, tripID, routeID string) trip.Result
}

// Orchestrator launches Count trips, each on a route drawn uniformly at random
// (with replacement) from Routes, and waits for all of them.
type Orchestrator struct {
	Runner TripRunner
	Routes []string
	Count  int

	// Seed drives route selection; the same seed and route set yield the same plan.
	Seed int64
	// MaxConcurrent caps simultaneously running trips; 0 runs them all at once.
	MaxConcurrent int
	// RunID labels this fleet run in logs; generated when empty.
	RunID  string
	Logger *log.Entry
}

// Plan assigns a route to each of count trips using a source seeded with seed.
func Plan(routes []string, count int, seed int64) []string {
	rng := rand.New(rand.NewSource(seed))
	plan := make([]string, count)
	for i := range plan {
		plan[i] = routes[rng.Intn(len(routes))]
	}
	return plan
}

// Run blocks until every trip has reached a terminal state. A failed trip never
// cancels its siblings; failures are reported in the returned Report. The error
// is non-nil only when the fleet could not be started.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	if len(o.Routes) == 0 {
		return nil, ErrNoRoutes
	}
	if o.Count <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCount, o.Count)
	}

	runID := o.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := o.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	logger = logger.WithField("run_id", runID)

	plan := Plan(o.Routes, o.Count, o.Seed)
	results := make([]trip.Result, len(plan))

	logger.WithFields(log.Fields{
		"trips":          o.Count,
		"routes":         len(o.Routes),
		"seed":           o.Seed,
		"max_concurrent": o.MaxConcurrent,
	}).Info("Starting fleet")

	started := time.Now()
	var g errgroup.Group
	if o.MaxConcurrent > 0 {
		g.SetLimit(o.MaxConcurrent)
	}
	for i, routeID := range plan {
		i, routeID := i, routeID
		tripID := fmt.Sprintf("%s-%d", runID[:min(8, len(runID))], i+1)
		g.Go(func() error {
			results[i] = o.Runner.Run(ctx, tripID, routeID)
			return results[i].Err
		})
	}
	// Wait reports only the first failure; the full picture is in results.
	_ = g.Wait()

	report := &Report{RunID: runID, Results: results, Elapsed: time.Since(started)}
	report.Log(logger)
	return report, nil
}
