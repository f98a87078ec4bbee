package trip

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ukydev/fleet-trip-simulator/internal/models"
)

// event is one outbound call observed by fakeSubmitter, in call order.
type event struct {
	kind      string // "batch" or "status"
	vehicleID string
	batch     []models.Position
	status    models.StatusCode
}

type fakeSubmitter struct {
	mu         sync.Mutex
	events     []event
	failBatch  int // 1-based batch number to fail, 0 = never
	failStatus models.StatusCode
	failOnStat bool
	batches    int
}

func (f *fakeSubmitter) SubmitBatch(_ context.Context, vehicleID string, batch []models.Position) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches++
	if f.failBatch != 0 && f.batches == f.failBatch {
		return errors.New("503 Service Unavailable")
	}
	cp := append([]models.Position(nil), batch...)
	f.events = append(f.events, event{kind: "batch", vehicleID: vehicleID, batch: cp})
	return nil
}

func (f *fakeSubmitter) SubmitStatus(_ context.Context, vehicleID string, status models.StatusCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOnStat && status == f.failStatus {
		return errors.New("connection refused")
	}
	f.events = append(f.events, event{kind: "status", vehicleID: vehicleID, status: status})
	return nil
}

func (f *fakeSubmitter) snapshot() []event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]event(nil), f.events...)
}

type fakeIdentity struct {
	mu    sync.Mutex
	ids   []string
	calls int
	err   error
}

func (f *fakeIdentity) ResolveIdentity(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.ids) == 0 {
		return fmt.Sprintf("veh-%d", f.calls), nil
	}
	return f.ids[(f.calls-1)%len(f.ids)], nil
}

type mapSource map[string][]models.Coordinate

func (m mapSource) Load(_ context.Context, id string) ([]models.Coordinate, error) {
	coords, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("route %s: %w", id, errRouteMissing)
	}
	return coords, nil
}

var errRouteMissing = errors.New("missing")

// recordingSleeper returns immediately and remembers the requested waits.
type recordingSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	s.mu.Unlock()
	return ctx.Err()
}

func straightRoute(n int) []models.Coordinate {
	coords := make([]models.Coordinate, n)
	for i := range coords {
		coords[i] = models.Coordinate{Lat: 51.44 + float64(i)*0.001, Lon: 5.47}
	}
	return coords
}

type countingRecorder struct {
	mu       sync.Mutex
	started  int
	finished map[string]int
	batches  int
	points   int
	statuses map[models.StatusCode]int
	failures map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		finished: map[string]int{},
		statuses: map[models.StatusCode]int{},
		failures: map[string]int{},
	}
}

func (c *countingRecorder) TripStarted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started++
}

func (c *countingRecorder) TripFinished(state string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finished[state]++
}

func (c *countingRecorder) BatchSent(points int, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches++
	c.points += points
}

func (c *countingRecorder) StatusSent(status models.StatusCode, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[status]++
}

func (c *countingRecorder) SendFailed(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[kind]++
}
