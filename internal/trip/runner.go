package trip

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ukydev/fleet-trip-simulator/internal/models"
	"github.com/ukydev/fleet-trip-simulator/internal/route"
)

var tracer = otel.Tracer("github.com/ukydev/fleet-trip-simulator/internal/trip")

// IdentityResolver obtains the vehicle identity a trip reports under.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context) (string, error)
}

// Submitter delivers telemetry and status reports to the ingestion service.
type Submitter interface {
	SubmitBatch(ctx context.Context, vehicleID string, batch []models.Position) error
	SubmitStatus(ctx context.Context, vehicleID string, status models.StatusCode) error
}

// Recorder observes trip progress. Implementations must be safe for concurrent use.
type Recorder interface {
	TripStarted()
	TripFinished(state string)
	BatchSent(points int, took time.Duration)
	StatusSent(status models.StatusCode, took time.Duration)
	SendFailed(kind string)
}

// Settings are the pacing parameters shared by every trip of a run.
type Settings struct {
	PointInterval  time.Duration // simulated time between route points, also the pacing unit
	BatchSize      int
	TimeFactor     float64
	StatusInterval time.Duration
}

// Runner plays trips. A single Runner is safe to use from many goroutines;
// all per-trip state lives in Run.
type Runner struct {
	Settings Settings
	Identity IdentityResolver
	Routes   route.Source
	Submit   Submitter

	Sleeper  Sleeper          // defaults to WallClock
	Now      func() time.Time // defaults to time.Now
	Recorder Recorder         // optional
	Logger   *log.Entry       // defaults to the standard logrus logger
}

// Result is the terminal outcome of one trip.
type Result struct {
	TripID    string
	RouteID   string
	VehicleID string
	State     State
	Batches   int
	Points    int
	Statuses  int
	Started   time.Time
	Finished  time.Time
	Err       error
}

// OK reports whether the trip reached StateDone.
func (r Result) OK() bool { return r.State == StateDone }

// Run plays routeID from identity resolution to the final arrival status.
// It never panics on remote failures; the returned Result carries the
// terminal state and, for failed trips, an *Error.
func (r *Runner) Run(ctx context.Context, tripID, routeID string) Result {
	res := Result{TripID: tripID, RouteID: routeID, Started: r.now()}
	logger := r.logger().WithFields(log.Fields{"trip": tripID, "route": filepath.Base(routeID)})

	ctx, span := tracer.Start(ctx, "trip", trace.WithAttributes(
		attribute.String("trip.id", tripID),
		attribute.String("trip.route", routeID),
	))
	defer span.End()

	rec := r.recorder()
	rec.TripStarted()

	state := StateResolvingIdentity
	fail := func(err error) Result {
		res.State = StateFailed
		res.Err = &Error{State: state, Err: err}
		res.Finished = r.now()
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
		rec.TripFinished(res.State.String())
		logger.WithError(res.Err).WithField("state", state.String()).Error("Trip failed")
		return res
	}

	vehicleID, err := r.resolveIdentity(ctx)
	if err != nil {
		return fail(err)
	}
	res.VehicleID = vehicleID
	logger = logger.WithField("vehicle_id", vehicleID)
	span.SetAttributes(attribute.String("vehicle.id", vehicleID))

	state = StateLoadingRoute
	coords, err := r.Routes.Load(ctx, routeID)
	if err != nil {
		return fail(err)
	}

	s := r.Settings
	points := AssignTimestamps(coords, s.PointInterval, r.now())
	batches := NewBatcher(points, s.BatchSize)
	cadence := NewStatusCadence(s.StatusInterval, s.BatchSize, s.PointInterval)
	pacer := NewPacer(BatchDelay(s.PointInterval, s.BatchSize, s.TimeFactor), r.Sleeper)

	logger.WithFields(log.Fields{
		"points":         len(points),
		"batches":        batches.Remaining(),
		"status_every":   cadence.Threshold(),
		"batch_interval": pacer.Delay(),
	}).Info("Trip started")

	for batch, ok := batches.Next(); ok; batch, ok = batches.Next() {
		state = StateSendingBatch
		if cadence.Due() {
			if err := r.sendStatus(ctx, vehicleID, models.StatusEnRoute); err != nil {
				return fail(err)
			}
			cadence.Reported()
			res.Statuses++
		}

		if err := r.sendBatch(ctx, vehicleID, res.Batches, batch); err != nil {
			return fail(err)
		}
		res.Batches++
		res.Points += len(batch)
		cadence.BatchSent()
		logger.WithFields(log.Fields{"batch": res.Batches, "points": len(batch)}).Debug("Sent batch")

		if batches.Remaining() == 0 {
			break
		}
		state = StatePacing
		if err := pacer.Wait(ctx); err != nil {
			return fail(err)
		}
	}

	state = StateSendingFinalStatus
	if err := r.sendStatus(ctx, vehicleID, models.StatusArrived); err != nil {
		return fail(err)
	}
	res.Statuses++

	res.State = StateDone
	res.Finished = r.now()
	rec.TripFinished(res.State.String())
	logger.WithFields(log.Fields{
		"batches":  res.Batches,
		"points":   res.Points,
		"statuses": res.Statuses,
		"duration": res.Finished.Sub(res.Started).Round(time.Millisecond),
	}).Info("Trip arrived")
	return res
}

func (r *Runner) resolveIdentity(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "resolve_identity")
	defer span.End()

	id, err := r.Identity.ResolveIdentity(ctx)
	if err != nil {
		span.RecordError(err)
		r.recorder().SendFailed("identity")
		return "", fmt.Errorf("%w: %w", ErrIdentityResolution, err)
	}
	if id == "" {
		r.recorder().SendFailed("identity")
		return "", fmt.Errorf("%w: empty vehicle identity", ErrIdentityResolution)
	}
	return id, nil
}

func (r *Runner) sendBatch(ctx context.Context, vehicleID string, index int, batch []models.Position) error {
	ctx, span := tracer.Start(ctx, "submit_batch", trace.WithAttributes(
		attribute.Int("batch.index", index),
		attribute.Int("batch.points", len(batch)),
	))
	defer span.End()

	start := time.Now()
	if err := r.Submit.SubmitBatch(ctx, vehicleID, batch); err != nil {
		span.RecordError(err)
		r.recorder().SendFailed("batch")
		return fmt.Errorf("%w: batch %d: %w", ErrSubmission, index, err)
	}
	r.recorder().BatchSent(len(batch), time.Since(start))
	return nil
}

func (r *Runner) sendStatus(ctx context.Context, vehicleID string, status models.StatusCode) error {
	ctx, span := tracer.Start(ctx, "submit_status", trace.WithAttributes(
		attribute.String("status", status.String()),
	))
	defer span.End()

	start := time.Now()
	if err := r.Submit.SubmitStatus(ctx, vehicleID, status); err != nil {
		span.RecordError(err)
		r.recorder().SendFailed("status")
		return fmt.Errorf("%w: status %s: %w", ErrSubmission, status, err)
	}
	r.recorder().StatusSent(status, time.Since(start))
	return nil
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) logger() *log.Entry {
	if r.Logger != nil {
		return r.Logger
	}
	return log.NewEntry(log.StandardLogger())
}

func (r *Runner) recorder() Recorder {
	if r.Recorder != nil {
		return r.Recorder
	}
	return nopRecorder{}
}

type nopRecorder struct{}

func (nopRecorder) TripStarted()                                {}
func (nopRecorder) TripFinished(string)                         {}
func (nopRecorder) BatchSent(int, time.Duration)                {}
func (nopRecorder) StatusSent(models.StatusCode, time.Duration) {}
func (nopRecorder) SendFailed(string)                           {}
