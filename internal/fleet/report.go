package fleet

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-trip-simulator/internal/trip"
)

// Report is the outcome of one fleet run, one result per launched trip in launch order.
type Report struct {
	RunID   string
	Results []trip.Result
	Elapsed time.Duration
}

// Succeeded counts trips that reached trip.StateDone.
func (r *Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.OK() {
			n++
		}
	}
	return n
}

// Failed returns the trips that ended in trip.StateFailed.
func (r *Report) Failed() []trip.Result {
	var failed []trip.Result
	for _, res := range r.Results {
		if !res.OK() {
			failed = append(failed, res)
		}
	}
	return failed
}

// Err joins the errors of all failed trips, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, fmt.Errorf("trip %s (%s): %w", res.TripID, filepath.Base(res.RouteID), res.Err))
	}
	return errors.Join(errs...)
}

// Log writes one line per failed trip and a summary.
func (r *Report) Log(logger *log.Entry) {
	for _, res := range r.Failed() {
		logger.WithError(res.Err).WithFields(log.Fields{
			"trip":       res.TripID,
			"route":      filepath.Base(res.RouteID),
			"vehicle_id": res.VehicleID,
			"batches":    res.Batches,
		}).Warn("Trip did not arrive")
	}

	points := 0
	for _, res := range r.Results {
		points += res.Points
	}
	entry := logger.WithFields(log.Fields{
		"trips":     len(r.Results),
		"succeeded": r.Succeeded(),
		"failed":    len(r.Results) - r.Succeeded(),
		"points":    points,
		"elapsed":   r.Elapsed.Round(time.Millisecond),
	})
	if r.Succeeded() == len(r.Results) {
		entry.Info("Fleet run completed")
		return
	}
	entry.Warn("Fleet run completed with failures")
}
