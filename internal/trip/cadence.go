package trip

import "time"

// StatusCadence decides, before each batch, whether an en-route status is due.
//
// The threshold is the number of batches that fit in one status interval. The
// counter starts at the threshold so the first batch is always preceded by a
// status. A threshold of zero means every batch is preceded by a status.
type StatusCadence struct {
	threshold int
	sinceLast int
}

// NewStatusCadence derives floor(statusInterval / (batchSize * pointInterval)).
func NewStatusCadence(statusInterval time.Duration, batchSize int, pointInterval time.Duration) *StatusCadence {
	threshold := 0
	if span := time.Duration(batchSize) * pointInterval; span > 0 && statusInterval > 0 {
		threshold = int(statusInterval / span)
	}
	return &StatusCadence{threshold: threshold, sinceLast: threshold}
}

// Threshold is the number of batches between status reports.
func (c *StatusCadence) Threshold() int { return c.threshold }

// Due reports whether a status must be sent before the next batch.
func (c *StatusCadence) Due() bool {
	return c.threshold == 0 || c.sinceLast >= c.threshold
}

// Reported resets the counter after a status was sent.
func (c *StatusCadence) Reported() { c.sinceLast = 0 }

// BatchSent advances the counter after every batch.
func (c *StatusCadence) BatchSent() { c.sinceLast++ }
