package trip

import (
	"context"
	"math"
	"time"
)

// Sleeper suspends the caller for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

// WallClock sleeps in real time.
var WallClock Sleeper = SleeperFunc(sleepContext)

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// BatchDelay is the real span of one batch compressed by timeFactor:
// pointInterval * batchSize / timeFactor. Send latency is not subtracted.
// A factor that is not a finite positive number is treated as 1.
func BatchDelay(pointInterval time.Duration, batchSize int, timeFactor float64) time.Duration {
	if !(timeFactor > 0) || math.IsInf(timeFactor, 0) {
		timeFactor = 1
	}
	return time.Duration(float64(pointInterval) * float64(batchSize) / timeFactor)
}

// Pacer waits a fixed delay between batches.
type Pacer struct {
	delay   time.Duration
	sleeper Sleeper
}

func NewPacer(delay time.Duration, sleeper Sleeper) *Pacer {
	if sleeper == nil {
		sleeper = WallClock
	}
	return &Pacer{delay: delay, sleeper: sleeper}
}

// Delay returns the configured wait.
func (p *Pacer) Delay() time.Duration { return p.delay }

// Wait blocks for the batch delay.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.sleeper.Sleep(ctx, p.delay)
}
