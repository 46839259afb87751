package ratelimit

import (
	"context"
	"time"
)

// Pacer sleeps a fixed interval. Multi-request operations call Wait
// strictly between successive requests. It does not adapt to responses.
type Pacer struct {
	interval time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewPacer returns a pacer with interval 1/requestsPerSecond. A
// non-positive rate falls back to RequestsPerSecond.
func NewPacer(requestsPerSecond int) *Pacer {
	if requestsPerSecond <= 0 {
		requestsPerSecond = RequestsPerSecond
	}
	return NewPacerInterval(time.Second / time.Duration(requestsPerSecond))
}

// NewPacerInterval returns a pacer sleeping d on every Wait.
func NewPacerInterval(d time.Duration) *Pacer {
	return &Pacer{interval: d, sleep: sleepContext}
}

// Interval returns the pause applied by Wait.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Wait sleeps the interval or returns early with the context's error.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.interval <= 0 {
		return ctx.Err()
	}
	return p.sleep(ctx, p.interval)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
