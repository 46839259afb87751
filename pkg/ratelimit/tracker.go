package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	rateLimitLockoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airtable_rate_limit_lockouts_total",
		Help: "Total number of 429 responses that started a lockout",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airtable_rate_limit_blocks_total",
		Help: "Total number of requests refused during a lockout",
	})

	rateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airtable_rate_limit_waits_total",
		Help: "Total number of requests delayed by the request-rate ceiling",
	})
)

// Tracker gates outgoing requests.
type Tracker struct {
	limiter *rate.Limiter
	store   Store
	logger  zerolog.Logger
	now     func() time.Time
}

// NewTracker returns a tracker allowing requestsPerSecond with a burst of
// one. A non-positive rate removes the ceiling. A nil store means an
// in-memory one.
func NewTracker(requestsPerSecond int, store Store, logger zerolog.Logger) *Tracker {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return &Tracker{
		limiter: rate.NewLimiter(limit, 1),
		store:   store,
		logger:  logger,
		now:     time.Now,
	}
}

// Store returns the lockout store.
func (t *Tracker) Store() Store {
	return t.store
}

// Wait blocks until a request may be sent. It fails fast with
// ErrRateLimited while a lockout is active.
func (t *Tracker) Wait(ctx context.Context) error {
	state, err := t.store.Get(ctx)
	if err != nil {
		return fmt.Errorf("get lockout state: %w", err)
	}

	now := t.now()
	if state.Active(now) {
		remaining := state.Remaining(now)
		t.logger.Warn().
			Dur("remaining", remaining).
			Time("locked_until", state.LockedUntil).
			Msg("Request blocked by rate limit lockout")
		rateLimitBlocksTotal.Inc()
		return fmt.Errorf("%w: retry in %s", ErrRateLimited, remaining.Round(time.Millisecond))
	}

	if t.limiter.Allow() {
		return nil
	}

	rateLimitWaitsTotal.Inc()
	t.logger.Debug().Msg("Request delayed by rate ceiling")
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for rate limiter: %w", err)
	}
	return nil
}

// RecordThrottle starts a lockout after a 429 response. The length comes
// from Retry-After when present, DefaultLockout otherwise.
func (t *Tracker) RecordThrottle(ctx context.Context, headers http.Header) error {
	lockout := DefaultLockout
	if s := headers.Get("Retry-After"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
			lockout = time.Duration(secs) * time.Second
		}
	}

	now := t.now()
	state := LockoutState{
		LockedUntil: now.Add(lockout),
		ThrottledAt: now,
	}
	if err := t.store.Set(ctx, state); err != nil {
		return fmt.Errorf("store lockout state: %w", err)
	}

	rateLimitLockoutsTotal.Inc()
	t.logger.Warn().
		Dur("lockout", lockout).
		Time("locked_until", state.LockedUntil).
		Msg("Rate limit exceeded - requests paused")
	return nil
}
