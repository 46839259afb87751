// Package ratelimit keeps request traffic inside the Airtable rate limit.
//
// Three pieces cooperate:
//   - Pacer sleeps a fixed interval between the steps of multi-request
//     operations (pages of a listing, chunks of a bulk write).
//   - Tracker caps the request rate with a token bucket and gates requests
//     while the server has the caller locked out.
//   - Store keeps the lockout state, in memory or in Redis so several
//     processes sharing one API key see the same lockout.
//
// Airtable allows 5 requests per second per base; exceeding it returns
// HTTP 429 and the caller must wait 30 seconds before further requests
// succeed.
package ratelimit

import (
	"errors"
	"time"
)

// Limits published by the remote service.
const (
	// RequestsPerSecond is the per-base request ceiling.
	RequestsPerSecond = 5

	// DefaultLockout is how long the server rejects requests after a 429.
	DefaultLockout = 30 * time.Second
)

// ErrRateLimited is returned while a lockout is active.
var ErrRateLimited = errors.New("rate limited")

// LockoutState describes a server-imposed lockout.
type LockoutState struct {
	// LockedUntil is when requests may resume. Zero means no lockout.
	LockedUntil time.Time `json:"locked_until"`

	// ThrottledAt is when the 429 that caused the lockout was seen.
	ThrottledAt time.Time `json:"throttled_at"`
}

// Active reports whether requests must still be held back at now.
func (s LockoutState) Active(now time.Time) bool {
	return !s.LockedUntil.IsZero() && now.Before(s.LockedUntil)
}

// Remaining returns the time left before the lockout ends, or 0.
func (s LockoutState) Remaining(now time.Time) time.Duration {
	if !s.Active(now) {
		return 0
	}
	return s.LockedUntil.Sub(now)
}
