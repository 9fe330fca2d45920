package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze time via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source used for request tokens and the fallback
// walk date. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Now returns the current time from the package clock.
func Now() time.Time {
	return clock.Now()
}

// Today returns the current UTC calendar date in ISO form.
func Today() string {
	return clock.Now().UTC().Format(isoLayout)
}

// RequestToken returns a cache-busting token for the current instant
// (milliseconds since the Unix epoch). Tokens never decrease while the
// clock moves forward.
func RequestToken() int64 {
	return clock.Now().UnixMilli()
}
