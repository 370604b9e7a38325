package dispatch

import "time"

// Clock abstracts wall-clock access so scoring, SLA checks and the
// escalation sweep can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }
