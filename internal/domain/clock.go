package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock stamps CollectedAt on normalized events. Tests and the fixture tools
// freeze it so snapshots are reproducible.
var clock = clockwork.NewRealClock()

// SetClock replaces the time source. Passing nil restores the real clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Now returns the current time from the package clock, in UTC.
func Now() time.Time {
	return clock.Now().UTC()
}
