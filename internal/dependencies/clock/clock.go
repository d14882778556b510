package clock

import "time"

// Clock provides time operations that can be mocked for testing
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the system clock
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current time
func (c *RealClock) Now() time.Time {
	return time.Now()
}

// Seconds returns the time elapsed on c since t, in seconds. A clock that
// moved backwards yields zero.
func Seconds(c Clock, t time.Time) float64 {
	d := c.Now().Sub(t)
	if d < 0 {
		return 0
	}
	return d.Seconds()
}
