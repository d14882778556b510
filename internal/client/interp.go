package client

import "github.com/mcoot/shapesync/internal/model"

// DefaultSmoothingRate is how much of the remaining distance a remote
// entity covers per second
const DefaultSmoothingRate = 10.0

// Approach moves current toward target by min(1, rate*dt) of the remaining
// distance. The fraction is clamped, so it never overshoots.
func Approach(current, target model.Vec2, rate, dt float64) model.Vec2 {
	f := rate * dt
	switch {
	case f <= 0:
		return current
	case f >= 1:
		return target
	}
	return current.Add(target.Sub(current).Scale(f))
}
