// Package oracle abstracts the passenger-flow decision a door-open event
// needs: how many people board and how many alight. Isolated from the core
// per spec.md so tests can supply fixed sequences instead of the
// nondeterministic default.
package oracle

import (
	"math/rand"

	"multivator/internal/types"
)

// PassengerOracle decides, at a door-open event, how many passengers board
// and how many alight. The core clamps the result to capacity/passengers
// bounds; the oracle itself is not required to respect them (an
// over-boarding answer is how the overload path in Car is exercised).
type PassengerOracle interface {
	Decide(view types.CarView) (boarding, alighting int)
}

// Random is the production oracle: a uniform-ish pseudo-random passenger
// flow, bounded loosely by capacity so the common case doesn't trigger
// overload on every stop.
type Random struct {
	maxBoarding int
}

// NewRandom returns a Random oracle that never proposes boarding more than
// maxBoarding people per stop (before the core's capacity clamp).
func NewRandom(maxBoarding int) *Random {
	if maxBoarding <= 0 {
		maxBoarding = 5
	}
	return &Random{maxBoarding: maxBoarding}
}

func (r *Random) Decide(view types.CarView) (boarding, alighting int) {
	boarding = rand.Intn(r.maxBoarding + 1)
	if view.Passengers > 0 {
		alighting = rand.Intn(view.Passengers + 1)
	}
	return boarding, alighting
}

var _ PassengerOracle = (*Random)(nil)
