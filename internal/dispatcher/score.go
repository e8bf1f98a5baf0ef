package dispatcher

import (
	"math"

	deepcopy "github.com/tiendc/go-deepcopy"

	"multivator/internal/types"
)

// score implements SPEC_FULL.md §4.2.1 exactly: a car latched in emergency,
// maintenance, or failed scores +∞ and is never chosen; otherwise distance
// plus three bias terms.
func score(view types.CarView, req types.RequestKind) int {
	if view.Emergency || view.Maintenance || view.Failed {
		return math.MaxInt
	}

	distance := absFloor(view.CurrentFloor - req.Floor)
	loadBias := 0
	if view.Capacity > 0 {
		loadBias = (view.Passengers * 10) / view.Capacity
	}
	return distance + directionBias(view, req.Floor) + loadBias + kindMismatchBias(view.State, req.Kind)
}

// diagnosticScore scores a deep copy of view rather than view itself,
// mirroring multivator's elev.Cost/cost_function.go pattern of deep-copying
// an elevator's state before simulating an order's hypothetical effect on
// it. The result is numerically identical to score(view, req); the deep
// copy exists so a future caller that wants to mutate the projection (e.g.
// to chain a second hypothetical request) never risks aliasing the live
// snapshot's maps.
func diagnosticScore(view types.CarView, req types.RequestKind) (int, error) {
	var projected types.CarView
	if err := deepcopy.Copy(&projected, &view); err != nil {
		return 0, err
	}
	return score(projected, req), nil
}

func directionBias(view types.CarView, target types.Floor) int {
	switch view.State {
	case types.MovingUp:
		if view.CurrentFloor <= target {
			return -10
		}
		return 10
	case types.MovingDown:
		if view.CurrentFloor >= target {
			return -10
		}
		return 10
	case types.Idle:
		return -5
	case types.DoorsOpen:
		// Transient state: score as though the car were still heading the
		// way it was before the doors opened (§4.2.1's "other transient
		// states" rule, resolving the open question spec.md flags about
		// DoorsOpen scoring by making the fallback explicit).
		return directionBiasForLastDirection(view, target)
	default:
		return 0
	}
}

func directionBiasForLastDirection(view types.CarView, target types.Floor) int {
	switch view.LastDirection {
	case types.DirUp:
		if view.CurrentFloor <= target {
			return -10
		}
		return 10
	case types.DirDown:
		if view.CurrentFloor >= target {
			return -10
		}
		return 10
	default:
		return 0
	}
}

func kindMismatchBias(state types.CarState, kind types.Kind) int {
	if kind == types.HallUp && state == types.MovingDown {
		return 5
	}
	if kind == types.HallDown && state == types.MovingUp {
		return 5
	}
	return 0
}

func absFloor(f types.Floor) int {
	if f < 0 {
		return int(-f)
	}
	return int(f)
}
