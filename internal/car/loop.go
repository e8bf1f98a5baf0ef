package car

import (
	"fmt"

	"multivator/internal/types"
)

// run is the Car's control loop: the single goroutine that owns every
// mutation of the car's state (I9). It holds c.mu for the whole iteration
// except while blocked in cond.Wait or around a clock.Sleep tick, both of
// which release the lock so Enqueue/TriggerEmergency/SetMaintenance calls
// from other goroutines are never starved out.
func (c *Car) run() {
	c.mu.Lock()
	defer func() {
		if r := recover(); r != nil {
			c.failed = true
			c.failReason = fmt.Errorf("car %d: recovered: %v", c.id, r)
			c.emit(types.EventCarFailed, fmt.Sprintf("car failed: %v", r))
		}
		c.running = false
		c.mu.Unlock()
		close(c.done)
	}()

	for {
		if c.stopRequested {
			return
		}
		if c.emergencyLatch {
			c.handleEmergencyLocked()
			continue
		}
		if c.maintenanceLatch {
			c.handleMaintenanceLocked()
			continue
		}

		for !c.wakeConditionLocked() {
			c.cond.Wait()
		}
		if c.stopRequested {
			return
		}
		if c.emergencyLatch || c.maintenanceLatch {
			continue
		}

		// A same-floor request arrived while doors were open at the end of
		// the previous stop cycle (§4.1.7's "keep re-running the stop cycle
		// rather than moving" case): re-open immediately instead of taking a
		// motion step away from the floor we're already at.
		if c.state == types.DoorsOpen {
			c.stopCycleLocked()
			if c.stopRequested {
				return
			}
			if c.emergencyLatch || c.maintenanceLatch {
				continue
			}
			c.updateStateLocked()
			continue
		}

		if c.state == types.Idle {
			target, ok := c.nextTargetLocked()
			if !ok {
				continue
			}
			if target >= c.currentFloor {
				c.state, c.direction = types.MovingUp, types.DirUp
			} else {
				c.state, c.direction = types.MovingDown, types.DirDown
			}
		}

		c.stepMotionLocked()
		if c.stopRequested {
			return
		}
		if c.emergencyLatch || c.maintenanceLatch {
			continue
		}

		if c.shouldStopHereLocked() {
			c.stopCycleLocked()
			if c.stopRequested {
				return
			}
			if c.emergencyLatch || c.maintenanceLatch {
				continue
			}
		}

		c.updateStateLocked()
	}
}

// wakeConditionLocked reports whether the loop has a reason to stop waiting:
// pending work, a latch, or a stop request (§4.1 step 3).
func (c *Car) wakeConditionLocked() bool {
	return len(c.internalCalls) > 0 || len(c.hallCalls) > 0 ||
		c.emergencyLatch || c.maintenanceLatch || c.stopRequested
}

// handleEmergencyLocked implements §4.1.1.
func (c *Car) handleEmergencyLocked() {
	c.state = types.EmergencyStopped
	c.emit(types.EventEmergencyActivated, fmt.Sprintf("emergency activated at floor %d", c.currentFloor))

	for c.emergencyLatch && !c.stopRequested {
		c.mu.Unlock()
		c.clock.Sleep(c.timing.EmergencyPoll)
		c.mu.Lock()
	}
	if c.stopRequested {
		return
	}

	c.state = types.Idle
	c.direction = types.DirStop
	c.emit(types.EventEmergencyCleared, fmt.Sprintf("emergency cleared at floor %d", c.currentFloor))
}

// handleMaintenanceLocked implements §4.1.2.
func (c *Car) handleMaintenanceLocked() {
	c.state = types.Maintenance
	c.emit(types.EventMaintenanceEntered, fmt.Sprintf("maintenance entered at floor %d", c.currentFloor))

	for c.maintenanceLatch && !c.stopRequested {
		c.mu.Unlock()
		c.clock.Sleep(c.timing.MaintenancePoll)
		c.mu.Lock()
	}
	if c.stopRequested {
		return
	}

	c.state = types.Idle
	c.direction = types.DirStop
	c.lastMaintenanceAt = c.clock.Now()
	c.emit(types.EventMaintenanceExited, fmt.Sprintf("maintenance exited at floor %d", c.currentFloor))
}

// nextTargetLocked implements §4.1.3.
func (c *Car) nextTargetLocked() (types.Floor, bool) {
	if len(c.internalCalls) > 0 {
		switch c.direction {
		case types.DirUp:
			if f, ok := c.smallestAboveLocked(c.currentFloor); ok {
				return f, true
			}
		case types.DirDown:
			if f, ok := c.largestBelowLocked(c.currentFloor); ok {
				return f, true
			}
		}
		return c.smallestInternalCallLocked(), true
	}

	if f, ok := c.onTheWayHallCallLocked(); ok {
		return f, true
	}
	return c.nearestHallCallLocked()
}

func (c *Car) smallestAboveLocked(floor types.Floor) (types.Floor, bool) {
	best, found := types.Floor(0), false
	for f := range c.internalCalls {
		if f > floor && (!found || f < best) {
			best, found = f, true
		}
	}
	return best, found
}

func (c *Car) largestBelowLocked(floor types.Floor) (types.Floor, bool) {
	best, found := types.Floor(0), false
	for f := range c.internalCalls {
		if f < floor && (!found || f > best) {
			best, found = f, true
		}
	}
	return best, found
}

func (c *Car) smallestInternalCallLocked() types.Floor {
	best, found := types.Floor(0), false
	for f := range c.internalCalls {
		if !found || f < best {
			best, found = f, true
		}
	}
	return best
}

// onTheWayHallCallLocked implements §4.1.3 step 2: the nearest hall call
// that is an up call at or above the current floor or a down call at or
// below it (lowest floor on ties). The car's own travel direction is not
// consulted.
func (c *Car) onTheWayHallCallLocked() (types.Floor, bool) {
	best, found := types.Floor(0), false
	bestDiff := 0
	for f, hc := range c.hallCalls {
		onWay := (f >= c.currentFloor && hc.UpPressed) || (f <= c.currentFloor && hc.DownPressed)
		if !onWay {
			continue
		}
		diff := absFloor(f - c.currentFloor)
		if !found || diff < bestDiff || (diff == bestDiff && f < best) {
			best, bestDiff, found = f, diff, true
		}
	}
	return best, found
}

// nearestHallCallLocked implements §4.1.3 step 3: any pressed hall call,
// nearest first, lowest floor on ties.
func (c *Car) nearestHallCallLocked() (types.Floor, bool) {
	best, found := types.Floor(0), false
	bestDiff := 0
	for f := range c.hallCalls {
		diff := absFloor(f - c.currentFloor)
		if !found || diff < bestDiff || (diff == bestDiff && f < best) {
			best, bestDiff, found = f, diff, true
		}
	}
	return best, found
}

func absFloor(f types.Floor) int {
	if f < 0 {
		return int(-f)
	}
	return int(f)
}

// stepMotionLocked implements §4.1.4.
func (c *Car) stepMotionLocked() {
	dir := c.direction

	c.mu.Unlock()
	c.clock.Sleep(c.timing.FloorTravel)
	c.mu.Lock()

	switch dir {
	case types.DirUp:
		c.currentFloor++
	case types.DirDown:
		c.currentFloor--
	}
	c.totalFloors++
	c.emit(types.EventArrivedAtFloor, fmt.Sprintf("arrived at floor %d", c.currentFloor))
}

// shouldStopHereLocked implements §4.1.5.
func (c *Car) shouldStopHereLocked() bool {
	if _, ok := c.internalCalls[c.currentFloor]; ok {
		return true
	}
	hc, ok := c.hallCalls[c.currentFloor]
	if !ok {
		return false
	}
	switch c.state {
	case types.MovingUp:
		return hc.UpPressed
	case types.MovingDown:
		return hc.DownPressed
	case types.Idle:
		return hc.UpPressed || hc.DownPressed
	default:
		return false
	}
}

// stopCycleLocked implements §4.1.6. PassengerOracle.Decide must observe
// state_before_open (the state the car was in immediately before this stop,
// e.g. MovingUp/MovingDown/Idle), not DoorsOpen — so preOpenState is captured
// before the state flips, and only re-captured on a fresh stop (not on a
// same-floor re-run where c.state already reads DoorsOpen).
func (c *Car) stopCycleLocked() {
	if c.state != types.DoorsOpen {
		c.preOpenState = c.state
	}
	c.state = types.DoorsOpen
	c.emit(types.EventDoorOpen, fmt.Sprintf("door open at floor %d", c.currentFloor))

	c.mu.Unlock()
	c.clock.Sleep(c.timing.DoorOpen)
	c.mu.Lock()

	view := c.snapshotLocked()
	view.State = c.preOpenState
	boarding, alighting := c.oracle.Decide(view)

	maxBoard := c.capacity - c.passengers
	overload := boarding > maxBoard

	clampedBoarding := clampInt(boarding, 0, maxBoard)
	clampedAlighting := clampInt(alighting, 0, c.passengers)
	c.passengers += clampedBoarding - clampedAlighting

	if overload {
		c.overloadFlag = true
		c.emit(types.EventOverload, fmt.Sprintf("overload at floor %d", c.currentFloor))
		c.mu.Unlock()
		c.clock.Sleep(c.timing.Overload)
		c.mu.Lock()
	}

	c.emit(types.EventDoorClose, fmt.Sprintf("door close at floor %d", c.currentFloor))
	c.mu.Unlock()
	c.clock.Sleep(c.timing.DoorClose)
	c.mu.Lock()

	c.overloadFlag = false

	delete(c.internalCalls, c.currentFloor)
	hc := c.hallCalls[c.currentFloor]
	switch c.direction {
	case types.DirUp:
		hc.UpPressed = false
	case types.DirDown:
		hc.DownPressed = false
	default:
		hc.UpPressed = false
		hc.DownPressed = false
	}
	if hc.Empty() {
		delete(c.hallCalls, c.currentFloor)
	} else {
		c.hallCalls[c.currentFloor] = hc
	}

	c.totalStops++
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// updateStateLocked implements §4.1.7.
func (c *Car) updateStateLocked() {
	if len(c.internalCalls) == 0 && len(c.hallCalls) == 0 {
		c.state = types.Idle
		c.direction = types.DirStop
		return
	}

	target, ok := c.nextTargetLocked()
	if !ok {
		c.state = types.Idle
		c.direction = types.DirStop
		return
	}

	switch {
	case target > c.currentFloor:
		c.state, c.direction = types.MovingUp, types.DirUp
	case target < c.currentFloor:
		c.state, c.direction = types.MovingDown, types.DirDown
	default:
		// A new request landed on the floor we're already at: stay in
		// DoorsOpen so the next iteration re-runs the stop cycle in place
		// instead of stepping away from the floor that still needs service.
		// If the only hall bit left here is the opposite one, turn the
		// direction so that re-run clears it.
		c.state = types.DoorsOpen
		if hc, ok := c.hallCalls[c.currentFloor]; ok {
			if c.direction == types.DirUp && !hc.UpPressed {
				c.direction = types.DirDown
			} else if c.direction == types.DirDown && !hc.DownPressed {
				c.direction = types.DirUp
			}
		}
	}
}
