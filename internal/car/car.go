// Package car implements a single elevator's state machine and control loop:
// the "hard part" of the system (SPEC_FULL.md §4.1). Concurrency primitive:
// one sync.Mutex + sync.Cond pair per Car, directly mirroring the
// mutex/condition_variable pair in original_source/elevator.cpp — option (a)
// of spec.md's Design Notes. A Car's mutation is owned exclusively by its own
// control-loop goroutine (I9); every exported method either mutates under
// the lock and signals the loop, or reads a lock-protected Snapshot. The loop
// releases the lock around every clock.Sleep tick and while parked in
// cond.Wait, so Enqueue/TriggerEmergency/SetMaintenance from other goroutines
// are never blocked for longer than the current tick.
package car

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"multivator/internal/clock"
	"multivator/internal/eventsink"
	"multivator/internal/oracle"
	"multivator/internal/types"
)

// Car owns one elevator's state, its pending requests, and the goroutine
// that advances its state machine.
type Car struct {
	id        int
	maxFloors int
	capacity  int

	clock  clock.Clock
	oracle oracle.PassengerOracle
	sink   eventsink.EventSink

	timing Timing

	mu   sync.Mutex
	cond *sync.Cond

	currentFloor      types.Floor
	state             types.CarState
	preOpenState      types.CarState
	direction         types.Direction
	passengers        int
	overloadFlag      bool
	internalCalls     map[types.Floor]struct{}
	hallCalls         map[types.Floor]types.HallCall
	emergencyLatch    bool
	maintenanceLatch  bool
	stopRequested     bool
	running           bool
	failed            bool
	failReason        error
	totalStops        int
	totalFloors       int
	startedAt         time.Time
	lastMaintenanceAt time.Time

	done chan struct{}
}

// Timing collects the tick durations a Car's control loop blocks on.
// See SPEC_FULL.md §6.
type Timing struct {
	FloorTravel     time.Duration
	DoorOpen        time.Duration
	DoorClose       time.Duration
	Overload        time.Duration
	EmergencyPoll   time.Duration
	MaintenancePoll time.Duration
}

// New constructs a Car in its initial Idle state at floor 1. It does not
// start the control loop; call Start for that.
func New(id, maxFloors, capacity int, timing Timing, clk clock.Clock, orc oracle.PassengerOracle, sink eventsink.EventSink) *Car {
	c := &Car{
		id:            id,
		maxFloors:     maxFloors,
		capacity:      capacity,
		clock:         clk,
		oracle:        orc,
		sink:          sink,
		timing:        timing,
		currentFloor:  1,
		state:         types.Idle,
		internalCalls: make(map[types.Floor]struct{}),
		hallCalls:     make(map[types.Floor]types.HallCall),
		done:          make(chan struct{}),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// ID returns the car's immutable identifier.
func (c *Car) ID() int { return c.id }

// FailReason returns the error recovered from a panic in the control loop,
// or nil if the car has not failed (I10).
func (c *Car) FailReason() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failReason
}

// Start launches the control-loop goroutine.
func (c *Car) Start() {
	c.mu.Lock()
	c.running = true
	c.startedAt = c.clock.Now()
	c.mu.Unlock()
	go c.run()
}

// Stop asks the control loop to exit at its next observable quiescence and
// blocks until it has.
func (c *Car) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.stopRequested = true
	c.cond.Broadcast()
	c.mu.Unlock()
	<-c.done
}

// Enqueue accepts or rejects a new request kind, per SPEC_FULL.md §4.1.
func (c *Car) Enqueue(kind types.RequestKind) error {
	if kind.Floor < 1 || int(kind.Floor) > c.maxFloors {
		return types.ErrInvalidFloor
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.failed {
		return types.ErrShutdown
	}
	if c.maintenanceLatch {
		return types.ErrInMaintenance
	}

	switch kind.Kind {
	case types.CarCall:
		c.internalCalls[kind.Floor] = struct{}{}
	case types.HallUp:
		hc := c.hallCalls[kind.Floor]
		hc.UpPressed = true
		c.hallCalls[kind.Floor] = hc
	case types.HallDown:
		hc := c.hallCalls[kind.Floor]
		hc.DownPressed = true
		c.hallCalls[kind.Floor] = hc
	}

	c.emit(types.EventEnqueueAccepted, fmt.Sprintf("enqueue accepted: %s(%d)", kind.Kind, kind.Floor))
	c.cond.Broadcast()
	return nil
}

// TriggerEmergency sets the emergency latch and wakes the control loop.
// Idempotent.
func (c *Car) TriggerEmergency() {
	c.mu.Lock()
	c.emergencyLatch = true
	c.cond.Broadcast()
	c.mu.Unlock()
}

// ClearEmergency clears the emergency latch and wakes the control loop.
func (c *Car) ClearEmergency() {
	c.mu.Lock()
	c.emergencyLatch = false
	c.cond.Broadcast()
	c.mu.Unlock()
}

// SetMaintenance sets or clears the maintenance latch and wakes the control
// loop.
func (c *Car) SetMaintenance(on bool) {
	c.mu.Lock()
	c.maintenanceLatch = on
	c.cond.Broadcast()
	c.mu.Unlock()
}

// Snapshot returns an atomic, consistent read-only view of the car (I1-I10).
func (c *Car) Snapshot() types.CarView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Car) snapshotLocked() types.CarView {
	internal := make(map[types.Floor]struct{}, len(c.internalCalls))
	for f := range c.internalCalls {
		internal[f] = struct{}{}
	}
	hall := make(map[types.Floor]types.HallCall, len(c.hallCalls))
	for f, v := range c.hallCalls {
		hall[f] = v
	}
	return types.CarView{
		ID:                  c.id,
		CurrentFloor:        c.currentFloor,
		State:               c.state,
		Passengers:          c.passengers,
		Capacity:            c.capacity,
		MaxFloors:           c.maxFloors,
		InternalCalls:       internal,
		HallCalls:           hall,
		Emergency:           c.emergencyLatch,
		Maintenance:         c.maintenanceLatch,
		Failed:              c.failed,
		OverloadFlag:        c.overloadFlag,
		LastDirection:       c.direction,
		TotalStops:          c.totalStops,
		TotalFloorsTraveled: c.totalFloors,
		StartedAt:           c.startedAt,
		LastMaintenanceAt:   c.lastMaintenanceAt,
	}
}

// emit must be called with c.mu held.
func (c *Car) emit(kind types.EventKind, msg string) {
	if c.sink == nil {
		return
	}
	c.sink.Emit(types.Event{
		ID:        uuid.NewString(),
		Timestamp: c.clock.Now(),
		CarID:     c.id,
		Kind:      kind,
		Message:   msg,
	})
}
