// Package dispatcher owns the set of Cars and implements the cross-car
// assignment policy: scoring non-emergency requests to a single car,
// broadcasting emergencies to every car, and pass-through control-plane
// operations. Grounded on multivator's bidding protocol
// (src/dispatcher/dispatcher.go, src/network/bid.go's findBestBid) but
// re-architected for an in-process, single-binary deployment: no network
// round-trip, no message buffer, no peer discovery (see DESIGN.md).
package dispatcher

import (
	"math"

	"multivator/internal/car"
	"multivator/internal/clock"
	"multivator/internal/config"
	"multivator/internal/eventsink"
	"multivator/internal/oracle"
	"multivator/internal/types"
)

// SubmitRequest is the input to Submit: a request kind, whether it is an
// emergency (broadcast to every car, bypassing scoring), and an optional
// preferred car that bypasses scoring in favor of direct routing.
type SubmitRequest struct {
	Kind         types.RequestKind
	Emergency    bool
	PreferredCar *int
}

// AssignmentResult reports what Submit did with a request.
type AssignmentResult struct {
	Broadcast bool
	CarID     int
	Accepted  bool
}

// Dispatcher owns a fixed set of Cars. Membership never changes after
// construction, so reading the set itself needs no synchronization (§5);
// each Car still serializes its own mutations independently.
type Dispatcher struct {
	cars      []*car.Car
	maxFloors int
}

// New constructs a Dispatcher and every Car it owns, wiring each car to the
// same Clock, PassengerOracle, and EventSink. It does not start the cars;
// call Start for that.
func New(cfg *config.Config, clk clock.Clock, orc oracle.PassengerOracle, sink eventsink.EventSink) *Dispatcher {
	timing := car.Timing{
		FloorTravel:     cfg.Timing.FloorTravel,
		DoorOpen:        cfg.Timing.DoorOpen,
		DoorClose:       cfg.Timing.DoorClose,
		Overload:        cfg.Timing.Overload,
		EmergencyPoll:   cfg.Timing.EmergencyPoll,
		MaintenancePoll: cfg.Timing.MaintenancePoll,
	}

	cars := make([]*car.Car, cfg.NumCars)
	for i := range cars {
		cars[i] = car.New(i, cfg.MaxFloors, cfg.Capacity, timing, clk, orc, sink)
	}
	return &Dispatcher{cars: cars, maxFloors: cfg.MaxFloors}
}

// Start launches every car's control loop.
func (d *Dispatcher) Start() {
	for _, c := range d.cars {
		c.Start()
	}
}

// Stop stops every car's control loop and waits for all of them to exit.
func (d *Dispatcher) Stop() {
	for _, c := range d.cars {
		c.Stop()
	}
}

// Submit implements §4.2's public contract.
func (d *Dispatcher) Submit(req SubmitRequest) (AssignmentResult, error) {
	if req.Kind.Floor < 1 || int(req.Kind.Floor) > d.maxFloors {
		return AssignmentResult{}, types.ErrInvalidFloor
	}

	if req.Emergency {
		for _, c := range d.cars {
			c.TriggerEmergency()
		}
		return AssignmentResult{Broadcast: true, Accepted: true}, nil
	}

	var target *car.Car
	if req.PreferredCar != nil {
		c, err := d.carByID(*req.PreferredCar)
		if err != nil {
			return AssignmentResult{}, err
		}
		target = c
	} else {
		c, err := d.bestCar(req.Kind)
		if err != nil {
			return AssignmentResult{}, err
		}
		target = c
	}

	if err := target.Enqueue(req.Kind); err != nil {
		return AssignmentResult{CarID: target.ID(), Accepted: false}, err
	}
	return AssignmentResult{CarID: target.ID(), Accepted: true}, nil
}

// ClearEmergency passes through to the named car's ClearEmergency.
func (d *Dispatcher) ClearEmergency(carID int) error {
	c, err := d.carByID(carID)
	if err != nil {
		return err
	}
	c.ClearEmergency()
	return nil
}

// SetMaintenance passes through to the named car's SetMaintenance.
func (d *Dispatcher) SetMaintenance(carID int, on bool) error {
	c, err := d.carByID(carID)
	if err != nil {
		return err
	}
	c.SetMaintenance(on)
	return nil
}

// SnapshotAll returns a CarView for every owned car, in car-id order.
func (d *Dispatcher) SnapshotAll() []types.CarView {
	views := make([]types.CarView, len(d.cars))
	for i, c := range d.cars {
		views[i] = c.Snapshot()
	}
	return views
}

func (d *Dispatcher) carByID(id int) (*car.Car, error) {
	for _, c := range d.cars {
		if c.ID() == id {
			return c, nil
		}
	}
	return nil, types.ErrUnknownCar
}

// bestCar implements §4.2.1: the car with the smallest score, lowest car id
// breaking ties.
func (d *Dispatcher) bestCar(kind types.RequestKind) (*car.Car, error) {
	if len(d.cars) == 0 {
		return nil, types.ErrUnknownCar
	}

	var best *car.Car
	bestScore := math.MaxInt

	for _, c := range d.cars {
		view := c.Snapshot()
		s, err := diagnosticScore(view, kind)
		if err != nil {
			s = score(view, kind)
		}
		if best == nil || s < bestScore || (s == bestScore && c.ID() < best.ID()) {
			best, bestScore = c, s
		}
	}
	return best, nil
}
