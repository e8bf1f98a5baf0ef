package car_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"multivator/internal/car"
	"multivator/internal/clock"
	"multivator/internal/eventsink"
	"multivator/internal/oracle"
	"multivator/internal/types"
)

// fastTiming keeps every tick at a millisecond so these tests run quickly.
// Under the Fake clock the ticks do not block at all (Fake.Sleep only
// advances simulated time); under clock.Real each tick is a genuine
// millisecond sleep, which is what gives the mid-journey tests a window to
// observe the car in flight.
func fastTiming() car.Timing {
	return car.Timing{
		FloorTravel:     time.Millisecond,
		DoorOpen:        time.Millisecond,
		DoorClose:       time.Millisecond,
		Overload:        time.Millisecond,
		EmergencyPoll:   time.Millisecond,
		MaintenancePoll: time.Millisecond,
	}
}

// waitForView polls Snapshot until pred holds or timeout elapses, grounded on
// the reference pack's "waitForCommands" select/timeout test helper pattern.
func waitForView(t *testing.T, c *car.Car, timeout time.Duration, pred func(types.CarView) bool) types.CarView {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		v := c.Snapshot()
		if pred(v) {
			return v
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for car condition, last snapshot: %+v", c.Snapshot())
	return types.CarView{}
}

// drainDoorOpenFloors drains every buffered event from sink and returns the
// floors at which doors were opened, in emission order.
func drainDoorOpenFloors(sink *eventsink.Channel) []int {
	var floors []int
	for {
		select {
		case ev := <-sink.C:
			if ev.Kind == types.EventDoorOpen {
				var f int
				if _, err := fmt.Sscanf(ev.Message, "door open at floor %d", &f); err == nil {
					floors = append(floors, f)
				}
			}
		default:
			return floors
		}
	}
}

func TestSingleCarSCAN(t *testing.T) {
	sink := eventsink.NewChannel(64)
	c := car.New(1, 10, 5, fastTiming(), clock.NewFake(), oracle.Fixed{}, sink)
	c.Start()
	defer c.Stop()

	for _, f := range []types.Floor{3, 7, 5} {
		if err := c.Enqueue(types.RequestKind{Kind: types.CarCall, Floor: f}); err != nil {
			t.Fatalf("enqueue(%d): %v", f, err)
		}
	}

	waitForView(t, c, 2*time.Second, func(v types.CarView) bool {
		return v.State == types.Idle && v.CurrentFloor == 7
	})

	got := drainDoorOpenFloors(sink)
	want := []int{3, 5, 7}
	if len(got) != len(want) {
		t.Fatalf("visit order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("visit order = %v, want %v", got, want)
		}
	}
}

func TestDirectionalHallSkip(t *testing.T) {
	sink := eventsink.NewChannel(64)
	// Real clock: the test needs to catch the car genuinely mid-journey
	// (floor >= 2 and still moving) before the hall call lands. Fake.Sleep
	// never blocks, so a fake-clocked car can run the whole trip to
	// completion between two polls with no wall-clock window to observe.
	c := car.New(1, 10, 5, fastTiming(), clock.Real{}, oracle.Fixed{}, sink)
	c.Start()
	defer c.Stop()

	if err := c.Enqueue(types.RequestKind{Kind: types.CarCall, Floor: 8}); err != nil {
		t.Fatalf("enqueue car call: %v", err)
	}
	// Give the car a moment to start moving before the hall call lands, so
	// the test exercises a mid-sweep arrival rather than a pre-departure one.
	waitForView(t, c, time.Second, func(v types.CarView) bool {
		return v.State == types.MovingUp && v.CurrentFloor >= 2
	})
	if err := c.Enqueue(types.RequestKind{Kind: types.HallDown, Floor: 5}); err != nil {
		t.Fatalf("enqueue hall down: %v", err)
	}

	waitForView(t, c, 2*time.Second, func(v types.CarView) bool {
		return v.State == types.Idle && v.CurrentFloor == 5
	})

	got := drainDoorOpenFloors(sink)
	want := []int{8, 5}
	if len(got) != len(want) {
		t.Fatalf("visit order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("visit order = %v, want %v", got, want)
		}
	}
}

func TestEmergencyPreemption(t *testing.T) {
	sink := eventsink.NewChannel(64)
	// Real clock, for the same reason as TestDirectionalHallSkip: the
	// emergency must land while the car is genuinely still in flight.
	c := car.New(1, 10, 5, fastTiming(), clock.Real{}, oracle.Fixed{}, sink)
	c.Start()
	defer c.Stop()

	if err := c.Enqueue(types.RequestKind{Kind: types.CarCall, Floor: 9}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	waitForView(t, c, time.Second, func(v types.CarView) bool {
		return v.State == types.MovingUp && v.CurrentFloor >= 2
	})

	c.TriggerEmergency()
	v := waitForView(t, c, time.Second, func(v types.CarView) bool {
		return v.State == types.EmergencyStopped
	})
	if !v.HasInternalCall(9) {
		t.Fatalf("expected Car(9) to remain queued during emergency, got %+v", v.InternalCalls)
	}

	c.ClearEmergency()
	waitForView(t, c, 2*time.Second, func(v types.CarView) bool {
		return v.State == types.Idle && v.CurrentFloor == 9
	})
}

func TestOverload(t *testing.T) {
	sink := eventsink.NewChannel(64)
	orc := &oracle.Sequence{Outcomes: [][2]int{{5, 0}}}
	c := car.New(1, 10, 2, fastTiming(), clock.NewFake(), orc, sink)
	c.Start()
	defer c.Stop()

	if err := c.Enqueue(types.RequestKind{Kind: types.HallUp, Floor: 3}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitForView(t, c, 2*time.Second, func(v types.CarView) bool {
		return v.CurrentFloor == 3 && v.State == types.Idle
	})
	v := c.Snapshot()
	if v.Passengers != 2 {
		t.Fatalf("passengers = %d, want 2 (clamped to capacity)", v.Passengers)
	}

	var sawOverload bool
	for {
		select {
		case ev := <-sink.C:
			if ev.Kind == types.EventOverload {
				sawOverload = true
			}
		default:
			if !sawOverload {
				t.Fatalf("expected an overload event")
			}
			return
		}
	}
}

func TestMaintenanceRejection(t *testing.T) {
	sink := eventsink.NewChannel(64)
	c := car.New(1, 10, 5, fastTiming(), clock.NewFake(), oracle.Fixed{}, sink)
	c.Start()
	defer c.Stop()

	c.SetMaintenance(true)
	waitForView(t, c, time.Second, func(v types.CarView) bool {
		return v.State == types.Maintenance
	})

	if err := c.Enqueue(types.RequestKind{Kind: types.CarCall, Floor: 4}); !errors.Is(err, types.ErrInMaintenance) {
		t.Fatalf("expected ErrInMaintenance, got %v", err)
	}

	c.SetMaintenance(false)
	waitForView(t, c, time.Second, func(v types.CarView) bool {
		return v.State == types.Idle && !v.Maintenance
	})

	if err := c.Enqueue(types.RequestKind{Kind: types.CarCall, Floor: 4}); err != nil {
		t.Fatalf("enqueue after maintenance release: %v", err)
	}
	waitForView(t, c, 2*time.Second, func(v types.CarView) bool {
		return v.State == types.Idle && v.CurrentFloor == 4
	})
}

func TestEnqueueIdempotent(t *testing.T) {
	c := car.New(1, 10, 5, fastTiming(), clock.NewFake(), oracle.Fixed{}, eventsink.Nop{})
	c.Start()
	defer c.Stop()

	c.SetMaintenance(true)
	waitForView(t, c, time.Second, func(v types.CarView) bool { return v.State == types.Maintenance })

	// Maintenance rejects new enqueues, so this first HallUp(6) adds nothing;
	// the two accepted enqueues after release must collapse into one entry.
	if err := c.Enqueue(types.RequestKind{Kind: types.HallUp, Floor: 6}); !errors.Is(err, types.ErrInMaintenance) {
		t.Fatalf("expected ErrInMaintenance, got %v", err)
	}
	c.SetMaintenance(false)
	waitForView(t, c, time.Second, func(v types.CarView) bool { return v.State != types.Maintenance })

	for i := 0; i < 2; i++ {
		if err := c.Enqueue(types.RequestKind{Kind: types.HallUp, Floor: 6}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	v := c.Snapshot()
	hc, ok := v.HallCalls[6]
	if !ok || !hc.UpPressed || hc.DownPressed {
		t.Fatalf("expected exactly HallUp(6) pending once, got %+v", v.HallCalls)
	}
}

func TestEnqueueInvalidFloor(t *testing.T) {
	c := car.New(1, 10, 5, fastTiming(), clock.NewFake(), oracle.Fixed{}, eventsink.Nop{})
	c.Start()
	defer c.Stop()

	if err := c.Enqueue(types.RequestKind{Kind: types.CarCall, Floor: 0}); !errors.Is(err, types.ErrInvalidFloor) {
		t.Fatalf("expected ErrInvalidFloor for floor 0, got %v", err)
	}
	if err := c.Enqueue(types.RequestKind{Kind: types.CarCall, Floor: 11}); !errors.Is(err, types.ErrInvalidFloor) {
		t.Fatalf("expected ErrInvalidFloor for floor above max, got %v", err)
	}
}

func TestEnqueueAfterStop(t *testing.T) {
	c := car.New(1, 10, 5, fastTiming(), clock.NewFake(), oracle.Fixed{}, eventsink.Nop{})
	c.Start()
	c.Stop()

	if err := c.Enqueue(types.RequestKind{Kind: types.CarCall, Floor: 4}); !errors.Is(err, types.ErrShutdown) {
		t.Fatalf("expected ErrShutdown after Stop, got %v", err)
	}
}
