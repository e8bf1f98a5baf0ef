// Package clock abstracts wall-clock time and blocking delays so the elevator
// core's control loops can be driven deterministically in tests. Grounded on
// the "clock and delay" primitive spec.md requires the core to consume rather
// than call time.Sleep directly.
package clock

import "time"

// Clock supplies the current time and a blocking delay primitive. Real
// implementations wrap the standard library; test implementations make time
// advance instantly or under explicit control.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// Real is the production Clock: time.Now and time.Sleep.
type Real struct{}

func (Real) Now() time.Time        { return time.Now() }
func (Real) Sleep(d time.Duration) { time.Sleep(d) }

var _ Clock = Real{}
