package clock

import (
	"sync"
	"time"
)

// Fake is a deterministic Clock for tests: Sleep advances the simulated
// clock instantly instead of blocking, so car control loops run at full
// speed while still exercising every delay-dependent code path. Safe for
// concurrent use since a Car's control loop calls Sleep from its own
// goroutine while a test goroutine may call Now concurrently.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake returns a Fake clock starting at an arbitrary fixed instant.
func NewFake() *Fake {
	return &Fake{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Sleep advances the simulated clock by d without blocking the calling
// goroutine.
func (f *Fake) Sleep(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

var _ Clock = (*Fake)(nil)
