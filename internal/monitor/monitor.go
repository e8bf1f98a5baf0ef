// Package monitor implements the periodic, strictly read-only status report
// described in SPEC_FULL.md §4.3: every period ticks, it snapshots every car
// and emits a structured summary. It never influences routing. Grounded on
// multivator's peer-connectivity status loop (src/main.go's periodic select
// branch that logs peer state via slog), generalized here to car snapshots.
package monitor

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"multivator/internal/clock"
	"multivator/internal/eventsink"
	"multivator/internal/types"
)

// SnapshotSource is the read-only capability Monitor needs from a
// Dispatcher: it is declared narrowly here so Monitor doesn't import the
// dispatcher package, keeping the dependency direction leaf-ward.
type SnapshotSource interface {
	SnapshotAll() []types.CarView
}

// Monitor periodically snapshots every car and reports a rendered summary to
// both an EventSink and a structured logger.
type Monitor struct {
	source SnapshotSource
	clock  clock.Clock
	sink   eventsink.EventSink
	logger *slog.Logger
	period time.Duration
}

// New constructs a Monitor. logger may be nil, in which case slog.Default()
// is used.
func New(source SnapshotSource, clk clock.Clock, sink eventsink.EventSink, logger *slog.Logger, period time.Duration) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{source: source, clock: clk, sink: sink, logger: logger, period: period}
}

// Run blocks, reporting every period until stopCh is closed or receives.
func (m *Monitor) Run(stopCh <-chan struct{}) {
	for {
		select {
		case <-stopCh:
			return
		default:
		}

		m.report()

		timer := time.NewTimer(m.period)
		select {
		case <-stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (m *Monitor) report() {
	views := m.source.SnapshotAll()
	summary := renderSummary(views)

	m.logger.Info("monitor status", "cars", len(views), "summary", summary)

	if m.sink != nil {
		m.sink.Emit(types.Event{
			ID:        uuid.NewString(),
			Timestamp: m.clock.Now(),
			CarID:     -1,
			Kind:      types.EventMonitorStatus,
			Message:   summary,
		})
	}
}

func renderSummary(views []types.CarView) string {
	parts := make([]string, 0, len(views))
	for _, v := range views {
		parts = append(parts, fmt.Sprintf("car%d=%s@%d(p=%d/%d)", v.ID, v.State, v.CurrentFloor, v.Passengers, v.Capacity))
	}
	return strings.Join(parts, " ")
}
