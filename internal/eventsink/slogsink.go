package eventsink

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"multivator/internal/types"
)

// Slog is a concurrent-safe EventSink backed by log/slog, configured the way
// multivator's elev.InitLogger/elev-init.go configure their loggers: a
// TextHandler with a compact time format, writing to both stdout and a
// per-process log file. NewFileSink below owns creating the log directory
// (the capability the original C++ source exercised via system("mkdir -p
// ...") at ElevatorControlSystem construction time).
type Slog struct {
	mu     sync.Mutex
	logger *slog.Logger
}

// NewSlog wraps an already-configured *slog.Logger.
func NewSlog(logger *slog.Logger) *Slog {
	return &Slog{logger: logger}
}

// NewFileSink creates dir (if needed) and returns a Slog sink that writes to
// both os.Stdout and "<dir>/events.log".
func NewFileSink(dir string) (*Slog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("eventsink: create log directory: %w", err)
	}
	logFile, err := os.OpenFile(filepath.Join(dir, "events.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("eventsink: open log file: %w", err)
	}
	multiWriter := io.MultiWriter(os.Stdout, logFile)
	handler := slog.NewTextHandler(multiWriter, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format("15:04:05"))
				}
			}
			return a
		},
	})
	return NewSlog(slog.New(handler)), nil
}

func (s *Slog) Emit(event types.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Info(event.Message,
		"event_id", event.ID,
		"car_id", event.CarID,
		"kind", kindLabel(event.Kind),
	)
}

func kindLabel(k types.EventKind) string {
	switch k {
	case types.EventEnqueueAccepted:
		return "enqueue_accepted"
	case types.EventArrivedAtFloor:
		return "arrived_at_floor"
	case types.EventDoorOpen:
		return "door_open"
	case types.EventDoorClose:
		return "door_close"
	case types.EventOverload:
		return "overload"
	case types.EventEmergencyActivated:
		return "emergency_activated"
	case types.EventEmergencyCleared:
		return "emergency_cleared"
	case types.EventMaintenanceEntered:
		return "maintenance_entered"
	case types.EventMaintenanceExited:
		return "maintenance_exited"
	case types.EventCarFailed:
		return "car_failed"
	case types.EventMonitorStatus:
		return "monitor_status"
	default:
		return strings.ToLower("unknown")
	}
}

var _ EventSink = (*Slog)(nil)
