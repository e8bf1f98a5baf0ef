package types

import "errors"

// Error taxonomy for synchronous, non-retried request rejection. See
// SPEC_FULL.md §7.
var (
	ErrInvalidFloor  = errors.New("elevator: floor out of range")
	ErrInMaintenance = errors.New("elevator: car is in maintenance")
	ErrUnknownCar    = errors.New("elevator: unknown car id")
	ErrShutdown      = errors.New("elevator: car has been stopped")

	// ErrInvalidConfig is returned by config validation, distinct from the
	// request-handling taxonomy above.
	ErrInvalidConfig = errors.New("elevator: invalid configuration")
)
