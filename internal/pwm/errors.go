package pwm

import "errors"

var (
	// ErrRampActive is returned by StartRamp while another ramp is in flight.
	ErrRampActive = errors.New("pwm: ramp already in progress")

	// ErrNotConfigured is returned when writing before Configure.
	ErrNotConfigured = errors.New("pwm: output not configured")

	// ErrLevelOutOfRange is returned for a level outside 0..2^bits-1.
	ErrLevelOutOfRange = errors.New("pwm: level out of range")

	// ErrInvalidConfig is returned for a non-positive frequency or resolution.
	ErrInvalidConfig = errors.New("pwm: invalid output configuration")
)
