package fade

import "errors"

var (
	// ErrInvalidRange is returned when Max is not greater than Min.
	ErrInvalidRange = errors.New("fade: max must be greater than min")

	// ErrNilFader is returned when the engine is built without a fader.
	ErrNilFader = errors.New("fade: fader is required")

	// ErrRampFailed wraps a fader error while issuing a ramp.
	ErrRampFailed = errors.New("fade: ramp failed")

	// ErrUnknownCommand is returned for a Command value outside On/Off/Toggle.
	ErrUnknownCommand = errors.New("fade: unknown command")
)
