package fade

import (
	"time"
)

// LightState is the logical on/off memory of the light.
type LightState int

const (
	Off LightState = iota
	On
)

// String returns the wire form used on state topics.
func (s LightState) String() string {
	if s == On {
		return "ON"
	}
	return "OFF"
}

// Command is a switch command.
type Command int

const (
	CommandOn Command = iota
	CommandOff
	CommandToggle
)

// String returns the payload spelling of the command.
func (c Command) String() string {
	switch c {
	case CommandOn:
		return "ON"
	case CommandOff:
		return "OFF"
	case CommandToggle:
		return "TOGGLE"
	default:
		return "UNKNOWN"
	}
}

// ParseCommand matches a switch payload. Matching is case-sensitive;
// ok is false for anything other than ON, OFF or TOGGLE.
func ParseCommand(payload string) (cmd Command, ok bool) {
	switch payload {
	case "ON":
		return CommandOn, true
	case "OFF":
		return CommandOff, true
	case "TOGGLE":
		return CommandToggle, true
	default:
		return 0, false
	}
}

// Cause records which command path issued a ramp.
type Cause string

const (
	CauseSwitch     Cause = "switch"
	CauseBrightness Cause = "brightness"
	CauseRestore    Cause = "restore"
)

// Fader is the output peripheral's fade primitive.
type Fader interface {
	// StartRamp begins a linear ramp from the current level to target
	// over d. It fails if a ramp is already in flight.
	StartRamp(target int, d time.Duration) error

	// Stop halts the ramp in flight, if any, and returns the level the
	// output was left at.
	Stop() (int, error)

	// Current returns the level presently written to the output.
	Current() int

	// Target returns the level the output is heading to.
	Target() int
}

// Change describes one issued ramp.
type Change struct {
	State  LightState
	From   int
	Target int
	Cause  Cause
	At     time.Time
}

// Snapshot is the externally visible state of the light.
type Snapshot struct {
	State  LightState
	Target int
}

// Listener is notified after every issued ramp, on the engine's goroutine.
type Listener interface {
	LightChanged(change Change)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(change Change)

// LightChanged implements Listener.
func (f ListenerFunc) LightChanged(change Change) { f(change) }

// Logger defines the logging interface for the engine.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
