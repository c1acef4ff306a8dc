package connectivity

import "context"

// State is the association state owned by the Supervisor.
type State int

const (
	Disconnected State = iota
	Associating
	Connected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Associating:
		return "associating"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Event is a network layer notification.
type Event int

const (
	InterfaceStarted Event = iota
	AddressAcquired
	LinkLost
)

// String returns the event name.
func (e Event) String() string {
	switch e {
	case InterfaceStarted:
		return "interface_started"
	case AddressAcquired:
		return "address_acquired"
	case LinkLost:
		return "link_lost"
	default:
		return "unknown"
	}
}

// Network is the platform network layer.
type Network interface {
	// StartInterface brings the interface up. It is called once.
	StartInterface(ctx context.Context) error

	// Connect issues one association attempt.
	Connect(ctx context.Context) error
}

// SessionFunc runs one broker session until ctx is cancelled.
type SessionFunc func(ctx context.Context)

// Logger is the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
