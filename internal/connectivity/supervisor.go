package connectivity

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNilNetwork is returned when a supervisor is built without a network layer.
var ErrNilNetwork = errors.New("connectivity: network is required")

// Supervisor drives association and starts one session per association.
type Supervisor struct {
	network Network
	session SessionFunc
	signal  *Signal
	logger  Logger

	mu       sync.Mutex
	state    State
	cancel   context.CancelFunc
	done     chan struct{}
	sessions int
	attempts int

	wg sync.WaitGroup
}

// NewSupervisor creates a supervisor in the Disconnected state.
func NewSupervisor(network Network, session SessionFunc) (*Supervisor, error) {
	if network == nil {
		return nil, ErrNilNetwork
	}
	if session == nil {
		session = func(ctx context.Context) { <-ctx.Done() }
	}
	return &Supervisor{
		network: network,
		session: session,
		signal:  NewSignal(),
		logger:  noopLogger{},
		state:   Disconnected,
	}, nil
}

// SetLogger sets the logger for the supervisor.
func (s *Supervisor) SetLogger(logger Logger) {
	s.logger = logger
}

// Run starts the interface and handles events until ctx ends or events is
// closed. On return every session it started has finished.
func (s *Supervisor) Run(ctx context.Context, events <-chan Event) error {
	defer func() {
		s.mu.Lock()
		s.stopSessionLocked()
		s.mu.Unlock()
		s.wg.Wait()
	}()

	if err := s.network.StartInterface(ctx); err != nil {
		return fmt.Errorf("starting network interface: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.HandleEvent(ctx, ev)
		}
	}
}

// HandleEvent applies one network event. Calls must be serialized.
func (s *Supervisor) HandleEvent(ctx context.Context, ev Event) {
	s.logger.Debug("network event", "event", ev.String(), "state", s.State().String())

	switch ev {
	case InterfaceStarted:
		s.setState(Associating)
		s.associate(ctx)

	case AddressAcquired:
		s.mu.Lock()
		if s.state == Connected {
			s.mu.Unlock()
			s.logger.Debug("address acquired while connected, ignoring")
			return
		}
		s.state = Connected
		s.signal.Set()
		s.startSessionLocked(ctx)
		s.mu.Unlock()
		s.logger.Info("network connected")

	case LinkLost:
		s.associate(ctx)
		s.mu.Lock()
		s.state = Disconnected
		s.signal.Clear()
		s.stopSessionLocked()
		s.mu.Unlock()
		s.logger.Warn("network link lost, reassociating")

	default:
		s.logger.Warn("unknown network event", "event", int(ev))
	}
}

// associate issues one association attempt. Failures are not retried here;
// the network layer reports them as LinkLost, which reissues the attempt.
func (s *Supervisor) associate(ctx context.Context) {
	s.mu.Lock()
	s.attempts++
	attempt := s.attempts
	s.mu.Unlock()

	if err := s.network.Connect(ctx); err != nil {
		s.logger.Warn("association attempt failed", "attempt", attempt, "error", err)
	}
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// startSessionLocked launches the session for a new association. It waits
// for the previous session, if any, to return first, and a session cancelled
// while waiting still holds its place until its predecessor has returned.
func (s *Supervisor) startSessionLocked(ctx context.Context) {
	s.stopSessionLocked()

	prev := s.done
	sessCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.sessions++
	n := s.sessions

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(done)
		defer cancel()

		// done must not close before prev: the chain keeps at most one
		// session live even when associations are cancelled while queued.
		if prev != nil {
			<-prev
			if sessCtx.Err() != nil {
				return
			}
		}

		s.logger.Info("session starting", "session", n)
		s.session(sessCtx)
		s.logger.Info("session ended", "session", n)
	}()
}

func (s *Supervisor) stopSessionLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// State returns the current association state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// WaitConnected blocks until the session-start signal is raised or ctx ends.
func (s *Supervisor) WaitConnected(ctx context.Context) error {
	return s.signal.Wait(ctx)
}

// Signal returns the session-start signal.
func (s *Supervisor) Signal() *Signal {
	return s.signal
}

// Sessions returns how many sessions have been started.
func (s *Supervisor) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions
}

// Attempts returns how many association attempts have been issued.
func (s *Supervisor) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}
