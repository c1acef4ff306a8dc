package fade

import (
	"fmt"
	"time"
)

// Config holds the output range and fade duration.
type Config struct {
	Min      int
	Max      int
	Duration time.Duration
}

// Engine maps commands onto ramps of a Fader.
type Engine struct {
	fader     Fader
	min       int
	max       int
	duration  time.Duration
	state     LightState
	listeners []Listener
	logger    Logger
	now       func() time.Time
}

// NewEngine creates an engine starting in the Off state.
func NewEngine(fader Fader, cfg Config) (*Engine, error) {
	if fader == nil {
		return nil, ErrNilFader
	}
	if cfg.Max <= cfg.Min {
		return nil, fmt.Errorf("%w: min=%d max=%d", ErrInvalidRange, cfg.Min, cfg.Max)
	}
	if cfg.Duration < 0 {
		cfg.Duration = 0
	}

	return &Engine{
		fader:    fader,
		min:      cfg.Min,
		max:      cfg.Max,
		duration: cfg.Duration,
		state:    Off,
		logger:   noopLogger{},
		now:      time.Now,
	}, nil
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
}

// AddListener registers l for change notifications.
func (e *Engine) AddListener(l Listener) {
	e.listeners = append(e.listeners, l)
}

// SetTarget clamps level into range and ramps toward it. LightState is
// not touched.
func (e *Engine) SetTarget(level int) error {
	return e.ramp(e.Clamp(level), CauseBrightness)
}

// ApplyCommand updates LightState and ramps to the matching end of the range.
func (e *Engine) ApplyCommand(cmd Command) error {
	switch cmd {
	case CommandOn:
		e.state = On
	case CommandOff:
		e.state = Off
	case CommandToggle:
		if e.state == Off {
			e.state = On
		} else {
			e.state = Off
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownCommand, cmd)
	}

	target := e.min
	if e.state == On {
		target = e.max
	}
	return e.ramp(target, CauseSwitch)
}

// Restore sets LightState and ramps to level, used to bring back the last
// journalled state at boot.
func (e *Engine) Restore(state LightState, level int) error {
	e.state = state
	return e.ramp(e.Clamp(level), CauseRestore)
}

// ramp halts the ramp in flight and starts a new one from wherever the
// output was stopped.
func (e *Engine) ramp(target int, cause Cause) error {
	from, err := e.fader.Stop()
	if err != nil {
		e.logger.Warn("halting fade failed", "error", err)
		from = e.fader.Current()
	}

	if err := e.fader.StartRamp(target, e.duration); err != nil {
		return fmt.Errorf("%w: %w", ErrRampFailed, err)
	}

	e.logger.Debug("fade started",
		"from", from,
		"target", target,
		"state", e.state.String(),
		"cause", string(cause),
		"duration", e.duration,
	)

	change := Change{
		State:  e.state,
		From:   from,
		Target: target,
		Cause:  cause,
		At:     e.now(),
	}
	for _, l := range e.listeners {
		l.LightChanged(change)
	}

	return nil
}

// Clamp limits level to the engine's range.
func (e *Engine) Clamp(level int) int {
	if level < e.min {
		return e.min
	}
	if level > e.max {
		return e.max
	}
	return level
}

// Range returns the inclusive duty range.
func (e *Engine) Range() (minLevel, maxLevel int) {
	return e.min, e.max
}

// State returns the logical on/off state.
func (e *Engine) State() LightState {
	return e.state
}

// Duty returns the instantaneous output level.
func (e *Engine) Duty() int {
	return e.fader.Current()
}

// Target returns the level the output is heading to.
func (e *Engine) Target() int {
	return e.fader.Target()
}

// Duration returns the configured fade duration.
func (e *Engine) Duration() time.Duration {
	return e.duration
}

// Snapshot returns the logical state and target.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		State:  e.state,
		Target: e.fader.Target(),
	}
}
