package pwm

import (
	"sync"
	"time"
)

// defaultStep is the interval between output writes during a ramp.
const defaultStep = 10 * time.Millisecond

// Logger defines the logging interface for the fader.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// SoftFader ramps an Output in software.
//
// Thread Safety:
//   - All methods are safe for concurrent use; the ramp goroutine shares
//     state with callers under mu.
type SoftFader struct {
	out    Output
	step   time.Duration
	logger Logger

	mu      sync.Mutex
	current int
	target  int
	cancel  chan struct{}
	done    chan struct{}
}

// NewSoftFader creates a fader whose output is assumed to sit at initial.
// A non-positive step uses 10ms.
func NewSoftFader(out Output, initial int, step time.Duration) *SoftFader {
	if step <= 0 {
		step = defaultStep
	}
	return &SoftFader{
		out:     out,
		step:    step,
		logger:  noopLogger{},
		current: initial,
		target:  initial,
	}
}

// SetLogger sets the logger for output write failures.
func (f *SoftFader) SetLogger(logger Logger) {
	f.mu.Lock()
	f.logger = logger
	f.mu.Unlock()
}

// StartRamp implements fade.Fader. A zero duration, or a target equal to the
// current level, writes the target at once without starting a goroutine.
func (f *SoftFader) StartRamp(target int, d time.Duration) error {
	f.mu.Lock()
	if f.cancel != nil {
		f.mu.Unlock()
		return ErrRampActive
	}

	from := f.current
	f.target = target

	if d <= 0 || from == target {
		err := f.out.Write(target)
		if err == nil {
			f.current = target
		}
		f.mu.Unlock()
		return err
	}

	cancel := make(chan struct{})
	done := make(chan struct{})
	f.cancel = cancel
	f.done = done
	f.mu.Unlock()

	go f.run(from, target, d, cancel, done)
	return nil
}

// Stop implements fade.Fader. It waits for the ramp goroutine to exit and
// returns the level last written to the output.
func (f *SoftFader) Stop() (int, error) {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.cancel, f.done = nil, nil
	f.mu.Unlock()

	if cancel != nil {
		close(cancel)
		<-done
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.target = f.current
	return f.current, nil
}

// Current implements fade.Fader.
func (f *SoftFader) Current() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Target implements fade.Fader.
func (f *SoftFader) Target() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.target
}

// Active reports whether a ramp is in flight.
func (f *SoftFader) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancel != nil
}

// Wait blocks until the ramp in flight, if any, has finished or been stopped.
func (f *SoftFader) Wait() {
	f.mu.Lock()
	done := f.done
	f.mu.Unlock()
	if done != nil {
		<-done
	}
}

// run steps the output from from to to over d.
func (f *SoftFader) run(from, to int, d time.Duration, cancel, done chan struct{}) {
	defer close(done)

	start := time.Now()
	ticker := time.NewTicker(f.step)
	defer ticker.Stop()

	for {
		select {
		case <-cancel:
			return
		case now := <-ticker.C:
			elapsed := now.Sub(start)
			finished := elapsed >= d
			level := interpolate(from, to, elapsed, d)

			f.mu.Lock()
			if level != f.current {
				if err := f.out.Write(level); err != nil {
					f.logger.Warn("pwm write failed", "level", level, "error", err)
				} else {
					f.current = level
				}
			}
			if finished && f.done == done {
				f.cancel, f.done = nil, nil
			}
			f.mu.Unlock()

			if finished {
				return
			}
		}
	}
}

// interpolate returns the linear ramp level at elapsed.
func interpolate(from, to int, elapsed, d time.Duration) int {
	if elapsed >= d || d <= 0 {
		return to
	}
	if elapsed <= 0 {
		return from
	}
	delta := int64(to-from) * int64(elapsed) / int64(d)
	return from + int(delta)
}
