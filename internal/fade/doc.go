// Package fade owns the light's logical state and its duty level.
//
// The Engine turns discrete commands (ON, OFF, TOGGLE, brightness) into a
// single time-bounded linear ramp on a Fader. Before a new ramp is issued
// the ramp in flight is halted, so at most one ramp is active at any time.
//
// LightState and duty are tracked separately: a brightness command never
// changes LightState, and TOGGLE flips LightState rather than looking at
// the instantaneous duty.
//
// The Engine is not safe for concurrent use. It is driven from the session
// pump goroutine, which runs message handlers synchronously.
package fade
