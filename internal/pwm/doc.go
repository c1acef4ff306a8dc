// Package pwm drives the light's duty-cycle output.
//
// An Output writes absolute levels to a peripheral (sysfs PWM channel or
// memory). SoftFader implements fade.Fader on top of any Output by stepping
// a linear interpolation on its own goroutine.
//
// When a ramp is stopped, SoftFader reports the level it actually wrote
// last, so the following ramp starts from the true physical point instead of
// the halted ramp's target.
package pwm
