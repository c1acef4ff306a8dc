// Package history journals light changes to SQLite.
//
// Every ramp the fade engine issues is recorded with its logical state,
// start and target levels and the command path that caused it. At boot the
// latest entry can be replayed to restore the light.
//
// The Recorder receives changes on the session goroutine and hands them to
// a background writer, so message handling never waits on the disk.
package history
