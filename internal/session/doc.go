// Package session runs one broker session: connect, subscribe, pump.
//
// A Manager is built per association by the connectivity supervisor and
// runs until its context is cancelled. Failures never end the session
// early:
//   - a failed connect is logged and the subscribe phase still runs
//   - each subscribe outcome is logged on its own
//   - a failed pump is logged and the loop continues
//
// Message handlers run synchronously inside the pump, on the goroutine
// that called Run.
package session
