// Package connectivity owns network association and session lifetime.
//
// The Supervisor consumes network events one at a time:
//
//	InterfaceStarted → Associating, association attempt issued
//	AddressAcquired  → Connected, session-start signal set, one session started
//	LinkLost         → association reissued, Disconnected, signal cleared
//
// Each association gets its own session context. LinkLost cancels it, and
// the session for the next association starts only after the previous one
// has returned, so at most one session runs at a time.
//
// HostNetwork is the Linux host implementation of the network layer: it
// polls one interface for a usable address and optionally runs a connect
// command on every association attempt.
package connectivity
