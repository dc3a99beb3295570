// Package presence tracks which authenticated users currently hold a live
// connection, tolerating brief network blips via a reconnection grace window.
//
// The presence package implements:
//   - One authoritative record per user id, independent of any game room
//   - A connection-id reverse index kept in lockstep with the records
//   - A fixed grace window after disconnect before a user is forgotten
//   - Stale-session eviction when the same user connects twice
//   - Forced disconnection that bypasses the grace window
//
// Lifecycle:
//
// A record is created on the first successful connection for a user. On
// disconnect the record moves to StatusReconnecting and an expiry timer is
// armed; if the user reconnects before it fires, the timer is cancelled and
// the record returns to StatusConnected under the new connection id. The
// expiry firing is the only path that permanently forgets a user.
//
// Concurrency:
//
// All state lives behind a single mutex. Every operation is a short in-memory
// mutation; lookups that find nothing are benign no-ops, never errors, because
// disconnect and expiry races are expected under normal operation.
//
// Usage:
//
//	tracker := presence.NewTracker(10*time.Second, hub, hub, logger)
//	tracker.HandleConnect(identity, connID)
//	...
//	tracker.HandleDisconnect(connID)
package presence
