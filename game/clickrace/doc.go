// Package clickrace implements the authoritative state machine for click-race
// game rooms.
//
// The clickrace package implements:
//   - The room table: ephemeral, host-owned rooms with a player roster
//   - The Waiting/Playing room lifecycle and the 30-second round timer
//   - Click tallying, winner selection, and the lobby room listing
//   - The button-target variant: a shared random button sequence with an
//     independent cursor per player
//
// Rooms:
//
// A room is created by a user who becomes its host; the host is not enrolled
// as a player by creation and joins through the normal join operation. Rooms
// cycle Waiting -> Playing -> Waiting indefinitely and are deleted when their
// last member leaves. Room names are unique among live rooms and a user hosts
// at most one room at a time.
//
// Broadcasts:
//
// Every state-changing operation is followed by a broadcast through the
// injected Broadcaster: a full room snapshot to the room's multicast group
// and, whenever the lobby listing is affected, a freshly recomputed lobby
// snapshot to all lobby watchers. High-frequency click events use a
// lightweight (playerId, clicks) payload instead of a full snapshot.
//
// Concurrency:
//
// The room table sits behind a read-write mutex and each room carries its own
// mutex, so operations on unrelated rooms do not serialize. The table lock is
// always acquired before a room lock. Snapshots are built inside the room's
// critical section, which makes every broadcast reflect a fully-applied
// mutation and keeps per-room broadcast order equal to mutation order.
package clickrace
