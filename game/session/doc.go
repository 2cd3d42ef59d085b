// Package session is the client's view of at most one active game room,
// reconciled from server pushes.
//
// The session package implements:
//   - The session state machine (none, waiting, playing, finished)
//   - User intents: create, join, spectate, move, resign, delete, match
//   - Fail-closed move gating (status, role, turn ownership)
//   - Join-failure classification via correlation ids
//
// State Model:
//
// A session is initialized by exactly one of the confirming pushes for
// create, join, or spectate. Every other push only patches an already
// initialized session and is a silent no-op when none exists. The role
// assigned at initialization is immutable for the session's lifetime.
//
// The client never predicts state. A move intent is followed by a
// game_update push carrying the authoritative board; a rejected move is a
// transient notice with no state change. The server remains the sole
// authority on move legality — the local gates are a UX guard only.
//
// View Integration:
//
// The view layer reads Session() snapshots, re-renders on OnChange, and
// surfaces OnNotice values (wrong password, rejected move, generic errors).
// It never mutates controller state directly.
package session
