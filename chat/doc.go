// Package chat maintains the chat room directory and the message buffer of
// the single active room, reconciled from server pushes.
//
// The chat package implements:
//   - Directory snapshots with server-computed unread counts
//   - Room activation with stale-history discard
//   - Message send with per-id deduplication
//   - DM/group creation with atomic activate directives
//   - Optimistic leave and fire-and-forget moderation intents
//
// Unread Accounting:
//
// The server is the sole source of unread truth. The client only ever
// zeroes a counter locally when the room becomes active, and ignores
// unread pushes for the active room, which is definitionally read.
//
// Activation Races:
//
// Activating a room clears the buffer and requests history. A history push
// is applied only while its room id still matches the active room, so a
// late response for an abandoned room can never populate another room's
// buffer.
package chat
