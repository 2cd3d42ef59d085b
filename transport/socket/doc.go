// Package socket owns the single persistent WebSocket connection to the
// platform and the dispatch of server pushes to their handlers.
//
// The socket package implements:
//   - The authentication handshake (opaque bearer token)
//   - Outbound fire-and-forget intent delivery
//   - Inbound push decoding and per-kind handler dispatch
//   - Reconnection with jittered backoff and resume hooks
//   - An explicit connect/disconnect lifecycle via Manager
//
// Connection Model:
//
// One Conn wraps one live WebSocket. A dedicated read goroutine decodes
// frames and invokes the handler registered for each push kind
// synchronously, so handlers observe pushes in delivery order and never
// race each other. A dedicated write goroutine drains the outbound queue
// and keeps the connection alive with pings.
//
// Handler Registration:
//
// Consumers claim a disjoint set of push kinds with Subscribe and release
// exactly that set with Subscription.Close. A kind can have at most one
// live handler; claiming an already-claimed kind is an error rather than a
// silent double registration.
//
// Lifecycle:
//
// Manager is constructed once at the application root and handed to
// whatever needs the connection. Connect is idempotent while a connection
// is live, and a missing credential yields an absent handle instead of an
// error, which turns every dependent operation into a no-op.
//
// Reconnection:
//
// When a read fails on a connection that was not explicitly closed, the
// conn redials with backoff, reruns the handshake, and then fires the
// registered OnReconnect hooks so controllers can replay their
// authoritative state. Intents sent while the transport is down are
// dropped; the protocol is at-most-once end to end.
package socket
