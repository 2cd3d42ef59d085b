// Package protocol defines the wire protocol shared by the socket transport
// and the game/chat controllers.
//
// The protocol package implements:
//   - The JSON envelope carried in both directions over the socket
//   - Intent types (client -> server, fire-and-forget)
//   - Push types (server -> client) as a tagged union
//   - The shared data model (roles, game status, rooms, messages)
//
// Envelope Format:
//
// Every frame is a JSON object:
//
//	{"type": "make_move", "cid": "<uuid>", "data": {"room_code": "ABCD", ...}}
//
// The optional cid is a correlation id. Intents that want their outcome
// attributed (currently join_game) generate one; the server echoes it on the
// confirming push or on the error push it produces instead. All other
// intents omit it and expect no reply.
//
// Push Dispatch:
//
// Incoming frames are decoded by DecodePush into one concrete struct per
// push kind. Consumers type-switch over the Push interface, which keeps the
// full set of payload shapes in one place instead of scattering them behind
// string-keyed callbacks.
package protocol
