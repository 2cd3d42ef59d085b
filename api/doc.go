// Package api is the HTTP client for the platform's request/response
// collaborators, which live outside the push protocol.
//
// The api package implements:
//   - Authentication (register/login) issuing the opaque session token
//     used by the socket handshake
//   - The static game catalog
//   - Per-game open-lobby and active-spectatable listings (polled)
//   - Per-game and global leaderboards
//
// These endpoints are plain request/response and are polled where the UI
// needs freshness; nothing here is pushed. The socket transport is the
// only push channel.
package api
