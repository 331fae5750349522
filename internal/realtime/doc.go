// Package realtime implements the presence and delivery coordination core of
// the messaging backend.
//
// A Registry maps each logical identity to its single live connection (last
// join wins) and tracks every attached connection. The Presence broadcaster
// pushes the full online set to all connections whenever it changes. The
// Delivery state machine advances message status (sent -> delivered -> seen)
// through the MessageStore and notifies the original sender. Typing relays
// ephemeral typing signals. The Router is the single entry point the
// transport calls for inbound events; it validates input, persists before it
// dispatches, and keeps a failure on one connection from touching any other.
//
// The package is transport agnostic: a Conn only needs a non-blocking Send.
// The WebSocket transport lives in internal/ws.
package realtime
