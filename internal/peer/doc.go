// Package peer owns one side of a two-peer drawing session.
//
// Ownership boundary:
// - service lifecycle and state (created -> listening -> failed | stopped)
// - outbound segment/clear sends through one transport.Link
// - inbound dispatch from the transport.Listener into a late-bound canvas
//
// Lifecycle order:
// - Start binds the listen port; a bind failure is terminal.
//
// - the listener may receive before a canvas is bound; those messages are dropped.
//
// - a listener failure is terminal; there is no automatic rebind.
package peer
