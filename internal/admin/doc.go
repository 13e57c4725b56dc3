// Package admin is the optional HTTP operator surface of a drawsync peer.
//
// Ownership boundary:
// - health, status and metrics endpoints over a running peer.Service
// - raster snapshot export (PNG, PDF)
// - the local stroke/clear input path and the websocket viewer feed
//
// The admin surface never touches the datagram sockets directly; it goes
// through the peer service like any other local input.
package admin
