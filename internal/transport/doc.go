// Package transport owns the datagram plumbing between two drawsync peers.
//
// Ownership boundary:
// - Link: best-effort outbound sends over one long-lived UDP socket
// - Listener: the bound inbound socket and its single-threaded receive loop
// - per-source inbound rate limiting
//
// Nothing here retries, acknowledges or orders datagrams. A Listener hands
// each decoded message to its Handler before reading the next datagram;
// handlers run on the listener goroutine, concurrently with whatever the
// caller does with a Link.
package transport
