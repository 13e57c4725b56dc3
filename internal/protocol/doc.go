// Package protocol owns the drawsync wire contract.
//
// Ownership boundary:
// - message variants (segment, clear)
// - text payload encode/decode
// - payload size ceiling
//
// A payload is either the literal "clear" or six whitespace separated base-10
// integers: startX startY endX endY color thickness. There is no framing, no
// length prefix and no terminator; one datagram carries exactly one message.
package protocol
