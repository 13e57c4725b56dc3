package protocol

import "errors"

var (
	// ErrMalformed marks every payload that does not decode into a Message.
	ErrMalformed = errors.New("protocol: malformed payload")
	// ErrInvalidSegment marks a segment that cannot be put on the wire.
	ErrInvalidSegment = errors.New("protocol: invalid segment")
	ErrNilMessage     = errors.New("protocol: nil message")
)
