package transport

import "errors"

var (
	// ErrTransport marks a send that did not leave this host: resolution or write failure.
	ErrTransport = errors.New("transport: send failed")
	// ErrBind marks a listener that could not claim its port.
	ErrBind = errors.New("transport: bind failed")
	// ErrListenerFatal marks a receive loop that ended on a socket error.
	ErrListenerFatal = errors.New("transport: listener failed")

	ErrInvalidEndpoint = errors.New("transport: invalid endpoint")
	ErrLinkClosed      = errors.New("transport: link closed")
)
