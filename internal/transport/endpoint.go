package transport

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Endpoint is the remote peer address. It is fixed for the lifetime of a Link.
type Endpoint struct {
	Host string `json:"host"`
	Port uint16 `json:"port"`
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(int(e.Port)))
}

func (e Endpoint) Validate() error {
	if strings.TrimSpace(e.Host) == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidEndpoint)
	}
	if e.Port == 0 {
		return fmt.Errorf("%w: missing port", ErrInvalidEndpoint)
	}
	return nil
}

// ParseEndpoint accepts "host:port" or "[v6]:port".
func ParseEndpoint(raw string) (Endpoint, error) {
	host, portRaw, err := net.SplitHostPort(strings.TrimSpace(raw))
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	port, err := strconv.ParseUint(portRaw, 10, 16)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: port %q", ErrInvalidEndpoint, portRaw)
	}
	ep := Endpoint{Host: host, Port: uint16(port)}
	if err := ep.Validate(); err != nil {
		return Endpoint{}, err
	}
	return ep, nil
}
