package peer

import (
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/drawsync/internal/canvas"
	"github.com/danmuck/drawsync/internal/transport"
)

var (
	ErrInvalidHeartbeatInterval = errors.New("peer: invalid heartbeat interval")
	ErrInvalidRemote            = errors.New("peer: invalid remote endpoint")
)

const (
	DefaultListenPort uint16 = 2000
	DefaultRemoteHost        = "localhost"
	DefaultRemotePort uint16 = 2001
)

// ServiceConfig configures one peer. Everything is fixed for the lifetime
// of a Service.
type ServiceConfig struct {
	PeerID               string
	ListenPort           uint16
	Remote               transport.Endpoint
	ResolveTimeout       time.Duration
	HeartbeatInterval    time.Duration
	InboundRatePerSecond float64
	InboundBurst         int
	AdminListenAddr      string
	CORSOrigins          []string
	Advertise            bool
	CanvasWidth          int
	CanvasHeight         int
}

// DefaultServiceConfig mirrors the classic two-window setup: listen on 2000,
// draw to localhost:2001.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ListenPort:           DefaultListenPort,
		Remote:               transport.Endpoint{Host: DefaultRemoteHost, Port: DefaultRemotePort},
		ResolveTimeout:       2 * time.Second,
		HeartbeatInterval:    30 * time.Second,
		InboundRatePerSecond: 0,
		InboundBurst:         64,
		AdminListenAddr:      "",
		Advertise:            false,
		CanvasWidth:          canvas.DefaultWidth,
		CanvasHeight:         canvas.DefaultHeight,
	}
}

func (c ServiceConfig) Validate() error {
	if err := c.Remote.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRemote, err)
	}
	if c.HeartbeatInterval <= 0 {
		return ErrInvalidHeartbeatInterval
	}
	return nil
}
