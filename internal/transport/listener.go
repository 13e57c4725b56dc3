package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"syscall"

	"github.com/danmuck/drawsync/internal/observability"
	"github.com/danmuck/drawsync/internal/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Handler receives every successfully decoded inbound message.
type Handler interface {
	HandleMessage(from netip.AddrPort, msg protocol.Message)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(from netip.AddrPort, msg protocol.Message)

func (f HandlerFunc) HandleMessage(from netip.AddrPort, msg protocol.Message) {
	f(from, msg)
}

// ListenerConfig configures the inbound socket. Port 0 binds an ephemeral port.
type ListenerConfig struct {
	Port                 uint16
	InboundRatePerSecond float64
	InboundBurst         int
	PeerID               string
	Logger               *zerolog.Logger
}

// Listener owns the bound inbound socket.
type Listener struct {
	cfg       ListenerConfig
	conn      *net.UDPConn
	limiter   *sourceLimiter
	log       zerolog.Logger
	closeOnce sync.Once
}

// Listen binds the configured port on all interfaces. A bind failure is
// returned immediately and wraps ErrBind.
func Listen(cfg ListenerConfig) (*Listener, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: int(cfg.Port)})
	if err != nil {
		return nil, fmt.Errorf("%w: port %d: %v", ErrBind, cfg.Port, err)
	}
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Listener{
		cfg:     cfg,
		conn:    conn,
		limiter: newSourceLimiter(cfg.InboundRatePerSecond, cfg.InboundBurst),
		log:     logger,
	}, nil
}

// Addr is the bound local address.
func (l *Listener) Addr() netip.AddrPort {
	return l.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

// Port is the bound local port.
func (l *Listener) Port() uint16 {
	return l.Addr().Port()
}

func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		err = l.conn.Close()
	})
	return err
}

// Serve runs the receive loop until ctx ends, Close is called, or the socket
// fails. Only the last case returns an error, and it wraps ErrListenerFatal.
// Malformed or oversized datagrams are logged and dropped.
func (l *Listener) Serve(ctx context.Context, h Handler) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = l.Close()
		case <-stop:
		}
	}()

	buf := make([]byte, protocol.MaxDatagramSize+1)
	for {
		n, from, err := l.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if ctx.Err() != nil || isClosedErr(err) {
				return nil
			}
			if isTransientReadErr(err) {
				l.log.Debug().Err(err).Msg("transport.Listener.Serve transient read error")
				continue
			}
			return fmt.Errorf("%w: %v", ErrListenerFatal, err)
		}
		l.handleDatagram(from, buf[:n], h)
	}
}

func (l *Listener) handleDatagram(from netip.AddrPort, payload []byte, h Handler) {
	from = netip.AddrPortFrom(from.Addr().Unmap(), from.Port())
	if !l.limiter.Allow(from.Addr()) {
		observability.RecordDatagram(l.cfg.PeerID, observability.ResultLimited)
		l.log.Debug().Str("from", from.String()).Msg("transport.Listener datagram rate limited")
		return
	}
	if len(payload) > protocol.MaxDatagramSize {
		observability.RecordDatagram(l.cfg.PeerID, observability.ResultOversized)
		l.log.Warn().
			Str("from", from.String()).
			Int("bytes", len(payload)).
			Msg("transport.Listener dropped oversized datagram")
		return
	}

	msg, err := protocol.Decode(payload)
	if err != nil {
		observability.RecordDatagram(l.cfg.PeerID, observability.ResultMalformed)
		l.log.Warn().
			Str("from", from.String()).
			Int("bytes", len(payload)).
			Err(err).
			Msg("transport.Listener dropped malformed datagram")
		return
	}
	observability.RecordDatagram(l.cfg.PeerID, observability.ResultOK)
	l.dispatch(from, msg, h)
}

func (l *Listener) dispatch(from netip.AddrPort, msg protocol.Message, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error().
				Str("from", from.String()).
				Str("kind", string(msg.Kind())).
				Interface("panic", r).
				Msg("transport.Listener handler panicked")
		}
	}()
	h.HandleMessage(from, msg)
}

func isClosedErr(err error) bool {
	return errors.Is(err, net.ErrClosed)
}

// isTransientReadErr reports ICMP-driven errors some stacks surface on the
// next read of an unconnected socket.
func isTransientReadErr(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET)
}
