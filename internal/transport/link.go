package transport

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/drawsync/internal/protocol"
)

// Resolver is the host lookup a Link performs on every send.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// LinkConfig configures an outbound Link.
type LinkConfig struct {
	Remote         Endpoint
	ResolveTimeout time.Duration
	Resolver       Resolver
}

func DefaultLinkConfig() LinkConfig {
	return LinkConfig{
		Remote:         Endpoint{Host: "localhost", Port: 2001},
		ResolveTimeout: 2 * time.Second,
	}
}

// Link sends messages to one remote endpoint. It holds a single unconnected
// UDP socket for its lifetime and is safe for concurrent use.
type Link struct {
	cfg       LinkConfig
	conn      *net.UDPConn
	closeOnce sync.Once
}

func NewLink(cfg LinkConfig) (*Link, error) {
	if err := cfg.Remote.Validate(); err != nil {
		return nil, err
	}
	if cfg.ResolveTimeout <= 0 {
		cfg.ResolveTimeout = DefaultLinkConfig().ResolveTimeout
	}
	if cfg.Resolver == nil {
		cfg.Resolver = net.DefaultResolver
	}
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: open send socket: %v", ErrTransport, err)
	}
	return &Link{cfg: cfg, conn: conn}, nil
}

func (l *Link) Remote() Endpoint {
	return l.cfg.Remote
}

// Send encodes msg, resolves the remote host and writes one datagram.
// It returns once the local stack has accepted the packet; delivery is not
// confirmed. Resolution and write failures wrap ErrTransport; an invalid
// message is returned as the protocol error.
func (l *Link) Send(ctx context.Context, msg protocol.Message) error {
	payload, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	addr, err := l.resolve(ctx)
	if err != nil {
		return err
	}
	if _, err := l.conn.WriteToUDPAddrPort(payload, addr); err != nil {
		if isClosedErr(err) {
			return fmt.Errorf("%w: %w", ErrTransport, ErrLinkClosed)
		}
		return fmt.Errorf("%w: write %s: %v", ErrTransport, addr, err)
	}
	return nil
}

func (l *Link) Close() error {
	var err error
	l.closeOnce.Do(func() {
		err = l.conn.Close()
	})
	return err
}

func (l *Link) resolve(ctx context.Context) (netip.AddrPort, error) {
	host := strings.TrimSpace(l.cfg.Remote.Host)
	if addr, err := netip.ParseAddr(host); err == nil {
		return netip.AddrPortFrom(addr.Unmap(), l.cfg.Remote.Port), nil
	}

	ctx, cancel := context.WithTimeout(ctx, l.cfg.ResolveTimeout)
	defer cancel()
	addrs, err := l.cfg.Resolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("%w: resolve %q: %v", ErrTransport, host, err)
	}
	addr, ok := preferIPv4(addrs)
	if !ok {
		return netip.AddrPort{}, fmt.Errorf("%w: resolve %q: no addresses", ErrTransport, host)
	}
	return netip.AddrPortFrom(addr, l.cfg.Remote.Port), nil
}

func preferIPv4(addrs []netip.Addr) (netip.Addr, bool) {
	var fallback netip.Addr
	for _, a := range addrs {
		a = a.Unmap()
		if !a.IsValid() {
			continue
		}
		if a.Is4() {
			return a, true
		}
		if !fallback.IsValid() {
			fallback = a
		}
	}
	return fallback, fallback.IsValid()
}
