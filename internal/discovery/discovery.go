// Package discovery advertises and browses drawsync peers on the local
// network over mDNS.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog/log"
)

// ServiceType is the mDNS service a listening peer announces.
const ServiceType = "_drawsync._udp"

const peerIDPrefix = "peer_id="

var ErrInvalidPort = errors.New("discovery: invalid port")

// Peer is one discovered drawsync listener.
type Peer struct {
	Instance string `json:"instance"`
	Host     string `json:"host"`
	Addr     string `json:"addr"`
	Port     uint16 `json:"port"`
	PeerID   string `json:"peer_id,omitempty"`
}

// Endpoint is the host:port a remote peer should draw to.
func (p Peer) Endpoint() string {
	return net.JoinHostPort(p.Addr, fmt.Sprint(p.Port))
}

// Advertiser keeps one mDNS announcement alive until Shutdown.
type Advertiser struct {
	server *mdns.Server
}

// Advertise announces the listen port under ServiceType.
func Advertise(peerID string, port uint16) (*Advertiser, error) {
	if port == 0 {
		return nil, ErrInvalidPort
	}
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("discovery: hostname: %w", err)
	}
	info := []string{"drawsync", peerIDPrefix + peerID}
	service, err := mdns.NewMDNSService(host, ServiceType, "", "", int(port), nil, info)
	if err != nil {
		return nil, fmt.Errorf("discovery: service record: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("discovery: start responder: %w", err)
	}
	log.Info().
		Str("peer_id", peerID).
		Str("service", ServiceType).
		Uint16("port", port).
		Msg("discovery.Advertise announced")
	return &Advertiser{server: server}, nil
}

func (a *Advertiser) Shutdown() error {
	if a == nil || a.server == nil {
		return nil
	}
	return a.server.Shutdown()
}

// Browse collects peers answering within timeout. Entries without an IPv4
// address or port are skipped; duplicates are merged.
func Browse(ctx context.Context, timeout time.Duration) ([]Peer, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true

	collected := make(chan []Peer, 1)
	go func() {
		seen := make(map[string]Peer)
		for e := range entries {
			if p, ok := peerFromEntry(e); ok {
				seen[p.Endpoint()] = p
			}
		}
		out := make([]Peer, 0, len(seen))
		for _, p := range seen {
			out = append(out, p)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Endpoint() < out[j].Endpoint() })
		collected <- out
	}()

	queryErr := make(chan error, 1)
	go func() {
		queryErr <- mdns.Query(params)
	}()

	var err error
	select {
	case err = <-queryErr:
	case <-ctx.Done():
		err = ctx.Err()
		// the query goroutine still owns entries; wait for it before closing
		<-queryErr
	}
	close(entries)
	peers := <-collected
	if err != nil {
		return peers, fmt.Errorf("discovery: browse: %w", err)
	}
	return peers, nil
}

func peerFromEntry(e *mdns.ServiceEntry) (Peer, bool) {
	if e == nil || e.AddrV4 == nil || e.Port <= 0 || e.Port > 65535 {
		return Peer{}, false
	}
	p := Peer{
		Instance: strings.TrimSuffix(e.Name, "."),
		Host:     strings.TrimSuffix(e.Host, "."),
		Addr:     e.AddrV4.String(),
		Port:     uint16(e.Port),
	}
	for _, field := range e.InfoFields {
		if id, ok := strings.CutPrefix(field, peerIDPrefix); ok {
			p.PeerID = id
		}
	}
	return p, true
}
