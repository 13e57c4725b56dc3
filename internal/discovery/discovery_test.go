package discovery

import (
	"errors"
	"net"
	"testing"

	"github.com/danmuck/drawsync/internal/testutil/testlog"
	"github.com/hashicorp/mdns"
)

func TestPeerFromEntry(t *testing.T) {
	testlog.Start(t)
	entry := &mdns.ServiceEntry{
		Name:       "studio._drawsync._udp.local.",
		Host:       "studio.local.",
		AddrV4:     net.IPv4(192, 168, 1, 20),
		Port:       2000,
		InfoFields: []string{"drawsync", "peer_id=abc-123"},
	}
	p, ok := peerFromEntry(entry)
	if !ok {
		t.Fatalf("expected entry to be accepted")
	}
	if p.Endpoint() != "192.168.1.20:2000" || p.PeerID != "abc-123" || p.Host != "studio.local" {
		t.Fatalf("unexpected peer: %+v", p)
	}
}

func TestPeerFromEntryRejectsIncomplete(t *testing.T) {
	testlog.Start(t)
	cases := []*mdns.ServiceEntry{
		nil,
		{Port: 2000},
		{AddrV4: net.IPv4(10, 0, 0, 1)},
		{AddrV4: net.IPv4(10, 0, 0, 1), Port: 70000},
	}
	for i, e := range cases {
		if _, ok := peerFromEntry(e); ok {
			t.Fatalf("case %d: expected rejection", i)
		}
	}
}

func TestAdvertiseRejectsZeroPort(t *testing.T) {
	testlog.Start(t)
	if _, err := Advertise("peer", 0); !errors.Is(err, ErrInvalidPort) {
		t.Fatalf("expected ErrInvalidPort, got %v", err)
	}
	var a *Advertiser
	if err := a.Shutdown(); err != nil {
		t.Fatalf("nil advertiser shutdown: %v", err)
	}
}
