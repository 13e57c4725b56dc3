package main

import (
	"bytes"
	"context"
	"net/netip"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/drawsync/internal/peer"
	"github.com/danmuck/drawsync/internal/protocol"
	"github.com/danmuck/drawsync/internal/testutil/testlog"
	"github.com/danmuck/drawsync/internal/transport"
	"github.com/spf13/pflag"
)

func TestLoadServiceConfigDefaultsAndOverrides(t *testing.T) {
	testlog.Start(t)
	cfg, err := loadServiceConfig("ex.config.toml")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PeerID != "peer.studio" {
		t.Fatalf("unexpected peer id: %q", cfg.PeerID)
	}
	if cfg.ListenPort != 2100 {
		t.Fatalf("unexpected listen port: %d", cfg.ListenPort)
	}
	if cfg.Remote != (transport.Endpoint{Host: "studio.local", Port: 2101}) {
		t.Fatalf("unexpected remote: %+v", cfg.Remote)
	}
	if cfg.HeartbeatInterval != 5*time.Second {
		t.Fatalf("unexpected heartbeat: %v", cfg.HeartbeatInterval)
	}
	if cfg.ResolveTimeout != 750*time.Millisecond {
		t.Fatalf("unexpected resolve timeout: %v", cfg.ResolveTimeout)
	}
	if cfg.InboundRatePerSecond != 500 || cfg.InboundBurst != 128 {
		t.Fatalf("unexpected inbound limits: %v/%d", cfg.InboundRatePerSecond, cfg.InboundBurst)
	}
	if cfg.AdminListenAddr != "127.0.0.1:7010" {
		t.Fatalf("unexpected admin listen: %q", cfg.AdminListenAddr)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:5173" {
		t.Fatalf("unexpected cors origins: %+v", cfg.CORSOrigins)
	}
	if !cfg.Advertise {
		t.Fatalf("expected advertise enabled")
	}

	defaults := peer.DefaultServiceConfig()
	if cfg.CanvasWidth != defaults.CanvasWidth || cfg.CanvasHeight != defaults.CanvasHeight {
		t.Fatalf("unset keys must keep defaults, got %dx%d", cfg.CanvasWidth, cfg.CanvasHeight)
	}
}

func TestLoadServiceConfigRejectsBadValues(t *testing.T) {
	testlog.Start(t)
	cases := map[string]string{
		"heartbeat":   `heartbeat = "often"`,
		"remote port": `remote_port = 0`,
		"listen port": `listen_port = 70000`,
	}
	for name, body := range cases {
		path := filepath.Join(t.TempDir(), "bad.toml")
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := loadServiceConfig(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestApplyPositional(t *testing.T) {
	cfg, err := applyPositional(peer.DefaultServiceConfig(), []string{"2001", "10.0.0.5", "2000"})
	if err != nil {
		t.Fatalf("apply positional: %v", err)
	}
	if cfg.ListenPort != 2001 || cfg.Remote.Host != "10.0.0.5" || cfg.Remote.Port != 2000 {
		t.Fatalf("unexpected positional config: %+v", cfg)
	}

	cfg, err = applyPositional(peer.DefaultServiceConfig(), []string{"3000"})
	if err != nil {
		t.Fatalf("apply listen port only: %v", err)
	}
	if cfg.ListenPort != 3000 || cfg.Remote.Host != peer.DefaultRemoteHost || cfg.Remote.Port != peer.DefaultRemotePort {
		t.Fatalf("missing args must keep defaults: %+v", cfg)
	}

	for _, args := range [][]string{{"abc"}, {"2000", " "}, {"2000", "host", "0"}, {"1", "2", "3", "4"}} {
		if _, err := applyPositional(peer.DefaultServiceConfig(), args); err == nil {
			t.Fatalf("expected error for args %v", args)
		}
	}
}

func TestResolveServiceConfigPrecedence(t *testing.T) {
	testlog.Start(t)
	flags := &serveFlags{}
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	flags.register(fs)
	if err := fs.Parse([]string{"--config", "ex.config.toml", "--remote", "127.0.0.1:4000", "--heartbeat", "1s"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := resolveServiceConfig(fs, flags, []string{"2200", "positional.local", "2201"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.ListenPort != 2200 {
		t.Fatalf("positional listen port must beat file, got %d", cfg.ListenPort)
	}
	if cfg.Remote != (transport.Endpoint{Host: "127.0.0.1", Port: 4000}) {
		t.Fatalf("flag remote must beat positional, got %+v", cfg.Remote)
	}
	if cfg.HeartbeatInterval != time.Second {
		t.Fatalf("flag heartbeat must beat file, got %v", cfg.HeartbeatInterval)
	}
	if cfg.PeerID != "peer.studio" {
		t.Fatalf("file peer id must beat defaults, got %q", cfg.PeerID)
	}
}

func TestBuildSegment(t *testing.T) {
	seg, err := buildSegment([]string{"1", "-2", "3", "4"}, "orange", 7)
	if err != nil {
		t.Fatalf("build segment: %v", err)
	}
	want := protocol.Segment{
		Start:     protocol.Point{X: 1, Y: -2},
		End:       protocol.Point{X: 3, Y: 4},
		Color:     0xffffc800,
		Thickness: 7,
	}
	if seg != want {
		t.Fatalf("unexpected segment: %+v", seg)
	}
	if _, err := buildSegment([]string{"1", "2", "3", "4"}, "black", 51); err == nil {
		t.Fatalf("expected thickness above the input cap to be rejected")
	}
	if _, err := buildSegment([]string{"1", "2", "3", "x"}, "black", 3); err == nil {
		t.Fatalf("expected bad coordinate to be rejected")
	}
	if _, err := buildSegment([]string{"1", "2", "3", "4"}, "mauve", 3); err == nil {
		t.Fatalf("expected unknown color to be rejected")
	}
}

func TestSendClearCommandReachesListener(t *testing.T) {
	testlog.Start(t)
	l, err := transport.Listen(transport.ListenerConfig{Port: 0})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	got := make(chan protocol.Message, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = l.Serve(ctx, transport.HandlerFunc(func(_ netip.AddrPort, msg protocol.Message) {
			got <- msg
		}))
	}()
	defer l.Close()

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"send", "clear", "--to", "127.0.0.1:" + strconv.Itoa(int(l.Port()))})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("send clear: %v", err)
	}

	select {
	case msg := <-got:
		if msg.Kind() != protocol.KindClear {
			t.Fatalf("expected clear, got %s", msg.Kind())
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("listener never received clear")
	}
	if !strings.Contains(out.String(), "sent clear") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version", "--short"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if strings.TrimSpace(out.String()) != version {
		t.Fatalf("unexpected version output: %q", out.String())
	}
}
