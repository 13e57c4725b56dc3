package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/drawsync/internal/config"
	"github.com/danmuck/drawsync/internal/peer"
	"github.com/danmuck/drawsync/internal/transport"
	"github.com/spf13/pflag"
)

type fileConfig struct {
	PeerID         string   `toml:"peer_id"`
	ListenPort     int      `toml:"listen_port"`
	RemoteHost     string   `toml:"remote_host"`
	RemotePort     int      `toml:"remote_port"`
	ResolveTimeout string   `toml:"resolve_timeout"`
	Heartbeat      string   `toml:"heartbeat"`
	InboundRate    float64  `toml:"inbound_rate"`
	InboundBurst   int      `toml:"inbound_burst"`
	AdminAddr      string   `toml:"admin_addr"`
	CorsOrigins    []string `toml:"cors_origins"`
	Advertise      bool     `toml:"advertise"`
	CanvasWidth    int      `toml:"canvas_width"`
	CanvasHeight   int      `toml:"canvas_height"`
}

// loadServiceConfig overlays only the keys present in path onto the defaults.
func loadServiceConfig(path string) (peer.ServiceConfig, error) {
	cfg := peer.DefaultServiceConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return peer.ServiceConfig{}, fmt.Errorf("load drawsync config: %w", err)
	}

	if meta.IsDefined("peer_id") {
		cfg.PeerID = strings.TrimSpace(raw.PeerID)
	}

	if meta.IsDefined("listen_port") {
		port, err := toPort(raw.ListenPort, true)
		if err != nil {
			return peer.ServiceConfig{}, fmt.Errorf("parse listen_port: %w", err)
		}
		cfg.ListenPort = port
	}

	if meta.IsDefined("remote_host") {
		cfg.Remote.Host = strings.TrimSpace(raw.RemoteHost)
	}

	if meta.IsDefined("remote_port") {
		port, err := toPort(raw.RemotePort, false)
		if err != nil {
			return peer.ServiceConfig{}, fmt.Errorf("parse remote_port: %w", err)
		}
		cfg.Remote.Port = port
	}

	if meta.IsDefined("resolve_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ResolveTimeout))
		if err != nil {
			return peer.ServiceConfig{}, fmt.Errorf("parse resolve_timeout: %w", err)
		}
		cfg.ResolveTimeout = d
	}

	if meta.IsDefined("heartbeat") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Heartbeat))
		if err != nil {
			return peer.ServiceConfig{}, fmt.Errorf("parse heartbeat: %w", err)
		}
		cfg.HeartbeatInterval = d
	}

	if meta.IsDefined("inbound_rate") {
		cfg.InboundRatePerSecond = raw.InboundRate
	}

	if meta.IsDefined("inbound_burst") {
		cfg.InboundBurst = raw.InboundBurst
	}

	if meta.IsDefined("admin_addr") {
		cfg.AdminListenAddr = strings.TrimSpace(raw.AdminAddr)
	}

	if meta.IsDefined("cors_origins") {
		cfg.CORSOrigins = normalizeOrigins(raw.CorsOrigins)
	}

	if meta.IsDefined("advertise") {
		cfg.Advertise = raw.Advertise
	}

	if meta.IsDefined("canvas_width") {
		cfg.CanvasWidth = raw.CanvasWidth
	}

	if meta.IsDefined("canvas_height") {
		cfg.CanvasHeight = raw.CanvasHeight
	}

	return cfg, nil
}

// applyPositional honors the classic argv contract:
// [listenPort] [remoteHost] [remotePort].
func applyPositional(cfg peer.ServiceConfig, args []string) (peer.ServiceConfig, error) {
	if len(args) > 3 {
		return cfg, fmt.Errorf("expected at most 3 arguments, got %d", len(args))
	}
	if len(args) >= 1 {
		port, err := parsePort(args[0], true)
		if err != nil {
			return cfg, fmt.Errorf("listen port: %w", err)
		}
		cfg.ListenPort = port
	}
	if len(args) >= 2 {
		host := strings.TrimSpace(args[1])
		if host == "" {
			return cfg, fmt.Errorf("remote host is blank")
		}
		cfg.Remote.Host = host
	}
	if len(args) >= 3 {
		port, err := parsePort(args[2], false)
		if err != nil {
			return cfg, fmt.Errorf("remote port: %w", err)
		}
		cfg.Remote.Port = port
	}
	return cfg, nil
}

// serveFlags are the highest-precedence overrides; only flags the operator
// set are applied.
type serveFlags struct {
	configPath   string
	peerID       string
	listenPort   uint16
	remote       string
	heartbeat    time.Duration
	resolve      time.Duration
	inboundRate  float64
	inboundBurst int
	adminAddr    string
	corsOrigins  []string
	advertise    bool
}

func (f *serveFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.configPath, "config", "c", "", "TOML config file")
	fs.StringVar(&f.peerID, "peer-id", "", "peer identity used in logs and metrics")
	fs.Uint16VarP(&f.listenPort, "listen-port", "l", peer.DefaultListenPort, "local UDP port to listen on")
	fs.StringVarP(&f.remote, "remote", "r", "", "remote peer as host:port")
	fs.DurationVar(&f.heartbeat, "heartbeat", 0, "status log interval")
	fs.DurationVar(&f.resolve, "resolve-timeout", 0, "per-send host resolution timeout")
	fs.Float64Var(&f.inboundRate, "inbound-rate", 0, "per-source datagrams per second (0 disables)")
	fs.IntVar(&f.inboundBurst, "inbound-burst", 0, "per-source burst size")
	fs.StringVar(&f.adminAddr, "admin", "", "admin HTTP listen address (empty disables)")
	fs.StringSliceVar(&f.corsOrigins, "cors-origin", nil, "allowed admin CORS origins")
	fs.BoolVar(&f.advertise, "advertise", false, "announce this peer over mDNS")
}

func (f *serveFlags) apply(fs *pflag.FlagSet, cfg peer.ServiceConfig) (peer.ServiceConfig, error) {
	if fs.Changed("peer-id") {
		cfg.PeerID = strings.TrimSpace(f.peerID)
	}
	if fs.Changed("listen-port") {
		cfg.ListenPort = f.listenPort
	}
	if fs.Changed("remote") {
		ep, err := transport.ParseEndpoint(f.remote)
		if err != nil {
			return cfg, fmt.Errorf("--remote: %w", err)
		}
		cfg.Remote = ep
	}
	if fs.Changed("heartbeat") {
		cfg.HeartbeatInterval = f.heartbeat
	}
	if fs.Changed("resolve-timeout") {
		cfg.ResolveTimeout = f.resolve
	}
	if fs.Changed("inbound-rate") {
		cfg.InboundRatePerSecond = f.inboundRate
	}
	if fs.Changed("inbound-burst") {
		cfg.InboundBurst = f.inboundBurst
	}
	if fs.Changed("admin") {
		cfg.AdminListenAddr = strings.TrimSpace(f.adminAddr)
	}
	if fs.Changed("cors-origin") {
		cfg.CORSOrigins = normalizeOrigins(f.corsOrigins)
	}
	if fs.Changed("advertise") {
		cfg.Advertise = f.advertise
	}
	return cfg, nil
}

// resolveServiceConfig applies defaults < file < positional args < flags.
func resolveServiceConfig(fs *pflag.FlagSet, f *serveFlags, args []string) (peer.ServiceConfig, error) {
	cfg := peer.DefaultServiceConfig()
	if f.configPath != "" {
		if _, err := config.LoadPeerFile(f.configPath); err != nil {
			return peer.ServiceConfig{}, err
		}
		loaded, err := loadServiceConfig(f.configPath)
		if err != nil {
			return peer.ServiceConfig{}, err
		}
		cfg = loaded
	}
	cfg, err := applyPositional(cfg, args)
	if err != nil {
		return peer.ServiceConfig{}, err
	}
	cfg, err = f.apply(fs, cfg)
	if err != nil {
		return peer.ServiceConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return peer.ServiceConfig{}, err
	}
	return cfg, nil
}

func parsePort(raw string, allowZero bool) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", raw)
	}
	return toPort(int(v), allowZero)
}

func toPort(v int, allowZero bool) (uint16, error) {
	if v < 0 || v > 65535 || (v == 0 && !allowZero) {
		return 0, fmt.Errorf("port %d out of range", v)
	}
	return uint16(v), nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
