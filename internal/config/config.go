// Package config owns the drawsync TOML file schema: strict loading,
// validation and template generation.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danmuck/drawsync/internal/peer"
	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

var ErrInvalidConfig = errors.New("config: invalid")

// PeerFile is the on-disk form of a peer's configuration. Durations are
// Go duration strings.
type PeerFile struct {
	PeerID         string   `toml:"peer_id" validate:"omitempty,max=128"`
	ListenPort     int      `toml:"listen_port" validate:"min=0,max=65535"`
	RemoteHost     string   `toml:"remote_host" validate:"required"`
	RemotePort     int      `toml:"remote_port" validate:"min=1,max=65535"`
	ResolveTimeout string   `toml:"resolve_timeout" validate:"omitempty,duration"`
	Heartbeat      string   `toml:"heartbeat" validate:"omitempty,duration"`
	InboundRate    float64  `toml:"inbound_rate" validate:"min=0"`
	InboundBurst   int      `toml:"inbound_burst" validate:"min=0"`
	AdminAddr      string   `toml:"admin_addr" validate:"omitempty,hostname_port"`
	CorsOrigins    []string `toml:"cors_origins" validate:"dive,required"`
	Advertise      bool     `toml:"advertise"`
	CanvasWidth    int      `toml:"canvas_width" validate:"min=1,max=8192"`
	CanvasHeight   int      `toml:"canvas_height" validate:"min=1,max=8192"`
}

// DefaultPeerFile renders peer.DefaultServiceConfig in file form.
func DefaultPeerFile() PeerFile {
	cfg := peer.DefaultServiceConfig()
	return PeerFile{
		ListenPort:     int(cfg.ListenPort),
		RemoteHost:     cfg.Remote.Host,
		RemotePort:     int(cfg.Remote.Port),
		ResolveTimeout: cfg.ResolveTimeout.String(),
		Heartbeat:      cfg.HeartbeatInterval.String(),
		InboundRate:    cfg.InboundRatePerSecond,
		InboundBurst:   cfg.InboundBurst,
		AdminAddr:      cfg.AdminListenAddr,
		CorsOrigins:    []string{},
		Advertise:      cfg.Advertise,
		CanvasWidth:    cfg.CanvasWidth,
		CanvasHeight:   cfg.CanvasHeight,
	}
}

// LoadPeerFile decodes path over the defaults, rejecting unknown keys, and
// validates the result.
func LoadPeerFile(path string) (PeerFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PeerFile{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg := DefaultPeerFile()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return PeerFile{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := ValidatePeerFile(cfg); err != nil {
		return PeerFile{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(strings.TrimSpace(fl.Field().String()))
		return err == nil && d > 0
	})
	return v
}

func ValidatePeerFile(cfg PeerFile) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(fields, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if strings.TrimSpace(cfg.RemoteHost) == "" {
		return fmt.Errorf("%w: remote_host is blank", ErrInvalidConfig)
	}
	return nil
}
