package peer

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/drawsync/internal/canvas"
	"github.com/danmuck/drawsync/internal/observability"
	"github.com/danmuck/drawsync/internal/protocol"
	"github.com/danmuck/drawsync/internal/transport"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrAlreadyStarted = errors.New("peer: service already started")
	ErrNotStarted     = errors.New("peer: service not started")
)

// State is the lifecycle position of a Service.
type State string

const (
	StateCreated   State = "created"
	StateListening State = "listening"
	StateFailed    State = "failed"
	StateStopped   State = "stopped"
)

var knownStates = []string{
	string(StateCreated),
	string(StateListening),
	string(StateFailed),
	string(StateStopped),
}

// packetListener is the slice of transport.Listener the service drives.
type packetListener interface {
	Serve(ctx context.Context, h transport.Handler) error
	Port() uint16
	Close() error
}

type listenFunc func(cfg transport.ListenerConfig) (packetListener, error)

func listenUDP(cfg transport.ListenerConfig) (packetListener, error) {
	return transport.Listen(cfg)
}

type canvasBinding struct {
	canvas canvas.Canvas
}

// Status is a point-in-time view of a Service.
type Status struct {
	PeerID         string             `json:"peer_id"`
	State          State              `json:"state"`
	Remote         transport.Endpoint `json:"remote"`
	ListenPort     uint16             `json:"listen_port"`
	StartedAt      time.Time          `json:"started_at"`
	Uptime         string             `json:"uptime"`
	CanvasBound    bool               `json:"canvas_bound"`
	Received       uint64             `json:"received"`
	DroppedUnbound uint64             `json:"dropped_unbound"`
	Sent           uint64             `json:"sent"`
	SendFailures   uint64             `json:"send_failures"`
	Error          string             `json:"error,omitempty"`
}

// Service combines the outbound Link and the inbound Listener of one peer.
type Service struct {
	cfg    ServiceConfig
	log    zerolog.Logger
	listen listenFunc

	mu       sync.RWMutex
	state    State
	err      error
	link     *transport.Link
	listener packetListener
	port     uint16
	started  time.Time
	cancel   context.CancelFunc
	done     chan struct{}

	canvas         atomic.Pointer[canvasBinding]
	received       atomic.Uint64
	droppedUnbound atomic.Uint64
	sent           atomic.Uint64
	sendFailures   atomic.Uint64
}

// Peer service constructor using default config.
func NewService() *Service {
	return NewServiceWithConfig(DefaultServiceConfig())
}

// Peer service constructor using explicit config. A missing PeerID is
// replaced with a random one.
func NewServiceWithConfig(cfg ServiceConfig) *Service {
	if strings.TrimSpace(cfg.PeerID) == "" {
		cfg.PeerID = uuid.NewString()
	}
	s := &Service{
		cfg:    cfg,
		log:    observability.PeerLogger(cfg.PeerID),
		listen: listenUDP,
		state:  StateCreated,
		done:   make(chan struct{}),
	}
	s.recordState(StateCreated)
	return s
}

func (s *Service) Config() ServiceConfig {
	return s.cfg
}

func (s *Service) PeerID() string {
	return s.cfg.PeerID
}

// Start binds the listen port and launches the receive loop in the
// background. It moves the service from created to listening; a bind
// failure moves it to failed and is returned wrapping transport.ErrBind.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateCreated {
		return fmt.Errorf("%w: state=%s", ErrAlreadyStarted, s.state)
	}
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	link, err := transport.NewLink(transport.LinkConfig{
		Remote:         s.cfg.Remote,
		ResolveTimeout: s.cfg.ResolveTimeout,
	})
	if err != nil {
		return err
	}

	logger := s.log
	listener, err := s.listen(transport.ListenerConfig{
		Port:                 s.cfg.ListenPort,
		InboundRatePerSecond: s.cfg.InboundRatePerSecond,
		InboundBurst:         s.cfg.InboundBurst,
		PeerID:               s.cfg.PeerID,
		Logger:               &logger,
	})
	if err != nil {
		_ = link.Close()
		s.failLocked(err)
		close(s.done)
		s.log.Error().Err(err).Uint16("port", s.cfg.ListenPort).Msg("peer.Service.Start bind failed")
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.link = link
	s.listener = listener
	s.port = listener.Port()
	s.started = time.Now()
	s.cancel = cancel
	s.state = StateListening
	s.recordState(StateListening)

	go s.serve(ctx, listener)

	s.log.Info().
		Uint16("listen_port", s.port).
		Str("remote", s.cfg.Remote.String()).
		Msg("peer.Service.Start listening")
	return nil
}

func (s *Service) serve(ctx context.Context, listener packetListener) {
	err := listener.Serve(ctx, transport.HandlerFunc(s.dispatch))

	s.mu.Lock()
	defer s.mu.Unlock()
	defer close(s.done)
	if err != nil {
		s.failLocked(err)
		s.log.Error().
			Err(err).
			Uint16("listen_port", s.port).
			Msg("peer.Service listener failed; peer link is down until restart")
		return
	}
	if s.state == StateListening {
		s.state = StateStopped
		s.recordState(StateStopped)
	}
}

func (s *Service) failLocked(err error) {
	s.state = StateFailed
	s.err = err
	s.recordState(StateFailed)
}

// dispatch runs on the listener goroutine, one message at a time.
func (s *Service) dispatch(from netip.AddrPort, msg protocol.Message) {
	s.received.Add(1)
	binding := s.canvas.Load()
	if binding == nil || binding.canvas == nil {
		s.droppedUnbound.Add(1)
		observability.RecordDatagram(s.cfg.PeerID, observability.ResultUnbound)
		s.log.Debug().
			Str("from", from.String()).
			Str("kind", string(msg.Kind())).
			Msg("peer.Service dropped message before canvas bound")
		return
	}
	canvas.Apply(binding.canvas, msg)
	observability.RecordDispatch(s.cfg.PeerID, string(msg.Kind()))
}

// BindCanvas attaches the surface inbound messages are applied to. It may
// be called before or after Start and replaces any previous binding; nil
// detaches.
func (s *Service) BindCanvas(c canvas.Canvas) {
	if c == nil {
		s.canvas.Store(nil)
		return
	}
	s.canvas.Store(&canvasBinding{canvas: c})
}

// SendSegment sends one stroke increment to the remote peer. Failures are
// logged and returned; they never affect the listener.
func (s *Service) SendSegment(start, end protocol.Point, color protocol.RGB, thickness int32) error {
	return s.Send(context.Background(), protocol.Segment{
		Start:     start,
		End:       end,
		Color:     color,
		Thickness: thickness,
	})
}

// SendClear tells the remote peer to reset its canvas.
func (s *Service) SendClear() error {
	return s.Send(context.Background(), protocol.Clear{})
}

// Send transmits msg best-effort. Transport failures wrap transport.ErrTransport.
func (s *Service) Send(ctx context.Context, msg protocol.Message) error {
	s.mu.RLock()
	link := s.link
	s.mu.RUnlock()
	if link == nil {
		return ErrNotStarted
	}

	err := link.Send(ctx, msg)
	kind := ""
	if msg != nil {
		kind = string(msg.Kind())
	}
	observability.RecordSend(s.cfg.PeerID, kind, err)
	if err != nil {
		s.sendFailures.Add(1)
		s.log.Warn().
			Err(err).
			Str("kind", kind).
			Str("remote", s.cfg.Remote.String()).
			Msg("peer.Service send failed")
		return err
	}
	s.sent.Add(1)
	return nil
}

// State reports the current lifecycle state.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err is the terminal error once the service has failed.
func (s *Service) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Done is closed when the receive loop has exited or the bind failed.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

// ListenPort is the bound port, useful when configured with port 0.
func (s *Service) ListenPort() uint16 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.port
}

func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{
		PeerID:         s.cfg.PeerID,
		State:          s.state,
		Remote:         s.cfg.Remote,
		ListenPort:     s.port,
		StartedAt:      s.started,
		CanvasBound:    s.canvas.Load() != nil,
		Received:       s.received.Load(),
		DroppedUnbound: s.droppedUnbound.Load(),
		Sent:           s.sent.Load(),
		SendFailures:   s.sendFailures.Load(),
	}
	if !s.started.IsZero() {
		st.Uptime = time.Since(s.started).Round(time.Second).String()
	}
	if s.err != nil {
		st.Error = s.err.Error()
	}
	return st
}

// Close stops the receive loop and releases both sockets. A failed service
// stays failed.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.state == StateCreated {
		s.state = StateStopped
		s.recordState(StateStopped)
		close(s.done)
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	listener := s.listener
	link := s.link
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var errs []error
	if listener != nil {
		if err := listener.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	<-s.done
	if link != nil {
		if err := link.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run starts the service when needed and blocks until ctx ends or the
// listener fails. Shutdown through ctx returns nil; a listener failure
// returns the terminal error.
func (s *Service) Run(ctx context.Context) error {
	if s.State() == StateCreated {
		if err := s.Start(); err != nil {
			return err
		}
	}
	defer s.Close()

	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("peer.Service.Run shutdown")
			return nil
		case <-s.Done():
			return s.Err()
		case <-ticker.C:
			st := s.Status()
			s.log.Info().
				Str("state", string(st.State)).
				Uint16("listen_port", st.ListenPort).
				Uint64("received", st.Received).
				Uint64("sent", st.Sent).
				Uint64("send_failures", st.SendFailures).
				Msg("peer.Service.Run heartbeat")
		}
	}
}

func (s *Service) recordState(state State) {
	observability.RecordState(s.cfg.PeerID, string(state), knownStates)
}
