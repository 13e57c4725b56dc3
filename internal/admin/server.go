package admin

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/danmuck/drawsync/internal/canvas"
	"github.com/danmuck/drawsync/internal/observability"
	"github.com/danmuck/drawsync/internal/peer"
	"github.com/danmuck/drawsync/internal/protocol"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 5 * time.Second

// Peer is the slice of peer.Service the admin surface drives.
type Peer interface {
	PeerID() string
	Status() peer.Status
	SendSegment(start, end protocol.Point, color protocol.RGB, thickness int32) error
	SendClear() error
}

var _ Peer = (*peer.Service)(nil)

// Config configures the admin listener.
type Config struct {
	ListenAddr  string
	CORSOrigins []string
}

// Server is the gin-backed operator surface of one peer.
type Server struct {
	cfg      Config
	peer     Peer
	raster   *canvas.Raster
	feed     *Feed
	local    canvas.Canvas
	router   *gin.Engine
	validate *validator.Validate
	upgrader websocket.Upgrader
	log      zerolog.Logger
	appeared time.Time
}

// New wires the routes. Local input is applied to the raster and the feed
// before being sent to the remote peer.
func New(cfg Config, p Peer, raster *canvas.Raster, feed *Feed) *Server {
	observability.RegisterMetrics()
	if feed == nil {
		feed = NewFeed()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(p.PeerID()))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CORSOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	origins := normalizeOrigins(cfg.CORSOrigins)
	local := canvas.Multi(feed)
	if raster != nil {
		local = canvas.Multi(raster, feed)
	}
	s := &Server{
		cfg:      cfg,
		peer:     p,
		raster:   raster,
		feed:     feed,
		local:    local,
		router:   r,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return originAllowed(origins, r) },
		},
		log:      observability.PeerLogger(p.PeerID()),
		appeared: time.Now(),
	}
	s.RegisterRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on the configured address until ctx ends. Shutdown through
// ctx returns nil.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	return s.serveListener(ctx, ln)
}

func (s *Server) serveListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		s.feed.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("admin.Server listening")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}

func originAllowed(origins []string, r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range origins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
