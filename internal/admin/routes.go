package admin

import (
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/drawsync/internal/canvas"
	"github.com/danmuck/drawsync/internal/peer"
	"github.com/danmuck/drawsync/internal/protocol"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StrokeRequest is the local input body of POST /strokes.
type StrokeRequest struct {
	Start     protocol.Point `json:"start"`
	End       protocol.Point `json:"end"`
	Color     string         `json:"color" validate:"required"`
	Thickness int32          `json:"thickness" validate:"min=1,max=50"`
}

func (s *Server) RegisterRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/status", s.handleStatus)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/canvas.png", s.handleCanvasPNG)
	s.router.GET("/canvas.pdf", s.handleCanvasPDF)
	s.router.POST("/strokes", s.handleStroke)
	s.router.POST("/clear", s.handleClear)
	s.router.GET("/ws", s.handleFeed)
}

func (s *Server) handleHealth(c *gin.Context) {
	st := s.peer.Status()
	if st.State == peer.StateFailed {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "failed",
			"state":  st.State,
			"error":  st.Error,
			"peer":   st.PeerID,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"state":  st.State,
		"uptime": time.Since(s.appeared).String(),
		"peer":   st.PeerID,
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	resp := gin.H{
		"peer":    s.peer.Status(),
		"viewers": s.feed.Clients(),
	}
	if s.raster != nil {
		resp["canvas"] = s.raster.Stats()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCanvasPNG(c *gin.Context) {
	if s.raster == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no canvas attached"})
		return
	}
	c.Header("Content-Type", "image/png")
	if err := s.raster.WritePNG(c.Writer); err != nil {
		s.log.Error().Err(err).Msg("admin png export failed")
		c.Status(http.StatusInternalServerError)
	}
}

func (s *Server) handleCanvasPDF(c *gin.Context) {
	if s.raster == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no canvas attached"})
		return
	}
	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", `attachment; filename="canvas.pdf"`)
	if err := s.raster.WritePDF(c.Writer); err != nil {
		s.log.Error().Err(err).Msg("admin pdf export failed")
		c.Status(http.StatusInternalServerError)
	}
}

func (s *Server) handleStroke(c *gin.Context) {
	var req StrokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verrs.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	color, err := canvas.ParseColor(req.Color)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.local.ApplyStroke(req.Start, req.End, color, req.Thickness)
	respondSend(c, s.peer.SendSegment(req.Start, req.End, color, req.Thickness))
}

func (s *Server) handleClear(c *gin.Context) {
	s.local.ResetToBlank()
	respondSend(c, s.peer.SendClear())
}

func (s *Server) handleFeed(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("admin websocket upgrade failed")
		return
	}
	s.feed.Attach(conn)
}

// respondSend reports a local input that was applied locally. Delivery to the
// remote peer is best-effort, so a send failure is reported but not an error
// status.
func respondSend(c *gin.Context, err error) {
	if err != nil {
		c.JSON(http.StatusAccepted, gin.H{"status": "applied", "sent": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sent": true})
}
