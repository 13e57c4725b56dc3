package admin

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/danmuck/drawsync/internal/canvas"
	"github.com/danmuck/drawsync/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	feedClientBuffer = 64
	feedWriteTimeout = 5 * time.Second
)

// FeedEvent is one canvas mutation pushed to websocket viewers.
type FeedEvent struct {
	Type      string          `json:"type"`
	Start     *protocol.Point `json:"start,omitempty"`
	End       *protocol.Point `json:"end,omitempty"`
	Color     string          `json:"color,omitempty"`
	Thickness int32           `json:"thickness,omitempty"`
	At        time.Time       `json:"at"`
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *feedClient) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Feed is a canvas.Canvas that fans every applied mutation out to connected
// websocket viewers. A viewer that cannot keep up is disconnected.
type Feed struct {
	mu      sync.Mutex
	clients map[*feedClient]struct{}
	closed  bool
	log     zerolog.Logger
}

var _ canvas.Canvas = (*Feed)(nil)

func NewFeed() *Feed {
	return &Feed{
		clients: make(map[*feedClient]struct{}),
		log:     log.Logger,
	}
}

func (f *Feed) ApplyStroke(start, end protocol.Point, color protocol.RGB, thickness int32) {
	f.publish(FeedEvent{
		Type:      string(protocol.KindSegment),
		Start:     &start,
		End:       &end,
		Color:     canvas.Hex(color),
		Thickness: thickness,
		At:        time.Now().UTC(),
	})
}

func (f *Feed) ResetToBlank() {
	f.publish(FeedEvent{Type: string(protocol.KindClear), At: time.Now().UTC()})
}

// Clients is the number of connected viewers.
func (f *Feed) Clients() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

func (f *Feed) publish(ev FeedEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		f.log.Error().Err(err).Msg("admin.Feed encode failed")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.clients {
		select {
		case c.send <- payload:
		default:
			f.log.Warn().Msg("admin.Feed viewer too slow; disconnecting")
			f.removeLocked(c)
		}
	}
}

func (f *Feed) add(conn *websocket.Conn) (*feedClient, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, false
	}
	c := &feedClient{conn: conn, send: make(chan []byte, feedClientBuffer)}
	f.clients[c] = struct{}{}
	return c, true
}

func (f *Feed) remove(c *feedClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeLocked(c)
}

func (f *Feed) removeLocked(c *feedClient) {
	if _, ok := f.clients[c]; !ok {
		return
	}
	delete(f.clients, c)
	c.close()
}

// Attach runs one viewer connection until it disconnects or the feed closes.
func (f *Feed) Attach(conn *websocket.Conn) {
	c, ok := f.add(conn)
	if !ok {
		_ = conn.Close()
		return
	}
	f.log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("admin.Feed viewer attached")

	go func() {
		defer f.remove(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for payload := range c.send {
		_ = conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			f.remove(c)
			break
		}
	}
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	_ = conn.Close()
	f.log.Debug().Msg("admin.Feed viewer detached")
}

// Close disconnects every viewer and rejects new ones.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for c := range f.clients {
		f.removeLocked(c)
	}
}
