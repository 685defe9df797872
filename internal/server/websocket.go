package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/kode4food/walkthrough/internal/events"
	"github.com/kode4food/walkthrough/pkg/api"
	"github.com/kode4food/walkthrough/pkg/log"
)

// Client represents a WebSocket client connection streaming the events of
// a single session
type Client struct {
	conn   *websocket.Conn
	sub    *events.Subscription
	logger *slog.Logger
	once   sync.Once
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	wsBufferSize   = 1024

	MessageSubscribed = "subscribed"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsBufferSize,
	WriteBufferSize: wsBufferSize,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (s *Server) handleWebSocket(c *gin.Context) {
	id := api.SessionID(c.Param("sessionID"))

	// Subscribe before reading the snapshot so nothing falls between them
	sub := s.hub.Subscribe(events.FilterSession(id))
	sess, err := s.sessions.Get(c.Request.Context(), id)
	if err != nil {
		sub.Close()
		s.fail(c, ErrGetSession, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sub.Close()
		s.logger.Error("WebSocket upgrade failed",
			log.SessionID(id),
			log.Error(err))
		return
	}

	client := &Client{
		conn:   conn,
		sub:    sub,
		logger: s.logger.With(log.SessionID(id)),
	}
	s.registerWebSocket(client)

	if !client.send(api.SubscribedResult{
		Type:     MessageSubscribed,
		Session:  sess,
		Sequence: sub.Sequence(),
	}) {
		s.unregisterWebSocket(client)
		client.Close()
		return
	}

	go func() {
		defer s.unregisterWebSocket(client)
		client.run()
	}()
}

// Close stops the client's subscription and closes its connection
func (c *Client) Close() {
	c.once.Do(func() {
		c.sub.Close()
		_ = c.conn.Close()
	})
}

func (c *Client) run() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	closed := make(chan struct{})
	go c.readMessages(closed)

	for {
		select {
		case <-closed:
			return

		case ev, ok := <-c.sub.Receive():
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !c.send(ev) {
				return
			}

		case <-ticker.C:
			if !c.sendPing() {
				return
			}
		}
	}
}

// readMessages drains client frames so control messages are processed.
// Session sockets are read-only, so payloads are discarded
func (c *Client) readMessages(closed chan struct{}) {
	defer close(closed)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) send(msg any) bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		c.logger.Error("WebSocket write failed",
			log.Error(err))
		return false
	}
	return true
}

func (c *Client) sendPing() bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := c.conn.WriteMessage(websocket.PingMessage, nil)
	return err == nil
}
