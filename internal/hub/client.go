package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Srujan0798/Rest-iN-U-sub003/internal/domain"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	sendBuffer = 256
)

// FrameHandler receives decoded traffic for one connection. The gateway
// implements it; the hub stays protocol-agnostic.
type FrameHandler interface {
	HandleFrame(c *Client, frame []byte)
	HandleDisconnect(c *Client)
}

// Client is one live transport session with exactly one identity attached.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	handler  FrameHandler
	id       string
	identity domain.Identity

	// sendMu serializes enqueues against closeSend so a delivery racing an
	// unregister lands on a closed flag, never a closed channel.
	sendMu sync.Mutex
	closed bool
	send   chan []byte

	// Rooms this connection belongs to, maintained by the hub under its
	// own lock.
	rooms map[string]bool
}

func NewClient(h *Hub, conn *websocket.Conn, identity domain.Identity, handler FrameHandler) *Client {
	return &Client{
		hub:      h,
		conn:     conn,
		handler:  handler,
		id:       uuid.NewString(),
		identity: identity,
		send:     make(chan []byte, sendBuffer),
		rooms:    make(map[string]bool),
	}
}

func (c *Client) ID() string                { return c.id }
func (c *Client) Identity() domain.Identity { return c.identity }

// Run starts the read and write pumps.
func (c *Client) Run() {
	go c.writePump()
	go c.readPump()
}

// Send queues an event directly to this connection, bypassing rooms.
// Acknowledgments use this path so other tabs of the same identity do not
// see an echo.
func (c *Client) Send(ev domain.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		logrus.WithError(err).WithField("event", ev.Type).Error("Failed to marshal direct event")
		return
	}
	c.enqueue(payload)
}

func (c *Client) enqueue(payload []byte) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		// The hub tore this connection down after a broadcast snapshotted
		// it; the event is simply lost to a connection that is gone.
		return
	}
	select {
	case c.send <- payload:
	default:
		// A slow consumer must not block broadcasts; drop and let the
		// write pump or ping timeout tear the connection down.
		logrus.WithFields(logrus.Fields{
			"conn_id":  c.id,
			"identity": c.identity.ID,
		}).Warn("Client send buffer full, dropping event")
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Close forcibly tears the connection down.
func (c *Client) Close() {
	_ = c.conn.Close()
}

func (c *Client) readPump() {
	defer func() {
		c.handler.HandleDisconnect(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, frame, err := c.conn.ReadMessage()
		if err != nil {
			logCtx := logrus.WithFields(logrus.Fields{"conn_id": c.id, "identity": c.identity.ID})
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logCtx.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				logCtx.Debug("WebSocket connection closed")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		c.handler.HandleFrame(c, frame)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel during unregister.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logrus.WithFields(logrus.Fields{"conn_id": c.id, "identity": c.identity.ID}).
					WithError(err).Warn("Failed to write message to websocket")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
