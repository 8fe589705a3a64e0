package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

// Websocket timing. Viewers are browsers on the local network.
const (
	writeWait      = 5 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4 * 1024 // Viewers only send control frames
)

// Client forwards one subscription to a websocket viewer
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	sub  *Subscriber
}

// NewClient subscribes a websocket connection to the hub.
// It returns nil if the hub has stopped.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	sub := hub.Subscribe(DefaultBuffer)
	if sub == nil {
		return nil
	}
	return &Client{hub: hub, conn: conn, sub: sub}
}

// Run blocks until the viewer goes away or the hub drops it.
// Call it from the websocket handler.
func (c *Client) Run() {
	c.hub.log.Debug("viewer connected", "id", c.sub.ID, "remote", c.conn.RemoteAddr().String())

	done := make(chan struct{})
	go func() {
		c.forward()
		close(done)
	}()
	c.drain()
	<-done

	c.hub.log.Debug("viewer disconnected", "id", c.sub.ID)
}

// drain discards viewer input so pongs and close frames are processed.
// It unsubscribes when the connection fails, which ends forward.
func (c *Client) drain() {
	defer c.hub.Unsubscribe(c.sub)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("viewer read failed", "id", c.sub.ID, "error", err)
			}
			return
		}
	}
}

// forward owns all writes to the connection.
func (c *Client) forward() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.sub.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream ended"))
				return
			}
			if err := c.conn.WriteMessage(msg.wsType(), msg.Data); err != nil {
				return
			}

		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (m Message) wsType() int {
	if m.Type == BinaryMessage {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}
