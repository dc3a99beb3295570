package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/clickrace/server/game/presence"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024
)

// Client is one WebSocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	id   string
	user presence.Identity
}

// ID returns the connection id.
func (c *Client) ID() string { return c.id }

// User returns the authenticated identity behind the connection.
func (c *Client) User() presence.Identity { return c.user }

// readPump reads request envelopes from the peer, dispatches them, and
// enqueues the acks.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("websocket read failed",
					zap.String("conn_id", c.id),
					zap.Error(err))
			}
			break
		}

		var req Request
		if err := json.Unmarshal(raw, &req); err != nil || req.Event == "" {
			c.reply(&Response{ID: req.ID, Event: req.Event, Error: "invalidPayload"})
			continue
		}

		c.reply(c.hub.dispatch(c, &req))
	}
}

// reply enqueues an ack for the write pump.
func (c *Client) reply(resp *Response) {
	raw, err := json.Marshal(resp)
	if err != nil {
		c.hub.log.Error("marshal ack failed", zap.Error(err))
		return
	}
	select {
	case c.send <- raw:
	default:
		c.conn.Close()
	}
}

// writePump pumps enqueued messages to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
