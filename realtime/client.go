package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client is one websocket connection of a user.
type Client struct {
	conn   *websocket.Conn
	hub    *Hub
	userID uuid.UUID
	send   chan []byte
	done   chan struct{}
	once   sync.Once
}

func newClient(h *Hub, userID uuid.UUID, conn *websocket.Conn) *Client {
	return &Client{
		conn:   conn,
		hub:    h,
		userID: userID,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

// Serve registers the connection and runs its pumps until it closes.
func Serve(h *Hub, userID uuid.UUID, conn *websocket.Conn) {
	c := newClient(h, userID, conn)
	h.Join(c)
	go c.writePump()
	go c.readPump()
}

// readPump only consumes control frames; clients do not send data.
func (c *Client) readPump() {
	defer c.Close()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// Close unregisters the client and closes the socket once.
func (c *Client) Close() {
	c.once.Do(func() {
		c.hub.Leave(c)
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}
