package chat

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second    // Time allowed to write a message to the peer.
	pongWait       = 60 * time.Second    // Time allowed to read the next pong message from the peer.
	pingPeriod     = (pongWait * 9) / 10 // Send pings to peer with this period. Must be less than pongWait.
	maxMessageSize = 4096                // Maximum frame size allowed from peer.

	sendBufferSize = 256
)

// Client is a middleman between one websocket connection and the hub.
// UserID and Username come from the verified credential and never change
// while the connection lives.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	// Buffered channel of outbound frames. The hub only ever writes here,
	// never to the socket, so a slow peer can't stall anyone else.
	send chan []byte

	UserID   string
	Username string

	mu     sync.Mutex
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn, userID, username string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		UserID:   userID,
		Username: username,
	}
}

// close shuts the send channel, which stops the write pump, which closes the
// transport. Safe to call any number of times: displacement, teardown and the
// slow-consumer path all funnel through here.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// trySend queues an outbound frame without blocking. If the buffer is full
// the client has stopped draining; we cut it loose and let its read pump
// drive the normal teardown. Sends after close are dropped.
func (c *Client) trySend(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- frame:
	default:
		c.closeLocked()
	}
}

// readPump pumps frames from the websocket connection to the hub.
// Frames are handled one at a time, so a single sender's messages are
// persisted and routed in the order they arrived.
func (c *Client) readPump() {
	defer func() {
		c.hub.Remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	// Heartbeat logic (Keep-Alive)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("read error [%s]: %v", c.Username, err)
			}
			break
		}
		c.hub.HandleInbound(c, frame)
	}
}

// writePump pumps frames from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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
