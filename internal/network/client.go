package network

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write one message.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong.
	pongWait = 60 * time.Second

	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	sendBuffer = 256
)

// Client is one authenticated websocket connection.
type Client struct {
	conn     *websocket.Conn
	hub      *Hub
	identity string
	log      *zap.SugaredLogger

	mu     sync.Mutex
	closed bool
	send   chan Message
}

func newClient(conn *websocket.Conn, hub *Hub, identity string, log *zap.SugaredLogger) *Client {
	return &Client{
		conn:     conn,
		hub:      hub,
		identity: identity,
		log:      log,
		send:     make(chan Message, sendBuffer),
	}
}

// Identity is the username the connection authenticated as.
func (c *Client) Identity() string {
	return c.identity
}

// RemoteAddr returns the peer address for logging.
func (c *Client) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Deliver queues msg for the write loop. It never blocks: a full queue or a
// closed client drops the message and reports false.
func (c *Client) Deliver(msg Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		c.log.Warnf("[Client %s] outbound queue full, dropping %s", c.identity, msg.Type)
		return false
	}
}

// close stops the write loop. Only the hub calls it.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) readLoop() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warnf("[Client %s] unexpected close from %s: %v", c.identity, c.RemoteAddr(), err)
			}
			return
		}
		c.hub.incoming <- clientMessage{client: c, msg: msg}
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the queue.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.log.Warnf("[Client %s] write failed: %v", c.identity, err)
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
