package signaling

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BioHazard786/Watchdrop/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. SDP offers fit well within this.
	maxMessageSize = 64 * 1024
)

// Client is the server-side wrapper for a single websocket connection. Its ID
// is the connection id peers use to address each other; it is assigned at
// upgrade time and never reused.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn

	// ID is the opaque connection id, unique per live connection.
	ID string

	// Username and RoomID are set when the client joins a room.
	Username string
	RoomID   string

	// Send is the buffered channel of outbound messages. writePump is the
	// only goroutine that writes to the connection.
	Send chan *protocol.Message
}

// enqueue drops the message if the client's send buffer is full rather than
// blocking the hub loop on a slow consumer.
func (c *Client) enqueue(msg *protocol.Message) {
	select {
	case c.Send <- msg:
	default:
		slog.Warn("dropping message for slow client", "connection_id", c.ID, "type", msg.Type)
	}
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine, ensuring there
// is at most one reader on a connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg protocol.Message
		if err := c.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("websocket read error", "connection_id", c.ID, "error", err)
			}
			break
		}

		c.Hub.Inbound <- &inboundMessage{client: c, msg: &msg}
	}
}

// WritePump pumps messages from the hub to the websocket connection and sends
// periodic pings. One goroutine per connection; the only writer.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(message); err != nil {
				slog.Debug("websocket write error", "connection_id", c.ID, "error", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
