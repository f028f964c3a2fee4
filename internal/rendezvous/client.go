// Package rendezvous is the client side of the rendezvous protocol: one
// persistent websocket to the server, used for room membership events and for
// relaying session negotiation to other members. Application traffic never
// goes through here.
package rendezvous

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BioHazard786/Watchdrop/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client manages the websocket connection to the rendezvous server.
type Client struct {
	conn      *websocket.Conn
	serverURL string
	incoming  chan *protocol.Message
	outgoing  chan *protocol.Message
	done      chan struct{}
	closed    bool
}

// NewClient creates a new rendezvous client.
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: serverURL,
		incoming:  make(chan *protocol.Message, 32),
		outgoing:  make(chan *protocol.Message, 32),
		done:      make(chan struct{}, 1),
	}
}

// Connect establishes the websocket connection and starts the pumps.
func (c *Client) Connect() error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.conn = conn

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()

	return nil
}

func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		var msg protocol.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		c.incoming <- &msg
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// SendMessage queues a message for the server.
func (c *Client) SendMessage(msg *protocol.Message) {
	select {
	case c.outgoing <- msg:
	case <-c.done:
	}
}

// JoinRoom asks the server to admit us into a room. The response arrives as a
// participants-list or room-full event.
func (c *Client) JoinRoom(roomID, username string) {
	c.SendMessage(&protocol.Message{
		Type:     protocol.MessageTypeJoinRoom,
		RoomID:   roomID,
		Username: username,
	})
}

// SendOffer relays a session offer to the member with the given connection id.
func (c *Client) SendOffer(target, sdp string) {
	msg := protocol.NewMessage(protocol.MessageTypeSessionOffer, protocol.SDPPayload{SDP: sdp})
	msg.Target = target
	c.SendMessage(msg)
}

// SendAnswer relays a session answer to the member with the given connection id.
func (c *Client) SendAnswer(target, sdp string) {
	msg := protocol.NewMessage(protocol.MessageTypeSessionAnswer, protocol.SDPPayload{SDP: sdp})
	msg.Target = target
	c.SendMessage(msg)
}

// SendCandidate relays an ICE candidate to the member with the given
// connection id.
func (c *Client) SendCandidate(target string, candidate json.RawMessage) {
	msg := protocol.NewMessage(protocol.MessageTypeICECandidate, protocol.CandidatePayload{Candidate: candidate})
	msg.Target = target
	c.SendMessage(msg)
}

// Incoming returns the channel of messages from the server. It is closed when
// the connection drops.
func (c *Client) Incoming() <-chan *protocol.Message {
	return c.incoming
}

// Close shuts the connection down.
func (c *Client) Close() {
	if c.closed {
		return
	}
	c.closed = true

	close(c.done)
}
