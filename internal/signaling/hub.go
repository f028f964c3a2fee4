package signaling

import (
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/BioHazard786/Watchdrop/internal/protocol"
)

// DefaultRoomCapacity bounds the full-mesh fan-out. Every member keeps a
// direct link to every other member, so this stays small.
const DefaultRoomCapacity = 6

// inboundMessage pairs a wire message with the connection it arrived on.
type inboundMessage struct {
	client *Client
	msg    *protocol.Message
}

// joinRequest is validated before a client is admitted to a room.
type joinRequest struct {
	RoomID   string `validate:"required,min=4,max=16,alphanum"`
	Username string `validate:"required,min=1,max=32"`
}

var joinValidate = validator.New()

// ValidateJoin checks a room code and username against the same rules the hub
// enforces. The hub drops malformed joins without a reply, so clients must
// reject bad input before dialing.
func ValidateJoin(roomID, username string) error {
	req := joinRequest{
		RoomID:   CanonicalRoomID(roomID),
		Username: username,
	}
	if err := joinValidate.StructPartial(&req, "RoomID"); err != nil {
		return fmt.Errorf("room code must be 4-16 letters and digits")
	}
	if err := joinValidate.StructPartial(&req, "Username"); err != nil {
		return fmt.Errorf("name must be 1-32 characters")
	}
	return nil
}

// Hub is the rendezvous server's brain: a directory from room ids to members,
// plus the relay for session negotiation. It never inspects application
// payloads. All state is owned by the single goroutine running Run, so two
// simultaneous joins can never race a room past capacity.
type Hub struct {
	capacity int
	rooms    map[string]*Room
	validate *validator.Validate
	logger   *slog.Logger

	// Register is written when a connection is upgraded; the client is not in
	// any room until it sends join-room.
	Register chan *Client

	// Unregister is written when a connection drops for any reason.
	Unregister chan *Client

	// Inbound carries every parsed client message into the hub loop.
	Inbound chan *inboundMessage
}

// NewHub creates a hub with the given room capacity. A capacity below one
// falls back to the default.
func NewHub(capacity int, logger *slog.Logger) *Hub {
	if capacity < 1 {
		capacity = DefaultRoomCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		capacity:   capacity,
		rooms:      make(map[string]*Room),
		validate:   validator.New(),
		logger:     logger,
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan *inboundMessage),
	}
}

// Run starts the hub's processing loop. This is the single goroutine that
// mutates room state.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.logger.Debug("client registered", "connection_id", client.ID)

		case client := <-h.Unregister:
			h.disconnect(client)
			close(client.Send)

		case in := <-h.Inbound:
			switch in.msg.Type {
			case protocol.MessageTypeJoinRoom:
				h.handleJoin(in.client, in.msg)

			case protocol.MessageTypeSessionOffer,
				protocol.MessageTypeSessionAnswer,
				protocol.MessageTypeICECandidate:
				h.relay(in.client, in.msg)

			default:
				h.logger.Warn("unknown message type", "type", in.msg.Type, "connection_id", in.client.ID)
			}
		}
	}
}

// handleJoin admits a client into a room, or rejects with room-full. On
// success the joiner receives the pre-join member snapshot and everyone else
// receives member-joined.
func (h *Hub) handleJoin(client *Client, msg *protocol.Message) {
	if client.RoomID != "" {
		h.logger.Warn("join ignored, client already in a room",
			"connection_id", client.ID, "room_id", client.RoomID)
		return
	}

	req := joinRequest{
		RoomID:   CanonicalRoomID(msg.RoomID),
		Username: msg.Username,
	}
	if err := h.validate.Struct(&req); err != nil {
		h.logger.Warn("rejecting malformed join", "connection_id", client.ID, "error", err)
		return
	}

	room, ok := h.rooms[req.RoomID]
	if ok && len(room.Members) >= h.capacity {
		h.logger.Info("join rejected, room full", "room_id", req.RoomID, "username", req.Username)
		client.enqueue(protocol.NewMessage(protocol.MessageTypeRoomFull, protocol.RoomFullPayload{
			Message: fmt.Sprintf("room %s is full (max %d members)", req.RoomID, h.capacity),
		}))
		return
	}
	if !ok {
		room = newRoom(req.RoomID)
		h.rooms[req.RoomID] = room
		h.logger.Info("room created", "room_id", req.RoomID)
	}

	// Snapshot before adding, so the joiner sees exactly who was present.
	snapshot := room.Participants()

	client.RoomID = req.RoomID
	client.Username = req.Username
	room.Members[client.ID] = client

	joined := protocol.NewMessage(protocol.MessageTypeParticipantsList, protocol.ParticipantsPayload{
		ConnectionID: client.ID,
		Participants: snapshot,
	})
	client.enqueue(joined)

	room.NotifyOthers(client.ID, protocol.NewMessage(protocol.MessageTypeMemberJoined, protocol.MemberPayload{
		ConnectionID: client.ID,
		Username:     client.Username,
	}))

	h.logger.Info("member joined",
		"room_id", room.ID, "connection_id", client.ID,
		"username", client.Username, "members", len(room.Members))
}

// relay forwards a negotiation message to its target, stamped with the
// sender's identity. Negotiation is inherently racy with disconnects, so a
// missing target is a no-op rather than an error.
func (h *Hub) relay(client *Client, msg *protocol.Message) {
	room, ok := h.rooms[client.RoomID]
	if !ok {
		h.logger.Debug("relay from client outside any room", "connection_id", client.ID)
		return
	}

	target, ok := room.Members[msg.Target]
	if !ok {
		h.logger.Debug("relay target gone", "room_id", room.ID, "target", msg.Target, "type", msg.Type)
		return
	}

	target.enqueue(&protocol.Message{
		Type:     msg.Type,
		From:     client.ID,
		Username: client.Username,
		Payload:  msg.Payload,
	})
}

// disconnect removes the client from its room and tells the remaining members.
// Idempotent: a client that never joined, or was already removed, is a no-op.
func (h *Hub) disconnect(client *Client) {
	if client.RoomID == "" {
		return
	}

	room, ok := h.rooms[client.RoomID]
	if !ok {
		return
	}
	if _, ok := room.Members[client.ID]; !ok {
		return
	}

	delete(room.Members, client.ID)
	client.RoomID = ""

	if len(room.Members) == 0 {
		delete(h.rooms, room.ID)
		h.logger.Info("room deleted", "room_id", room.ID)
		return
	}

	room.NotifyOthers(client.ID, protocol.NewMessage(protocol.MessageTypeMemberLeft, protocol.MemberPayload{
		ConnectionID: client.ID,
		Username:     client.Username,
	}))
	h.logger.Info("member left", "room_id", room.ID, "connection_id", client.ID, "username", client.Username)
}
