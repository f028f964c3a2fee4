package rendezvous

import (
	"encoding/json"
	"log/slog"

	"github.com/BioHazard786/Watchdrop/internal/protocol"
)

// EventKind discriminates rendezvous events.
type EventKind int

const (
	// EventJoined carries the join response: our connection id plus the
	// pre-join member snapshot.
	EventJoined EventKind = iota

	// EventRoomFull means the join was rejected.
	EventRoomFull

	// EventMemberJoined and EventMemberLeft track room membership.
	EventMemberJoined
	EventMemberLeft

	// EventOffer, EventAnswer and EventCandidate are relayed negotiation
	// messages from another member.
	EventOffer
	EventAnswer
	EventCandidate

	// EventDisconnected means the server connection dropped.
	EventDisconnected
)

// Signal is a relayed negotiation message, stamped by the server with the
// sender's identity.
type Signal struct {
	From      string
	Username  string
	SDP       string
	Candidate json.RawMessage
}

// Event is one rendezvous occurrence. Exactly one of the payload fields is set
// depending on Kind.
type Event struct {
	Kind   EventKind
	Joined *protocol.ParticipantsPayload
	Member *protocol.MemberPayload
	Signal *Signal
	Reason string
}

// Handler decodes incoming server messages into a single ordered event stream.
// One channel (not one per message type) keeps delivery order intact: an offer
// is always observed before the candidates that follow it.
type Handler struct {
	client *Client
	events chan Event
}

// NewHandler creates a handler over an established client.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client: client,
		events: make(chan Event, 32),
	}
}

// Events returns the ordered event stream. It is closed after
// EventDisconnected.
func (h *Handler) Events() <-chan Event {
	return h.events
}

// Start consumes the client's incoming messages until the connection drops.
// Run it in its own goroutine.
func (h *Handler) Start() {
	for msg := range h.client.Incoming() {
		switch msg.Type {

		case protocol.MessageTypeParticipantsList:
			var payload protocol.ParticipantsPayload
			if err := msg.DecodePayload(&payload); err != nil {
				slog.Warn("bad participants-list payload", "error", err)
				continue
			}
			h.events <- Event{Kind: EventJoined, Joined: &payload}

		case protocol.MessageTypeRoomFull:
			var payload protocol.RoomFullPayload
			if err := msg.DecodePayload(&payload); err != nil {
				payload.Message = "room is full"
			}
			h.events <- Event{Kind: EventRoomFull, Reason: payload.Message}

		case protocol.MessageTypeMemberJoined:
			if member := decodeMember(msg); member != nil {
				h.events <- Event{Kind: EventMemberJoined, Member: member}
			}

		case protocol.MessageTypeMemberLeft:
			if member := decodeMember(msg); member != nil {
				h.events <- Event{Kind: EventMemberLeft, Member: member}
			}

		case protocol.MessageTypeSessionOffer:
			if signal := decodeSDP(msg); signal != nil {
				h.events <- Event{Kind: EventOffer, Signal: signal}
			}

		case protocol.MessageTypeSessionAnswer:
			if signal := decodeSDP(msg); signal != nil {
				h.events <- Event{Kind: EventAnswer, Signal: signal}
			}

		case protocol.MessageTypeICECandidate:
			var payload protocol.CandidatePayload
			if err := msg.DecodePayload(&payload); err != nil {
				slog.Warn("bad ice-candidate payload", "error", err)
				continue
			}
			h.events <- Event{Kind: EventCandidate, Signal: &Signal{
				From:      msg.From,
				Username:  msg.Username,
				Candidate: payload.Candidate,
			}}

		default:
			slog.Debug("ignoring unknown server message", "type", msg.Type)
		}
	}

	h.events <- Event{Kind: EventDisconnected}
	close(h.events)
}

func decodeMember(msg *protocol.Message) *protocol.MemberPayload {
	var payload protocol.MemberPayload
	if err := msg.DecodePayload(&payload); err != nil {
		slog.Warn("bad member payload", "type", msg.Type, "error", err)
		return nil
	}
	return &payload
}

func decodeSDP(msg *protocol.Message) *Signal {
	var payload protocol.SDPPayload
	if err := msg.DecodePayload(&payload); err != nil {
		slog.Warn("bad sdp payload", "type", msg.Type, "error", err)
		return nil
	}
	return &Signal{From: msg.From, Username: msg.Username, SDP: payload.SDP}
}
