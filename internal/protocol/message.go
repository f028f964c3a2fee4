package protocol

import "encoding/json"

// Message is the envelope for all websocket traffic between a client and the
// rendezvous server. Routing fields live on the envelope; the payload is only
// decoded by whoever the message is addressed to.
type Message struct {
	Type    string          `json:"type"`
	RoomID  string          `json:"room_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// Target is set by the sender of a signal relay; From and Username are
	// stamped by the server before forwarding.
	Target   string `json:"target,omitempty"`
	From     string `json:"from,omitempty"`
	Username string `json:"username,omitempty"`
}

// Rendezvous message types.
const (
	MessageTypeJoinRoom         = "join-room"
	MessageTypeRoomFull         = "room-full"
	MessageTypeMemberJoined     = "member-joined"
	MessageTypeParticipantsList = "participants-list"
	MessageTypeMemberLeft       = "member-left"
	MessageTypeSessionOffer     = "session-offer"
	MessageTypeSessionAnswer    = "session-answer"
	MessageTypeICECandidate     = "ice-candidate"
)

// MemberPayload announces a member joining or leaving a room.
type MemberPayload struct {
	ConnectionID string `json:"connectionId"`
	Username     string `json:"username"`
}

// Participant is one entry of the pre-join snapshot.
type Participant struct {
	ConnectionID string `json:"connectionId"`
	Username     string `json:"username"`
}

// ParticipantsPayload is the join response: the connection id assigned to the
// new arrival plus everyone who was already in the room.
type ParticipantsPayload struct {
	ConnectionID string        `json:"connectionId"`
	Participants []Participant `json:"participants"`
}

// RoomFullPayload rejects a join.
type RoomFullPayload struct {
	Message string `json:"message"`
}

// SDPPayload carries a session description for session-offer and session-answer.
type SDPPayload struct {
	SDP string `json:"sdp"`
}

// CandidatePayload carries an ICE candidate. The candidate body is opaque to
// the server and decoded only by the receiving peer.
type CandidatePayload struct {
	Candidate json.RawMessage `json:"candidate"`
}

// NewMessage builds an envelope with an encoded payload. Payload types in this
// package marshal without error; a failure here is a programming bug.
func NewMessage(msgType string, payload any) *Message {
	msg := &Message{Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			panic("protocol: unmarshalable payload: " + err.Error())
		}
		msg.Payload = raw
	}
	return msg
}

// DecodePayload decodes the envelope payload into dst.
func (m *Message) DecodePayload(dst any) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, dst)
}
