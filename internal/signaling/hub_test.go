package signaling

import (
	"strings"
	"testing"

	"github.com/BioHazard786/Watchdrop/internal/protocol"
)

func newTestHub(capacity int) *Hub {
	return NewHub(capacity, nil)
}

func newTestClient(id string) *Client {
	return &Client{
		ID:   id,
		Send: make(chan *protocol.Message, 16),
	}
}

func join(h *Hub, c *Client, roomID, username string) {
	h.handleJoin(c, &protocol.Message{
		Type:     protocol.MessageTypeJoinRoom,
		RoomID:   roomID,
		Username: username,
	})
}

func recvMessage(t *testing.T, c *Client) *protocol.Message {
	t.Helper()
	select {
	case msg := <-c.Send:
		return msg
	default:
		t.Fatalf("client %s has no pending message", c.ID)
		return nil
	}
}

func assertNoMessage(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.Send:
		t.Fatalf("client %s has unexpected message %s", c.ID, msg.Type)
	default:
	}
}

func TestJoinReturnsPreJoinSnapshot(t *testing.T) {
	h := newTestHub(6)

	ava := newTestClient("conn-ava")
	join(h, ava, "AB12CD", "Ava")

	msg := recvMessage(t, ava)
	if msg.Type != protocol.MessageTypeParticipantsList {
		t.Fatalf("expected participants-list, got %s", msg.Type)
	}
	var joined protocol.ParticipantsPayload
	if err := msg.DecodePayload(&joined); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if joined.ConnectionID != "conn-ava" {
		t.Errorf("expected assigned connection id conn-ava, got %s", joined.ConnectionID)
	}
	if len(joined.Participants) != 0 {
		t.Errorf("first member should see an empty snapshot, got %d entries", len(joined.Participants))
	}

	ben := newTestClient("conn-ben")
	join(h, ben, "AB12CD", "Ben")

	msg = recvMessage(t, ben)
	if err := msg.DecodePayload(&joined); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(joined.Participants) != 1 || joined.Participants[0].Username != "Ava" {
		t.Errorf("Ben's snapshot should contain exactly Ava, got %+v", joined.Participants)
	}

	msg = recvMessage(t, ava)
	if msg.Type != protocol.MessageTypeMemberJoined {
		t.Fatalf("Ava expected member-joined, got %s", msg.Type)
	}
	var member protocol.MemberPayload
	if err := msg.DecodePayload(&member); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if member.Username != "Ben" || member.ConnectionID != "conn-ben" {
		t.Errorf("unexpected member-joined payload %+v", member)
	}
}

func TestRoomCapacity(t *testing.T) {
	h := newTestHub(2)

	first := newTestClient("c1")
	second := newTestClient("c2")
	join(h, first, "ROOM42", "one")
	join(h, second, "ROOM42", "two")

	third := newTestClient("c3")
	join(h, third, "ROOM42", "three")

	msg := recvMessage(t, third)
	if msg.Type != protocol.MessageTypeRoomFull {
		t.Fatalf("expected room-full, got %s", msg.Type)
	}
	if third.RoomID != "" {
		t.Error("rejected client must not be a room member")
	}
	if got := len(h.rooms["ROOM42"].Members); got != 2 {
		t.Errorf("room membership mutated by rejected join: %d members", got)
	}

	// Capacity frees up when a member leaves.
	h.disconnect(first)
	join(h, third, "ROOM42", "three")
	msg = recvMessage(t, third)
	if msg.Type != protocol.MessageTypeParticipantsList {
		t.Fatalf("expected successful rejoin after a member left, got %s", msg.Type)
	}
}

func TestMemberLeftStaysInRoom(t *testing.T) {
	h := newTestHub(6)

	ava := newTestClient("a")
	ben := newTestClient("b")
	cleo := newTestClient("c")
	join(h, ava, "ROOMA1", "Ava")
	join(h, ben, "ROOMA1", "Ben")
	join(h, cleo, "ROOMB2", "Cleo")

	// drain join traffic
	for _, c := range []*Client{ava, ben, cleo} {
		for len(c.Send) > 0 {
			<-c.Send
		}
	}

	h.disconnect(ben)

	msg := recvMessage(t, ava)
	if msg.Type != protocol.MessageTypeMemberLeft {
		t.Fatalf("expected member-left, got %s", msg.Type)
	}
	var member protocol.MemberPayload
	if err := msg.DecodePayload(&member); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if member.Username != "Ben" {
		t.Errorf("expected Ben to leave, got %s", member.Username)
	}

	assertNoMessage(t, cleo)
}

func TestEmptyRoomDeleted(t *testing.T) {
	h := newTestHub(6)

	solo := newTestClient("solo")
	join(h, solo, "GHOST1", "solo")
	h.disconnect(solo)

	if _, ok := h.rooms["GHOST1"]; ok {
		t.Fatal("empty room should be deleted")
	}

	// A fresh join under the same id gets a brand new room.
	again := newTestClient("again")
	join(h, again, "GHOST1", "again")
	msg := recvMessage(t, again)
	var joined protocol.ParticipantsPayload
	if err := msg.DecodePayload(&joined); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(joined.Participants) != 0 {
		t.Errorf("recreated room should be empty, snapshot has %d entries", len(joined.Participants))
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	h := newTestHub(6)

	c := newTestClient("x")
	h.disconnect(c) // never joined

	join(h, c, "ROOM99", "x")
	h.disconnect(c)
	h.disconnect(c) // already removed
}

func TestRelayStampsSender(t *testing.T) {
	h := newTestHub(6)

	ava := newTestClient("a")
	ben := newTestClient("b")
	join(h, ava, "RELAY1", "Ava")
	join(h, ben, "RELAY1", "Ben")
	for len(ava.Send) > 0 {
		<-ava.Send
	}
	for len(ben.Send) > 0 {
		<-ben.Send
	}

	offer := protocol.NewMessage(protocol.MessageTypeSessionOffer, protocol.SDPPayload{SDP: "v=0 fake"})
	offer.Target = "b"
	h.relay(ava, offer)

	msg := recvMessage(t, ben)
	if msg.Type != protocol.MessageTypeSessionOffer {
		t.Fatalf("expected session-offer, got %s", msg.Type)
	}
	if msg.From != "a" || msg.Username != "Ava" {
		t.Errorf("relay must stamp sender identity, got from=%s username=%s", msg.From, msg.Username)
	}
	var sdp protocol.SDPPayload
	if err := msg.DecodePayload(&sdp); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if sdp.SDP != "v=0 fake" {
		t.Errorf("payload must be forwarded verbatim, got %q", sdp.SDP)
	}
}

func TestRelayMissingTargetIsNoop(t *testing.T) {
	h := newTestHub(6)

	ava := newTestClient("a")
	join(h, ava, "RELAY2", "Ava")
	for len(ava.Send) > 0 {
		<-ava.Send
	}

	candidate := protocol.NewMessage(protocol.MessageTypeICECandidate, protocol.CandidatePayload{})
	candidate.Target = "gone"
	h.relay(ava, candidate)

	assertNoMessage(t, ava)
}

func TestRoomIDIsCaseInsensitive(t *testing.T) {
	h := newTestHub(6)

	ava := newTestClient("a")
	ben := newTestClient("b")
	join(h, ava, "ab12cd", "Ava")
	join(h, ben, "AB12CD", "Ben")

	if len(h.rooms) != 1 {
		t.Fatalf("expected one canonical room, got %d", len(h.rooms))
	}
	if _, ok := h.rooms["AB12CD"]; !ok {
		t.Error("canonical room id should be upper case")
	}
}

func TestMalformedJoinIgnored(t *testing.T) {
	h := newTestHub(6)

	c := newTestClient("bad")
	join(h, c, "AB12CD", "") // missing username
	assertNoMessage(t, c)
	if len(h.rooms) != 0 {
		t.Error("malformed join must not create a room")
	}

	join(h, c, "no spaces!", "name")
	assertNoMessage(t, c)
}

// The hub drops malformed joins without any reply, so the client must catch
// bad input with the same rules before it ever dials.
func TestValidateJoinMatchesHubRules(t *testing.T) {
	bad := []struct {
		roomID   string
		username string
	}{
		{"AB1", "ava"},                     // room code too short
		{"no spaces!", "ava"},              // punctuation
		{"ABCDEFGHJKMNPQRSTU", "ava"},      // room code too long
		{"AB12CD", ""},                     // missing name
		{"AB12CD", strings.Repeat("x", 33)}, // name too long
	}
	for _, tt := range bad {
		if err := ValidateJoin(tt.roomID, tt.username); err == nil {
			t.Errorf("ValidateJoin(%q, %q) should fail", tt.roomID, tt.username)
		}

		// And the hub itself stays silent on the same input.
		h := newTestHub(6)
		c := newTestClient("probe")
		join(h, c, tt.roomID, tt.username)
		assertNoMessage(t, c)
	}

	if err := ValidateJoin("ab12cd", "Ava"); err != nil {
		t.Errorf("lower-case room code should canonicalize and pass, got %v", err)
	}
	if err := ValidateJoin(GenerateRoomCode(), "Ava"); err != nil {
		t.Errorf("generated room codes must validate, got %v", err)
	}
}

func TestGenerateRoomCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code := GenerateRoomCode()
		if len(code) != roomCodeLength {
			t.Fatalf("unexpected code length %d", len(code))
		}
		for _, r := range code {
			if !strings.ContainsRune(roomCodeAlphabet, r) {
				t.Fatalf("code %s contains %q outside alphabet", code, r)
			}
		}
		seen[code] = true
	}
	if len(seen) < 40 {
		t.Errorf("room codes look non-random: %d distinct of 50", len(seen))
	}
}
