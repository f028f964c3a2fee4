package server

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BioHazard786/Watchdrop/internal/protocol"
	"github.com/BioHazard786/Watchdrop/internal/signaling"
)

const readTimeout = 2 * time.Second

func startServer(t *testing.T, capacity int) *httptest.Server {
	t.Helper()
	hub := signaling.NewHub(capacity, nil)
	go hub.Run()

	srv := httptest.NewServer(NewRouter(hub))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func joinRoom(t *testing.T, conn *websocket.Conn, roomID, username string) {
	t.Helper()
	err := conn.WriteJSON(&protocol.Message{
		Type:     protocol.MessageTypeJoinRoom,
		RoomID:   roomID,
		Username: username,
	})
	if err != nil {
		t.Fatalf("send join-room: %v", err)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) *protocol.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	var msg protocol.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read message: %v", err)
	}
	return &msg
}

func TestHealthEndpoint(t *testing.T) {
	srv := startServer(t, 6)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get /health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "healthy") {
		t.Errorf("unexpected body %q", body)
	}
}

// TestTwoPeersMeet walks the full rendezvous flow: Ava opens the room, Ben
// joins, they exchange an offer, Ben drops and Ava is told.
func TestTwoPeersMeet(t *testing.T) {
	srv := startServer(t, 6)

	ava := dial(t, srv)
	joinRoom(t, ava, "AB12CD", "Ava")

	msg := readMessage(t, ava)
	if msg.Type != protocol.MessageTypeParticipantsList {
		t.Fatalf("Ava expected participants-list, got %s", msg.Type)
	}
	var avaJoined protocol.ParticipantsPayload
	if err := msg.DecodePayload(&avaJoined); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(avaJoined.Participants) != 0 {
		t.Fatalf("Ava opened the room, snapshot should be empty: %+v", avaJoined.Participants)
	}

	ben := dial(t, srv)
	joinRoom(t, ben, "AB12CD", "Ben")

	msg = readMessage(t, ben)
	var benJoined protocol.ParticipantsPayload
	if err := msg.DecodePayload(&benJoined); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(benJoined.Participants) != 1 || benJoined.Participants[0].Username != "Ava" {
		t.Fatalf("Ben's snapshot should hold exactly Ava: %+v", benJoined.Participants)
	}

	msg = readMessage(t, ava)
	if msg.Type != protocol.MessageTypeMemberJoined {
		t.Fatalf("Ava expected member-joined, got %s", msg.Type)
	}
	var member protocol.MemberPayload
	if err := msg.DecodePayload(&member); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if member.Username != "Ben" || member.ConnectionID != benJoined.ConnectionID {
		t.Fatalf("member-joined should announce Ben's assigned id: %+v", member)
	}

	// Ava offers to Ben through the relay.
	offer := protocol.NewMessage(protocol.MessageTypeSessionOffer, protocol.SDPPayload{SDP: "v=0 test-offer"})
	offer.Target = benJoined.ConnectionID
	if err := ava.WriteJSON(offer); err != nil {
		t.Fatalf("send offer: %v", err)
	}

	msg = readMessage(t, ben)
	if msg.Type != protocol.MessageTypeSessionOffer {
		t.Fatalf("Ben expected session-offer, got %s", msg.Type)
	}
	if msg.From != avaJoined.ConnectionID || msg.Username != "Ava" {
		t.Fatalf("offer should be stamped with Ava's identity: from=%s username=%s", msg.From, msg.Username)
	}
	var sdp protocol.SDPPayload
	if err := msg.DecodePayload(&sdp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sdp.SDP != "v=0 test-offer" {
		t.Fatalf("offer body altered in relay: %q", sdp.SDP)
	}

	// Ben drops; Ava hears about it.
	ben.Close()
	msg = readMessage(t, ava)
	if msg.Type != protocol.MessageTypeMemberLeft {
		t.Fatalf("Ava expected member-left, got %s", msg.Type)
	}
	if err := msg.DecodePayload(&member); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if member.Username != "Ben" {
		t.Fatalf("member-left should name Ben: %+v", member)
	}
}

// TestSeventhUserRejected fills a room to its capacity of six and checks that
// the next join bounces without disturbing the members.
func TestSeventhUserRejected(t *testing.T) {
	srv := startServer(t, 6)

	members := make([]*websocket.Conn, 6)
	for i := range members {
		members[i] = dial(t, srv)
		joinRoom(t, members[i], "FULLRM", fmt.Sprintf("user%d", i+1))

		msg := readMessage(t, members[i])
		if msg.Type != protocol.MessageTypeParticipantsList {
			t.Fatalf("member %d expected participants-list, got %s", i+1, msg.Type)
		}
	}

	seventh := dial(t, srv)
	joinRoom(t, seventh, "FULLRM", "user7")

	msg := readMessage(t, seventh)
	if msg.Type != protocol.MessageTypeRoomFull {
		t.Fatalf("seventh user expected room-full, got %s", msg.Type)
	}
	var rejection protocol.RoomFullPayload
	if err := msg.DecodePayload(&rejection); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(rejection.Message, "full") {
		t.Errorf("rejection should say the room is full: %q", rejection.Message)
	}

	// One member leaves, the rejected user can come back in. The disconnect
	// races our retry through the hub, so keep retrying briefly.
	members[0].Close()

	var joined protocol.ParticipantsPayload
	admitted := false
	for attempt := 0; attempt < 20 && !admitted; attempt++ {
		joinRoom(t, seventh, "FULLRM", "user7")
		msg = readMessage(t, seventh)
		switch msg.Type {
		case protocol.MessageTypeParticipantsList:
			admitted = true
		case protocol.MessageTypeRoomFull:
			time.Sleep(50 * time.Millisecond)
		default:
			t.Fatalf("unexpected message on retry: %s", msg.Type)
		}
	}
	if !admitted {
		t.Fatal("rejected user was never admitted after a slot opened")
	}
	if err := msg.DecodePayload(&joined); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(joined.Participants) != 5 {
		t.Errorf("retry snapshot should hold the 5 remaining members, got %d", len(joined.Participants))
	}
}
