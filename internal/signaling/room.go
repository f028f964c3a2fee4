package signaling

import (
	"crypto/rand"
	"log"
	"math/big"
	"strings"

	"github.com/BioHazard786/Watchdrop/internal/protocol"
)

// Room holds the members currently joined under one room id. Rooms are created
// on first join and deleted when the last member leaves. All access happens on
// the hub goroutine, so there is no locking here.
type Room struct {
	ID      string
	Members map[string]*Client
}

func newRoom(id string) *Room {
	return &Room{
		ID:      id,
		Members: make(map[string]*Client),
	}
}

// Participants returns a snapshot of the current members.
func (r *Room) Participants() []protocol.Participant {
	participants := make([]protocol.Participant, 0, len(r.Members))
	for _, member := range r.Members {
		participants = append(participants, protocol.Participant{
			ConnectionID: member.ID,
			Username:     member.Username,
		})
	}
	return participants
}

// NotifyOthers sends msg to every member except the one with the given id.
func (r *Room) NotifyOthers(exceptID string, msg *protocol.Message) {
	for id, member := range r.Members {
		if id == exceptID {
			continue
		}
		member.enqueue(msg)
	}
}

// CanonicalRoomID normalizes a user-typed room id. Room ids are
// case-insensitive; upper case is the canonical form.
func CanonicalRoomID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// roomCodeAlphabet omits characters that are easy to misread over a call
// (0/O, 1/I/L).
const roomCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const roomCodeLength = 6

// GenerateRoomCode returns a short, human-typeable room code such as "AB12CD".
func GenerateRoomCode() string {
	code := make([]byte, roomCodeLength)
	for i := range code {
		code[i] = roomCodeAlphabet[randomIndex(len(roomCodeAlphabet))]
	}
	return string(code)
}

// randomIndex returns a cryptographically secure random index below max.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		log.Panic("failed to generate random index:", err)
	}
	return int(n.Int64())
}
