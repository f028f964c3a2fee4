// Package presence mirrors the server's view of room membership on the
// client. The mirror is seeded from the join snapshot and then follows
// member-joined/member-left events; there is no mid-session reconciliation,
// a missed event heals only on rejoin.
package presence

import (
	"fmt"
	"sort"
	"sync"

	"github.com/BioHazard786/Watchdrop/internal/protocol"
)

// Notice emits a locally-visible system line.
type Notice func(text string)

// Roster is the eventually-consistent participant list. Identity is keyed by
// connection id; display names are labels and may repeat.
type Roster struct {
	mu      sync.Mutex
	selfID  string
	name    string
	members map[string]string
	notice  Notice
}

// NewRoster creates a roster containing only the local user, pending a seed.
func NewRoster(username string, notice Notice) *Roster {
	return &Roster{
		name:    username,
		members: make(map[string]string),
		notice:  notice,
	}
}

// Seed initializes the roster from the join response.
func (r *Roster) Seed(payload *protocol.ParticipantsPayload) {
	r.mu.Lock()
	r.selfID = payload.ConnectionID
	r.members = make(map[string]string, len(payload.Participants)+1)
	r.members[payload.ConnectionID] = r.name
	for _, p := range payload.Participants {
		r.members[p.ConnectionID] = p.Username
	}
	r.mu.Unlock()
}

// Add records a member-joined event.
func (r *Roster) Add(member *protocol.MemberPayload) {
	r.mu.Lock()
	r.members[member.ConnectionID] = member.Username
	r.mu.Unlock()

	if r.notice != nil {
		r.notice(fmt.Sprintf("%s joined the party", member.Username))
	}
}

// Remove records a member-left event.
func (r *Roster) Remove(member *protocol.MemberPayload) {
	r.mu.Lock()
	delete(r.members, member.ConnectionID)
	r.mu.Unlock()

	if r.notice != nil {
		r.notice(fmt.Sprintf("%s left the party", member.Username))
	}
}

// SelfID returns the connection id the server assigned to us.
func (r *Roster) SelfID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selfID
}

// Names returns the display names of everyone present, sorted.
func (r *Roster) Names() []string {
	r.mu.Lock()
	names := make([]string, 0, len(r.members))
	for _, name := range r.members {
		names = append(names, name)
	}
	r.mu.Unlock()

	sort.Strings(names)
	return names
}

// Count returns the number of known participants, including the local user.
func (r *Roster) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}
