package session

import (
	"sync"

	pion "github.com/pion/webrtc/v4"
)

// LinkState is the negotiation state of one peer link.
type LinkState int

const (
	StateIdle LinkState = iota
	StateNegotiating
	StateConnected
	StateClosed
)

func (s LinkState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNegotiating:
		return "negotiating"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// dataChannel is the slice of *pion.DataChannel the link needs. Narrowing it
// to an interface keeps broadcast logic testable without a live transport.
type dataChannel interface {
	Send(data []byte) error
	ReadyState() pion.DataChannelState
	Close() error
}

// PeerLink is one direct logical connection to a remote member, keyed by that
// member's connection id. It exists only while both sides are members of the
// same room. State moves Idle → Negotiating → Connected and terminally to
// Closed; a link that never reaches Connected is simply never used.
type PeerLink struct {
	ID       string
	Username string

	mu    sync.Mutex
	state LinkState
	pc    *pion.PeerConnection
	dc    dataChannel
}

func newPeerLink(id, username string, pc *pion.PeerConnection) *PeerLink {
	return &PeerLink{
		ID:       id,
		Username: username,
		state:    StateIdle,
		pc:       pc,
	}
}

// State returns the current negotiation state.
func (l *PeerLink) State() LinkState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// setState transitions the link unless it is already closed. Closed is
// terminal: channel-open callbacks racing a teardown must not resurrect it.
func (l *PeerLink) setState(state LinkState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateClosed {
		return
	}
	l.state = state
}

func (l *PeerLink) setChannel(dc dataChannel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dc = dc
}

// Send writes one frame to the link's data channel. A torn-down link reports
// ErrLinkClosed, one still negotiating ErrChannelNotOpen; broadcast skips
// both.
func (l *PeerLink) Send(data []byte) error {
	l.mu.Lock()
	dc := l.dc
	state := l.state
	l.mu.Unlock()

	if state == StateClosed {
		return ErrLinkClosed
	}
	if state != StateConnected || dc == nil || dc.ReadyState() != pion.DataChannelStateOpen {
		return ErrChannelNotOpen
	}
	return dc.Send(data)
}

// Close force-closes the data channel and the transport and marks the link
// Closed. Safe to call more than once.
func (l *PeerLink) Close() {
	l.mu.Lock()
	if l.state == StateClosed {
		l.mu.Unlock()
		return
	}
	l.state = StateClosed
	dc := l.dc
	pc := l.pc
	l.mu.Unlock()

	if dc != nil {
		dc.Close()
	}
	if pc != nil {
		pc.Close()
	}
}
