// Package session maintains the peer mesh: one PeerLink per other room
// member, negotiated over the rendezvous relay and carrying application
// traffic on a data channel once open.
//
// Negotiation follows the symmetric rule from the rendezvous protocol:
// whichever side learns of the other via member-joined creates the data
// channel and offers; the other side answers. There is no retry of a failed
// negotiation: a link that never reaches Connected is skipped by broadcast
// and heals only when that peer rejoins.
package session

import (
	"encoding/json"
	"log/slog"
	"sync"

	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/Watchdrop/internal/config"
	"github.com/BioHazard786/Watchdrop/internal/protocol"
)

// SignalSender relays negotiation messages to a specific member through the
// rendezvous server. *rendezvous.Client implements it.
type SignalSender interface {
	SendOffer(target, sdp string)
	SendAnswer(target, sdp string)
	SendCandidate(target string, candidate json.RawMessage)
}

// MessageHandler receives every application message read off any peer link.
// Called from transport goroutines; implementations must be safe for that.
type MessageHandler func(from string, msg *protocol.AppMessage)

// TrackHandler receives remote media tracks (voice chat audio).
type TrackHandler func(peerID, username string, track *pion.TrackRemote)

// Manager owns all PeerLinks of the local client. Nothing here is shared with
// other components; the party session drives it from its event loop.
type Manager struct {
	cfg     *config.Config
	signals SignalSender
	logger  *slog.Logger

	mu         sync.Mutex
	links      map[string]*PeerLink
	voiceTrack pion.TrackLocal

	onMessage MessageHandler
	onTrack   TrackHandler
}

// NewManager creates an empty mesh.
func NewManager(cfg *config.Config, signals SignalSender, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:     cfg,
		signals: signals,
		logger:  logger,
		links:   make(map[string]*PeerLink),
	}
}

// OnMessage sets the handler for inbound application messages. In a full mesh
// every message arrives exactly once per peer, so no deduplication happens.
func (m *Manager) OnMessage(handler MessageHandler) {
	m.onMessage = handler
}

// OnTrack sets the handler for inbound media tracks.
func (m *Manager) OnTrack(handler TrackHandler) {
	m.onTrack = handler
}

// HandleMemberJoined starts negotiation with a newly announced member. We are
// the offering side: create the link and its data channel, then offer.
func (m *Manager) HandleMemberJoined(id, username string) error {
	link, err := m.createLink(id, username)
	if err != nil {
		return err
	}

	dc, err := createDataChannel(link.pc)
	if err != nil {
		m.dropLink(id)
		return err
	}
	m.bindDataChannel(link, dc)

	link.setState(StateNegotiating)

	offer, err := createOffer(link.pc)
	if err != nil {
		m.dropLink(id)
		return NewPeerError("offer", id, err)
	}

	m.signals.SendOffer(id, offer.SDP)
	m.logger.Debug("sent offer", "peer", id, "username", username)
	return nil
}

// HandleOffer answers a remote offer. A fresh offer creates the link (we are
// the answering side and wait for the remote data channel); an offer on an
// existing link is a renegotiation, e.g. a peer starting voice chat.
func (m *Manager) HandleOffer(from, username, sdp string) error {
	m.mu.Lock()
	link, ok := m.links[from]
	m.mu.Unlock()

	if !ok {
		var err error
		link, err = m.createLink(from, username)
		if err != nil {
			return err
		}

		link.pc.OnDataChannel(func(dc *pion.DataChannel) {
			if dc.Label() == DataChannelLabel {
				m.bindDataChannel(link, dc)
			}
		})
		link.setState(StateNegotiating)
	}

	answer, err := createAnswer(link.pc, pion.SessionDescription{
		Type: pion.SDPTypeOffer,
		SDP:  sdp,
	})
	if err != nil {
		return NewPeerError("answer", from, err)
	}

	m.signals.SendAnswer(from, answer.SDP)
	m.logger.Debug("sent answer", "peer", from, "username", username)
	return nil
}

// HandleAnswer applies a remote answer to the matching outstanding offer. An
// answer for an unknown link is stale and dropped.
func (m *Manager) HandleAnswer(from, sdp string) error {
	m.mu.Lock()
	link, ok := m.links[from]
	m.mu.Unlock()
	if !ok {
		m.logger.Debug("dropping stale answer", "peer", from)
		return nil
	}
	return applyAnswer(link.pc, sdp)
}

// HandleCandidate attaches an ICE candidate to its link, or drops it.
// Candidates race connection setup and teardown; a miss is never fatal.
func (m *Manager) HandleCandidate(from string, candidate json.RawMessage) error {
	m.mu.Lock()
	link, ok := m.links[from]
	m.mu.Unlock()
	if !ok {
		m.logger.Debug("dropping candidate for unknown peer", "peer", from)
		return nil
	}
	return addCandidate(link.pc, candidate)
}

// HandleMemberLeft force-closes and discards the matching link.
func (m *Manager) HandleMemberLeft(id string) {
	m.dropLink(id)
}

// Broadcast sends one application message over every link whose data channel
// is open. Links still negotiating or already closed are skipped silently:
// best-effort, no queueing, no retry.
func (m *Manager) Broadcast(msg *protocol.AppMessage) error {
	data, err := msg.Encode()
	if err != nil {
		return NewError("encode message", err)
	}

	m.mu.Lock()
	links := make([]*PeerLink, 0, len(m.links))
	for _, link := range m.links {
		links = append(links, link)
	}
	m.mu.Unlock()

	for _, link := range links {
		if err := link.Send(data); err != nil {
			if err != ErrChannelNotOpen && err != ErrLinkClosed {
				m.logger.Debug("broadcast send failed", "peer", link.ID, "error", err)
			}
		}
	}
	return nil
}

// EnableVoice adds the local audio track to every link and renegotiates.
// Links created afterwards pick the track up at creation time.
func (m *Manager) EnableVoice(track pion.TrackLocal) error {
	m.mu.Lock()
	m.voiceTrack = track
	links := make([]*PeerLink, 0, len(m.links))
	for _, link := range m.links {
		links = append(links, link)
	}
	m.mu.Unlock()

	for _, link := range links {
		if link.State() == StateClosed {
			continue
		}
		if _, err := link.pc.AddTrack(track); err != nil {
			m.logger.Warn("failed to add voice track", "peer", link.ID, "error", err)
			continue
		}

		offer, err := createOffer(link.pc)
		if err != nil {
			m.logger.Warn("voice renegotiation failed", "peer", link.ID, "error", err)
			continue
		}
		m.signals.SendOffer(link.ID, offer.SDP)
	}
	return nil
}

// DisableVoice stops offering the local track to new links. Existing senders
// keep their (now silent) track; the source is stopped by the caller.
func (m *Manager) DisableVoice() {
	m.mu.Lock()
	m.voiceTrack = nil
	m.mu.Unlock()
}

// ConnectedPeers returns the ids of links that are usable for broadcast.
func (m *Manager) ConnectedPeers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	peers := make([]string, 0, len(m.links))
	for id, link := range m.links {
		if link.State() == StateConnected {
			peers = append(peers, id)
		}
	}
	return peers
}

// Close tears down every link.
func (m *Manager) Close() {
	m.mu.Lock()
	links := m.links
	m.links = make(map[string]*PeerLink)
	m.mu.Unlock()

	for _, link := range links {
		link.Close()
	}
}

func (m *Manager) createLink(id, username string) (*PeerLink, error) {
	pc, err := newPeerConnection(m.cfg)
	if err != nil {
		return nil, NewPeerError("create link", id, err)
	}

	link := newPeerLink(id, username, pc)

	m.mu.Lock()
	if existing, ok := m.links[id]; ok {
		// A link for this peer already exists; keep it and discard the new
		// transport. Can only happen on a duplicate member-joined.
		m.mu.Unlock()
		pc.Close()
		return existing, nil
	}
	m.links[id] = link
	voiceTrack := m.voiceTrack
	m.mu.Unlock()

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		candidate, err := json.Marshal(c.ToJSON())
		if err != nil {
			return
		}
		m.signals.SendCandidate(id, candidate)
	})

	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		switch state {
		case pion.PeerConnectionStateFailed, pion.PeerConnectionStateClosed:
			m.logger.Debug("peer transport down", "peer", id, "state", state.String())
			link.Close()
		}
	})

	pc.OnTrack(func(track *pion.TrackRemote, _ *pion.RTPReceiver) {
		m.logger.Debug("remote track", "peer", id, "kind", track.Kind().String())
		if m.onTrack != nil {
			m.onTrack(id, username, track)
		}
	})

	if voiceTrack != nil {
		if _, err := pc.AddTrack(voiceTrack); err != nil {
			m.logger.Warn("failed to add voice track to new link", "peer", id, "error", err)
		}
	}

	return link, nil
}

func (m *Manager) bindDataChannel(link *PeerLink, dc *pion.DataChannel) {
	link.setChannel(dc)

	dc.OnOpen(func() {
		link.setState(StateConnected)
		m.logger.Debug("data channel open", "peer", link.ID, "username", link.Username)
	})

	dc.OnClose(func() {
		m.logger.Debug("data channel closed", "peer", link.ID)
	})

	dc.OnMessage(func(frame pion.DataChannelMessage) {
		msg, err := protocol.DecodeAppMessage(frame.Data)
		if err != nil {
			m.logger.Warn("bad application message", "peer", link.ID, "error", err)
			return
		}
		if m.onMessage != nil {
			m.onMessage(link.ID, msg)
		}
	})
}

func (m *Manager) dropLink(id string) {
	m.mu.Lock()
	link, ok := m.links[id]
	if ok {
		delete(m.links, id)
	}
	m.mu.Unlock()

	if ok {
		link.Close()
		m.logger.Debug("link discarded", "peer", id)
	}
}
