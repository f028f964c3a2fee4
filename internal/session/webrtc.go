package session

import (
	"encoding/json"

	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/Watchdrop/internal/config"
)

// DataChannelLabel names the application data channel on every peer link.
const DataChannelLabel = "watchdrop"

func newPeerConnection(cfg *config.Config) (*pion.PeerConnection, error) {
	iceServers := []pion.ICEServer{{URLs: cfg.GetSTUNServers()}}

	turnServers := cfg.GetTURNServers()
	if turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	pc, err := pion.NewPeerConnection(pion.Configuration{
		ICEServers: iceServers,
	})
	if err != nil {
		return nil, NewError("create peer connection", err)
	}
	return pc, nil
}

func createDataChannel(pc *pion.PeerConnection) (*pion.DataChannel, error) {
	ordered := true

	dc, err := pc.CreateDataChannel(DataChannelLabel, &pion.DataChannelInit{
		Ordered: &ordered,
	})
	if err != nil {
		return nil, NewError("create data channel", err)
	}
	return dc, nil
}

func createOffer(pc *pion.PeerConnection) (*pion.SessionDescription, error) {
	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return nil, NewError("create offer", err)
	}

	if err = pc.SetLocalDescription(offer); err != nil {
		return nil, NewError("set local description", err)
	}

	return pc.LocalDescription(), nil
}

func createAnswer(pc *pion.PeerConnection, offer pion.SessionDescription) (*pion.SessionDescription, error) {
	if err := pc.SetRemoteDescription(offer); err != nil {
		return nil, NewError("set remote description", err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return nil, NewError("create answer", err)
	}

	if err = pc.SetLocalDescription(answer); err != nil {
		return nil, NewError("set local description", err)
	}

	return pc.LocalDescription(), nil
}

func applyAnswer(pc *pion.PeerConnection, sdp string) error {
	desc := pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: sdp}
	if err := pc.SetRemoteDescription(desc); err != nil {
		return NewError("apply answer", err)
	}
	return nil
}

func addCandidate(pc *pion.PeerConnection, candidate json.RawMessage) error {
	var ice pion.ICECandidateInit
	if err := json.Unmarshal(candidate, &ice); err != nil {
		return NewError("parse ICE candidate", err)
	}
	if err := pc.AddICECandidate(ice); err != nil {
		return NewError("add ICE candidate", err)
	}
	return nil
}
