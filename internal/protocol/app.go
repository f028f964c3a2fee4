package protocol

import (
	"encoding/json"
	"time"
)

// Application message types carried over peer data channels. These never touch
// the rendezvous server.
const (
	AppTypeChat       = "chat"
	AppTypeReaction   = "reaction"
	AppTypeVideoLoad  = "video-load"
	AppTypeVideoPlay  = "video-play"
	AppTypeVideoPause = "video-pause"
	AppTypeVideoSeek  = "video-seek"
)

// AppMessage is the tagged union sent over peer data channels, JSON-encoded so
// browser peers can speak the same protocol. Unused fields are omitted.
//
// chat/reaction use Username, Content, Timestamp. video-load uses VideoID and
// Username. video-play/pause/seek use CurrentTime and Username.
type AppMessage struct {
	Type        string  `json:"type"`
	Username    string  `json:"username,omitempty"`
	Content     string  `json:"content,omitempty"`
	VideoID     string  `json:"videoId,omitempty"`
	CurrentTime float64 `json:"currentTime,omitempty"`
	Timestamp   int64   `json:"timestamp,omitempty"`
}

// NewChat builds a chat message stamped with the current time.
func NewChat(username, content string) *AppMessage {
	return &AppMessage{
		Type:      AppTypeChat,
		Username:  username,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewReaction builds an emoji reaction stamped with the current time.
func NewReaction(username, emoji string) *AppMessage {
	return &AppMessage{
		Type:      AppTypeReaction,
		Username:  username,
		Content:   emoji,
		Timestamp: time.Now().UnixMilli(),
	}
}

// IsSync reports whether the message drives playback state on the receiver.
func (m *AppMessage) IsSync() bool {
	switch m.Type {
	case AppTypeVideoPlay, AppTypeVideoPause, AppTypeVideoSeek:
		return true
	}
	return false
}

// Encode serializes the message for a data channel send.
func (m *AppMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeAppMessage parses a data channel frame.
func DecodeAppMessage(data []byte) (*AppMessage, error) {
	var msg AppMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
