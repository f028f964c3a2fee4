// Package playback keeps every participant's video widget on the same content
// and position. Synchronization is advisory: each peer drives its own widget,
// there is no single source of truth, and small drift between peers is
// expected until the next user action.
package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/BioHazard786/Watchdrop/internal/protocol"
)

// DefaultSettleWindow is how long the echo guard stays armed after applying a
// remote playback change. The widget's own state-change events fired by that
// apply land inside this window and are not re-broadcast.
const DefaultSettleWindow = 500 * time.Millisecond

// Broadcaster sends an application message to every connected peer.
// *session.Manager implements it.
type Broadcaster interface {
	Broadcast(msg *protocol.AppMessage) error
}

// Notice emits a locally-visible system line, e.g. "Ava loaded a new video".
type Notice func(text string)

// Synchronizer translates local widget events into sync messages and remote
// sync messages into widget calls. It owns the single echo guard; nothing else
// in the client reasons about suppression.
type Synchronizer struct {
	player   Player
	bc       Broadcaster
	username string
	settle   time.Duration
	notice   Notice

	mu      sync.Mutex
	guarded bool
	timer   *time.Timer
	videoID string
}

// NewSynchronizer wires a synchronizer to the local player and the broadcast
// channel. notice may be nil.
func NewSynchronizer(player Player, bc Broadcaster, username string, notice Notice) *Synchronizer {
	return &Synchronizer{
		player:   player,
		bc:       bc,
		username: username,
		settle:   DefaultSettleWindow,
		notice:   notice,
	}
}

// SetSettleWindow overrides the guard window. Zero or negative values are
// ignored.
func (s *Synchronizer) SetSettleWindow(d time.Duration) {
	if d > 0 {
		s.settle = d
	}
}

// HandlePlayerState is the widget's state-change callback. State changes that
// were caused by an incoming sync message fall inside the guard window and are
// swallowed; everything else is a genuine local action and broadcasts.
func (s *Synchronizer) HandlePlayerState(state PlayerState) {
	if s.isGuarded() {
		return
	}

	msgType := protocol.AppTypeVideoPause
	if state == StatePlaying {
		msgType = protocol.AppTypeVideoPlay
	}
	s.bc.Broadcast(&protocol.AppMessage{
		Type:        msgType,
		CurrentTime: s.player.CurrentTime(),
		Username:    s.username,
	})
}

// Seek jumps the local widget and tells everyone else. A seek issued while
// the guard is armed is part of applying a remote change and stays local.
func (s *Synchronizer) Seek(seconds float64) {
	s.player.SeekTo(seconds)
	if s.isGuarded() {
		return
	}
	s.bc.Broadcast(&protocol.AppMessage{
		Type:        protocol.AppTypeVideoSeek,
		CurrentTime: seconds,
		Username:    s.username,
	})
}

// LoadVideo swaps the active video and announces it. Loading is not a state
// that echoes, so no guard is involved.
func (s *Synchronizer) LoadVideo(videoID string) {
	s.mu.Lock()
	s.videoID = videoID
	s.mu.Unlock()

	s.bc.Broadcast(&protocol.AppMessage{
		Type:     protocol.AppTypeVideoLoad,
		VideoID:  videoID,
		Username: s.username,
	})
}

// Apply executes a remote sync message against the local widget. Playback
// changes always apply, re-seeking to an absolute position is harmless, but
// the guard is armed so the resulting widget events do not echo back out.
func (s *Synchronizer) Apply(msg *protocol.AppMessage) {
	switch msg.Type {
	case protocol.AppTypeVideoLoad:
		s.mu.Lock()
		s.videoID = msg.VideoID
		s.mu.Unlock()
		if s.notice != nil {
			s.notice(fmt.Sprintf("%s loaded a new video (%s)", msg.Username, msg.VideoID))
		}

	case protocol.AppTypeVideoPlay:
		s.armGuard()
		s.player.SeekTo(msg.CurrentTime)
		s.player.Play()

	case protocol.AppTypeVideoPause:
		s.armGuard()
		s.player.SeekTo(msg.CurrentTime)
		s.player.Pause()

	case protocol.AppTypeVideoSeek:
		s.armGuard()
		s.player.SeekTo(msg.CurrentTime)
	}
}

// VideoID returns the active video identifier.
func (s *Synchronizer) VideoID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videoID
}

// Close cancels a pending guard reset.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.guarded = false
}

// armGuard sets the guard and schedules its reset. Arming while already armed
// is redundant and ignored; the existing window keeps running.
func (s *Synchronizer) armGuard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.guarded {
		return
	}
	s.guarded = true
	s.timer = time.AfterFunc(s.settle, func() {
		s.mu.Lock()
		s.guarded = false
		s.timer = nil
		s.mu.Unlock()
	})
}

func (s *Synchronizer) isGuarded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guarded
}
