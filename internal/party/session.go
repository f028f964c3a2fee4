// Package party assembles one client's watch-party session: the rendezvous
// connection, the peer mesh, playback sync and the participant roster, with a
// single event loop driving all state transitions.
package party

import (
	"fmt"
	"log/slog"

	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/Watchdrop/internal/config"
	"github.com/BioHazard786/Watchdrop/internal/media"
	"github.com/BioHazard786/Watchdrop/internal/playback"
	"github.com/BioHazard786/Watchdrop/internal/presence"
	"github.com/BioHazard786/Watchdrop/internal/protocol"
	"github.com/BioHazard786/Watchdrop/internal/rendezvous"
	"github.com/BioHazard786/Watchdrop/internal/session"
)

// LineKind classifies output destined for the local display.
type LineKind int

const (
	LineChat LineKind = iota
	LineReaction
	LineSystem
	LineError
)

// Line is one displayable event.
type Line struct {
	Kind     LineKind
	Username string
	Text     string
}

// Session is a live membership in one room.
type Session struct {
	cfg      *config.Config
	roomID   string
	username string

	client  *rendezvous.Client
	handler *rendezvous.Handler
	mesh    *session.Manager
	player  *playback.ClockPlayer
	sync    *playback.Synchronizer
	roster  *presence.Roster

	inbound chan *protocol.AppMessage
	lines   chan Line
	done    chan struct{}

	voice      media.Source
	voiceMuted bool
}

// New connects to the rendezvous server and wires the client components
// together. The session is not a room member until Join succeeds.
func New(cfg *config.Config, roomID, username string) (*Session, error) {
	client := rendezvous.NewClient(cfg.ServerURL)
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("connect to rendezvous server: %w", err)
	}

	handler := rendezvous.NewHandler(client)
	go handler.Start()

	s := &Session{
		cfg:      cfg,
		roomID:   roomID,
		username: username,
		client:   client,
		handler:  handler,
		player:   playback.NewClockPlayer(),
		inbound:  make(chan *protocol.AppMessage, 64),
		lines:    make(chan Line, 64),
		done:     make(chan struct{}),
	}

	s.mesh = session.NewManager(cfg, client, slog.Default())
	s.sync = playback.NewSynchronizer(s.player, s.mesh, username, s.systemNotice)
	s.roster = presence.NewRoster(username, s.systemNotice)
	s.player.OnStateChange(s.sync.HandlePlayerState)

	s.mesh.OnMessage(func(_ string, msg *protocol.AppMessage) {
		select {
		case s.inbound <- msg:
		case <-s.done:
		}
	})
	s.mesh.OnTrack(func(_, username string, track *pion.TrackRemote) {
		s.systemNotice(fmt.Sprintf("%s started voice chat", username))
		go media.Drain(track)
	})

	return s, nil
}

// Join asks the server for room membership and blocks until the join response
// arrives. On success the roster is seeded with the pre-join snapshot; the
// existing members will start offering to us.
func (s *Session) Join() error {
	s.client.JoinRoom(s.roomID, s.username)

	for ev := range s.handler.Events() {
		switch ev.Kind {
		case rendezvous.EventJoined:
			s.roster.Seed(ev.Joined)
			return nil
		case rendezvous.EventRoomFull:
			return session.NewError("join room", fmt.Errorf("%w: %s", session.ErrRoomFull, ev.Reason))
		case rendezvous.EventDisconnected:
			return session.NewError("join room", session.ErrSignalingError)
		}
	}
	return session.NewError("join room", session.ErrSignalingError)
}

// Run drives the session until the server connection drops or Leave is
// called. All membership and negotiation transitions happen here, one event
// at a time.
func (s *Session) Run() {
	defer close(s.lines)

	for {
		select {
		case ev, ok := <-s.handler.Events():
			if !ok {
				return
			}
			s.handleEvent(ev)
			if ev.Kind == rendezvous.EventDisconnected {
				select {
				case <-s.done:
					// Voluntary leave; the dropped connection is ours.
				default:
					s.emit(Line{Kind: LineError, Text: "lost connection to the rendezvous server"})
				}
				return
			}

		case msg := <-s.inbound:
			s.handleAppMessage(msg)

		case <-s.done:
			return
		}
	}
}

func (s *Session) handleEvent(ev rendezvous.Event) {
	switch ev.Kind {
	case rendezvous.EventMemberJoined:
		s.roster.Add(ev.Member)
		if err := s.mesh.HandleMemberJoined(ev.Member.ConnectionID, ev.Member.Username); err != nil {
			slog.Warn("failed to start negotiation", "peer", ev.Member.ConnectionID, "error", err)
		}

	case rendezvous.EventMemberLeft:
		s.roster.Remove(ev.Member)
		s.mesh.HandleMemberLeft(ev.Member.ConnectionID)

	case rendezvous.EventOffer:
		if err := s.mesh.HandleOffer(ev.Signal.From, ev.Signal.Username, ev.Signal.SDP); err != nil {
			slog.Warn("failed to answer offer", "peer", ev.Signal.From, "error", err)
		}

	case rendezvous.EventAnswer:
		if err := s.mesh.HandleAnswer(ev.Signal.From, ev.Signal.SDP); err != nil {
			slog.Warn("failed to apply answer", "peer", ev.Signal.From, "error", err)
		}

	case rendezvous.EventCandidate:
		if err := s.mesh.HandleCandidate(ev.Signal.From, ev.Signal.Candidate); err != nil {
			slog.Debug("failed to add candidate", "peer", ev.Signal.From, "error", err)
		}
	}
}

func (s *Session) handleAppMessage(msg *protocol.AppMessage) {
	switch {
	case msg.Type == protocol.AppTypeChat:
		s.emit(Line{Kind: LineChat, Username: msg.Username, Text: msg.Content})

	case msg.Type == protocol.AppTypeReaction:
		s.emit(Line{Kind: LineReaction, Username: msg.Username, Text: msg.Content})

	case msg.IsSync() || msg.Type == protocol.AppTypeVideoLoad:
		s.sync.Apply(msg)

	default:
		slog.Debug("ignoring unknown peer message", "type", msg.Type)
	}
}

// Lines returns displayable session output. Closed when the session ends.
func (s *Session) Lines() <-chan Line {
	return s.lines
}

// SendChat broadcasts a chat message and shows it locally.
func (s *Session) SendChat(content string) {
	msg := protocol.NewChat(s.username, content)
	s.mesh.Broadcast(msg)
	s.emit(Line{Kind: LineChat, Username: s.username, Text: content})
}

// SendReaction broadcasts an emoji reaction and shows it locally.
func (s *Session) SendReaction(emoji string) {
	msg := protocol.NewReaction(s.username, emoji)
	s.mesh.Broadcast(msg)
	s.emit(Line{Kind: LineReaction, Username: s.username, Text: emoji})
}

// LoadVideo swaps the active video for everyone.
func (s *Session) LoadVideo(videoID string) {
	s.sync.LoadVideo(videoID)
	s.systemNotice(fmt.Sprintf("you loaded video %s", videoID))
}

// Play starts local playback; the resulting state change broadcasts.
func (s *Session) Play() {
	s.player.Play()
}

// Pause pauses local playback; the resulting state change broadcasts.
func (s *Session) Pause() {
	s.player.Pause()
}

// Seek jumps local playback and broadcasts the new position.
func (s *Session) Seek(seconds float64) {
	s.sync.Seek(seconds)
}

// Position returns the local playback position.
func (s *Session) Position() float64 {
	return s.player.CurrentTime()
}

// VideoID returns the active video identifier.
func (s *Session) VideoID() string {
	return s.sync.VideoID()
}

// Participants returns the display names of everyone in the room.
func (s *Session) Participants() []string {
	return s.roster.Names()
}

// StartVoice acquires the audio source and upgrades every peer link with the
// local audio track. media.ErrPermissionDenied leaves the session otherwise
// untouched.
func (s *Session) StartVoice(audioPath string) error {
	if s.voice != nil {
		return nil
	}

	src, err := media.AcquireAudioSource(audioPath)
	if err != nil {
		return err
	}
	s.voice = src

	if err := s.mesh.EnableVoice(src.Track()); err != nil {
		src.Close()
		s.voice = nil
		return err
	}
	s.systemNotice("voice chat started")
	return nil
}

// ToggleMute flips the microphone without releasing the audio source. Returns
// the new muted state, or ErrNoVoiceSource when voice chat is not running.
func (s *Session) ToggleMute() (bool, error) {
	if s.voice == nil {
		return false, session.NewError("toggle mute", session.ErrNoVoiceSource)
	}
	s.voiceMuted = !s.voiceMuted
	s.voice.SetMuted(s.voiceMuted)
	return s.voiceMuted, nil
}

// StopVoice releases the audio source.
func (s *Session) StopVoice() {
	if s.voice == nil {
		return
	}
	s.mesh.DisableVoice()
	s.voice.Close()
	s.voice = nil
	s.voiceMuted = false
	s.systemNotice("voice chat stopped")
}

// Leave tears the session down: every peer link, the voice source and the
// server connection.
func (s *Session) Leave() {
	select {
	case <-s.done:
		return
	default:
	}
	close(s.done)

	s.StopVoice()
	s.sync.Close()
	s.mesh.Close()
	s.client.Close()
}

func (s *Session) systemNotice(text string) {
	s.emit(Line{Kind: LineSystem, Text: text})
}

func (s *Session) emit(line Line) {
	select {
	case s.lines <- line:
	default:
		// Display is decoration; never block the event loop on it.
	}
}
