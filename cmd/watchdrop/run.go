package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BioHazard786/Watchdrop/internal/config"
	"github.com/BioHazard786/Watchdrop/internal/media"
	"github.com/BioHazard786/Watchdrop/internal/party"
	"github.com/BioHazard786/Watchdrop/internal/session"
	"github.com/BioHazard786/Watchdrop/internal/ui"
)

// runParty joins the room and drives the interactive loop: plain lines are
// chat, slash commands control playback and voice.
func runParty(roomID string) error {
	cfg, err := config.Load(config.Options{
		ServerURL:  flagServerURL,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
	})
	if err != nil {
		return err
	}

	sess, err := party.New(cfg, roomID, flagName)
	if err != nil {
		return err
	}

	if err := sess.Join(); err != nil {
		sess.Leave()
		if errors.Is(err, session.ErrRoomFull) {
			return fmt.Errorf("room %s is full, try another room or come back later", roomID)
		}
		return err
	}

	ui.PrintTitle("🎬 Watchdrop")
	ui.PrintRoomCode(roomID)
	ui.PrintSuccess(fmt.Sprintf("joined room %s as %s", roomID, flagName))
	ui.PrintSystem("share the room code to invite people; type /help for commands")

	runDone := make(chan struct{})
	go func() {
		sess.Run()
		close(runDone)
	}()

	go printLines(sess)
	go readInput(sess)

	<-runDone
	return nil
}

func printLines(sess *party.Session) {
	for line := range sess.Lines() {
		switch line.Kind {
		case party.LineChat:
			ui.PrintChat(line.Username, line.Text)
		case party.LineReaction:
			ui.PrintReaction(line.Username, line.Text)
		case party.LineSystem:
			ui.PrintSystem(line.Text)
		case party.LineError:
			ui.PrintError(line.Text)
		}
	}
}

func readInput(sess *party.Session) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, "/") {
			sess.SendChat(line)
			continue
		}

		if quit := handleCommand(sess, line); quit {
			sess.Leave()
			return
		}
	}
	sess.Leave()
}

func handleCommand(sess *party.Session, line string) (quit bool) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/play":
		sess.Play()

	case "/pause":
		sess.Pause()

	case "/seek":
		if len(args) != 1 {
			ui.PrintError("usage: /seek <seconds>")
			return false
		}
		seconds, err := strconv.ParseFloat(args[0], 64)
		if err != nil || seconds < 0 {
			ui.PrintError("usage: /seek <seconds>")
			return false
		}
		sess.Seek(seconds)

	case "/load":
		if len(args) != 1 {
			ui.PrintError("usage: /load <video-id>")
			return false
		}
		sess.LoadVideo(args[0])

	case "/react":
		if len(args) != 1 {
			ui.PrintError("usage: /react <emoji>")
			return false
		}
		sess.SendReaction(args[0])

	case "/voice":
		if len(args) == 1 && args[0] == "off" {
			sess.StopVoice()
			return false
		}
		if err := sess.StartVoice(flagAudio); err != nil {
			if errors.Is(err, media.ErrPermissionDenied) {
				ui.PrintError("no audio source available; voice chat stays off (see --audio)")
			} else {
				ui.PrintError(err.Error())
			}
		}

	case "/mute":
		muted, err := sess.ToggleMute()
		if err != nil {
			ui.PrintError("voice chat is not running; start it with /voice")
			return false
		}
		if muted {
			ui.PrintSystem("microphone muted")
		} else {
			ui.PrintSystem("microphone unmuted")
		}

	case "/who":
		names := sess.Participants()
		ui.PrintSystem(fmt.Sprintf("%d watching: %s", len(names), strings.Join(names, ", ")))

	case "/status":
		ui.PrintSystem(fmt.Sprintf("video %q at %.1fs", sess.VideoID(), sess.Position()))

	case "/help":
		ui.PrintSystem("commands: /play /pause /seek <s> /load <video-id> /react <emoji> /voice [off] /mute /who /status /quit")

	case "/quit", "/q":
		return true

	default:
		ui.PrintError("unknown command, type /help")
	}
	return false
}
