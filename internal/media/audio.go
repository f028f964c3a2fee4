// Package media is the capture boundary for voice chat. Acquiring a
// microphone is an external capability; what the session needs is only an
// audio track to add to its peer links, and a sink for the tracks peers send
// back.
package media

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	pion "github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
)

// ErrPermissionDenied is returned when no audio source can be acquired. Voice
// chat stays disabled; the rest of the session is unaffected.
var ErrPermissionDenied = errors.New("audio capture permission denied")

const oggPageDuration = 20 * time.Millisecond

// Source produces the local audio track for voice chat. Muting silences the
// track without releasing the capture.
type Source interface {
	Track() pion.TrackLocal
	SetMuted(muted bool)
	Close() error
}

// AcquireAudioSource opens the configured audio source. The CLI feeds voice
// from an Ogg/Opus stream (a capture pipeline writes it); an empty path means
// no capture is available, which surfaces as ErrPermissionDenied.
func AcquireAudioSource(path string) (Source, error) {
	if path == "" {
		return nil, ErrPermissionDenied
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, ErrPermissionDenied
	}

	track, err := pion.NewTrackLocalStaticSample(
		pion.RTPCodecCapability{MimeType: pion.MimeTypeOpus},
		"audio", "watchdrop",
	)
	if err != nil {
		file.Close()
		return nil, err
	}

	src := &oggSource{
		track: track,
		file:  file,
		done:  make(chan struct{}),
	}
	go src.pump()

	return src, nil
}

// oggSource streams Opus pages from an Ogg container into a sample track,
// pacing writes at page duration.
type oggSource struct {
	track *pion.TrackLocalStaticSample
	file  *os.File
	done  chan struct{}

	mu     sync.Mutex
	muted  bool
	closed bool
}

func (s *oggSource) Track() pion.TrackLocal {
	return s.track
}

func (s *oggSource) SetMuted(muted bool) {
	s.mu.Lock()
	s.muted = muted
	s.mu.Unlock()
}

func (s *oggSource) isMuted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

func (s *oggSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	return s.file.Close()
}

func (s *oggSource) pump() {
	ogg, _, err := oggreader.NewWith(s.file)
	if err != nil {
		slog.Warn("failed to parse audio stream", "error", err)
		return
	}

	var lastGranule uint64
	ticker := time.NewTicker(oggPageDuration)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}

		pageData, pageHeader, err := ogg.ParseNextPage()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			slog.Warn("audio stream read error", "error", err)
			return
		}

		sampleCount := float64(pageHeader.GranulePosition - lastGranule)
		lastGranule = pageHeader.GranulePosition
		sampleDuration := time.Duration((sampleCount/48000)*1000) * time.Millisecond

		// Muted drops the page but keeps consuming, so unmute resumes at the
		// live position.
		if s.isMuted() {
			continue
		}

		if err := s.track.WriteSample(media.Sample{Data: pageData, Duration: sampleDuration}); err != nil {
			slog.Warn("audio sample write error", "error", err)
			return
		}
	}
}

// Drain consumes a remote audio track. Actual playout belongs to an external
// audio device; reading keeps the transport flowing either way.
func Drain(track *pion.TrackRemote) {
	for {
		if _, _, err := track.ReadRTP(); err != nil {
			return
		}
	}
}
