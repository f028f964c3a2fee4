package playback

import (
	"sync"
	"time"
)

// PlayerState mirrors the state values an embedded video widget reports.
type PlayerState int

const (
	StatePaused PlayerState = iota
	StatePlaying
)

func (s PlayerState) String() string {
	if s == StatePlaying {
		return "playing"
	}
	return "paused"
}

// Player is the capability set of the embedded video widget. The widget itself
// is an external component; everything here drives it blindly and trusts
// CurrentTime for positions.
type Player interface {
	Play()
	Pause()
	SeekTo(seconds float64)
	CurrentTime() float64
}

// StateListener observes widget state transitions, the way a UI subscribes to
// the widget's state-change events.
type StateListener func(state PlayerState)

// ClockPlayer is a reference Player that advances its position with wall-clock
// time while playing. The CLI uses it in place of an embedded widget, and the
// synchronizer tests use it to model echo behavior: applying a remote play
// fires the same state-change callback a real widget would.
type ClockPlayer struct {
	mu       sync.Mutex
	playing  bool
	position float64
	since    time.Time
	listener StateListener
}

func NewClockPlayer() *ClockPlayer {
	return &ClockPlayer{}
}

// OnStateChange registers the listener invoked on every play/pause
// transition.
func (p *ClockPlayer) OnStateChange(listener StateListener) {
	p.mu.Lock()
	p.listener = listener
	p.mu.Unlock()
}

func (p *ClockPlayer) Play() {
	p.mu.Lock()
	if p.playing {
		p.mu.Unlock()
		return
	}
	p.playing = true
	p.since = time.Now()
	listener := p.listener
	p.mu.Unlock()

	if listener != nil {
		listener(StatePlaying)
	}
}

func (p *ClockPlayer) Pause() {
	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return
	}
	p.position += time.Since(p.since).Seconds()
	p.playing = false
	listener := p.listener
	p.mu.Unlock()

	if listener != nil {
		listener(StatePaused)
	}
}

func (p *ClockPlayer) SeekTo(seconds float64) {
	p.mu.Lock()
	p.position = seconds
	p.since = time.Now()
	p.mu.Unlock()
}

func (p *ClockPlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return p.position + time.Since(p.since).Seconds()
	}
	return p.position
}

// Playing reports whether the clock is advancing.
func (p *ClockPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}
