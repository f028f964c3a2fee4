package session

import (
	"errors"
	"fmt"
)

var (
	ErrRoomFull       = errors.New("room is full")
	ErrSignalingError = errors.New("signaling server error")
	ErrLinkClosed     = errors.New("peer link closed")
	ErrChannelNotOpen = errors.New("data channel not open")
	ErrNoVoiceSource  = errors.New("no voice source available")
)

// SessionError wraps a failure with the operation and, when known, the remote
// peer it concerns.
type SessionError struct {
	Op   string
	Peer string
	Err  error
}

func (e *SessionError) Error() string {
	if e.Peer != "" {
		return fmt.Sprintf("%s (peer %s): %v", e.Op, e.Peer, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *SessionError {
	return &SessionError{Op: op, Err: err}
}

func NewPeerError(op, peer string, err error) *SessionError {
	return &SessionError{Op: op, Peer: peer, Err: err}
}
