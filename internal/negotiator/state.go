package negotiator

import "fmt"

type Role int

const (
	RoleNone Role = iota
	RoleCaller
	RoleCallee
)

func (r Role) String() string {
	switch r {
	case RoleNone:
		return "none"
	case RoleCaller:
		return "caller"
	case RoleCallee:
		return "callee"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

type State int

const (
	StateIdle State = iota
	StateOfferCreated
	StateOfferReceived
	StateAnswerCreated
	// StateAnswerReceived is the caller waiting for the channel to open.
	StateAnswerReceived
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOfferCreated:
		return "offer-created"
	case StateOfferReceived:
		return "offer-received"
	case StateAnswerCreated:
		return "answer-created"
	case StateAnswerReceived:
		return "answer-received"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// negotiating reports whether a round is between its first description and
// an open channel.
func (s State) negotiating() bool {
	switch s {
	case StateOfferCreated, StateOfferReceived, StateAnswerCreated, StateAnswerReceived:
		return true
	}
	return false
}

type Direction int

const (
	DirectionLocal Direction = iota
	DirectionPeer
)

func (d Direction) String() string {
	if d == DirectionPeer {
		return "peer"
	}
	return "local"
}

// Message is one text frame seen on the data channel.
type Message struct {
	Text      string
	Direction Direction
}

// Peer identifies the remote side as the relay names it.
type Peer struct {
	SID      string
	Username string
}
