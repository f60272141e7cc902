package protocol

import (
	"fmt"

	"github.com/pion/webrtc/v4"
)

// SessionDescription mirrors the browser's RTCSessionDescriptionInit.
type SessionDescription struct {
	Type string `json:"type" validate:"required,oneof=offer answer pranswer rollback"`
	SDP  string `json:"sdp" validate:"required"`
}

func DescriptionFromPion(desc webrtc.SessionDescription) SessionDescription {
	return SessionDescription{Type: desc.Type.String(), SDP: desc.SDP}
}

func (d SessionDescription) ToPion() (webrtc.SessionDescription, error) {
	t := webrtc.NewSDPType(d.Type)
	if t == webrtc.SDPTypeUnknown {
		return webrtc.SessionDescription{}, fmt.Errorf("unsupported sdp type %q", d.Type)
	}
	return webrtc.SessionDescription{Type: t, SDP: d.SDP}, nil
}

// OfferIn is what the relay delivers for webrtc_offer. The outbound
// webrtc_offer payload is a bare SessionDescription.
type OfferIn struct {
	Offer          SessionDescription `json:"offer"`
	SenderSID      string             `json:"sender_sid" validate:"required"`
	SenderUsername string             `json:"sender_username"`
}

type AnswerOut struct {
	Answer    SessionDescription `json:"answer"`
	TargetSID string             `json:"target_sid" validate:"required"`
}

type AnswerIn struct {
	Answer    SessionDescription `json:"answer"`
	SenderSID string             `json:"sender_sid" validate:"required"`
}

// Candidate is relayed as-is in both directions. The relay overwrites
// SenderSID on the way in; peers leave it empty.
type Candidate struct {
	Candidate        string  `json:"candidate" validate:"required"`
	SDPMid           *string `json:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty"`
	SenderSID        string  `json:"sender_sid,omitempty"`
}

func CandidateFromPion(init webrtc.ICECandidateInit) Candidate {
	return Candidate{
		Candidate:        init.Candidate,
		SDPMid:           init.SDPMid,
		SDPMLineIndex:    init.SDPMLineIndex,
		UsernameFragment: init.UsernameFragment,
	}
}

func (c Candidate) ToPion() webrtc.ICECandidateInit {
	return webrtc.ICECandidateInit{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	}
}

type Session struct {
	SID      string `json:"sid"`
	Username string `json:"username"`
}

type WhoAmI struct {
	SID      string `json:"sid"`
	Username string `json:"username"`
	Room     string `json:"room,omitempty"`
}

type Rename struct {
	Username string `json:"username" validate:"required,max=36"`
}

type JoinRoom struct {
	Room string `json:"room" validate:"required,max=64"`
}

type LeaveRoom struct {
	Room string `json:"room" validate:"max=64"`
}

type SendMessage struct {
	Room    string `json:"room" validate:"required,max=64"`
	Message string `json:"message" validate:"required,max=2000"`
}

type ChatMessage struct {
	Room      string `json:"room"`
	Sender    string `json:"sender"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// UserEvent backs user_connected, user_disconnected, user_joined and user_left.
type UserEvent struct {
	SID      string `json:"sid"`
	Username string `json:"username"`
	Room     string `json:"room,omitempty"`
}

// UserList is the payload of update_user_list: online usernames.
type UserList []string

type ErrorPayload struct {
	Message string `json:"message"`
}
