package core

import (
	"context"

	"github.com/pion/webrtc/v4"
)

//go:generate mockgen -destination=mocks/signal_relay_mock.go -package=mocks github.com/dkeye/Chat/internal/core SignalRelay

// PeerConnection is the slice of a WebRTC peer connection the negotiator drives.
type PeerConnection interface {
	// CreateDataChannel opens an ordered, reliable channel with the given label.
	CreateDataChannel(label string) (DataChannel, error)
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetLocalDescription(webrtc.SessionDescription) error
	SetRemoteDescription(webrtc.SessionDescription) error
	// LocalDescription returns nil until a local description is committed.
	LocalDescription() *webrtc.SessionDescription
	// AddICECandidate applies a remote ICE candidate.
	AddICECandidate(webrtc.ICECandidateInit) error
	// OnICECandidate sets a callback for newly gathered local ICE candidates.
	OnICECandidate(func(webrtc.ICECandidateInit))
	// OnDataChannel sets a callback for channels opened by the remote side.
	OnDataChannel(func(DataChannel))
	OnConnectionStateChange(func(webrtc.PeerConnectionState))
	Close() error
}

// PeerConnectionFactory allocates a fresh connection context.
type PeerConnectionFactory func() (PeerConnection, error)

// DataChannel carries UTF-8 text between the two peers.
type DataChannel interface {
	Label() string
	ReadyState() webrtc.DataChannelState
	SendText(text string) error
	OnOpen(func())
	OnClose(func())
	OnMessage(func(webrtc.DataChannelMessage))
	Close() error
}

// SignalRelay carries handshake metadata to the other peer.
// It never interprets payloads.
type SignalRelay interface {
	// SendOffer is not addressed; the relay delivers it to whoever listens.
	SendOffer(ctx context.Context, offer webrtc.SessionDescription) error
	SendAnswer(ctx context.Context, answer webrtc.SessionDescription, targetSID string) error
	SendCandidate(ctx context.Context, candidate webrtc.ICECandidateInit) error
}
