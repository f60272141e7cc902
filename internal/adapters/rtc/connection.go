package rtc

import (
	"github.com/dkeye/Chat/internal/core"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// Connection is a core.PeerConnection backed by pion.
type Connection struct {
	pc     *webrtc.PeerConnection
	logger zerolog.Logger
}

var _ core.PeerConnection = (*Connection)(nil)

func (c *Connection) CreateDataChannel(label string) (core.DataChannel, error) {
	ordered := true
	dc, err := c.pc.CreateDataChannel(label, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return nil, err
	}
	return &Channel{dc: dc}, nil
}

func (c *Connection) CreateOffer() (webrtc.SessionDescription, error) {
	return c.pc.CreateOffer(nil)
}

func (c *Connection) CreateAnswer() (webrtc.SessionDescription, error) {
	return c.pc.CreateAnswer(nil)
}

func (c *Connection) SetLocalDescription(desc webrtc.SessionDescription) error {
	return c.pc.SetLocalDescription(desc)
}

func (c *Connection) SetRemoteDescription(desc webrtc.SessionDescription) error {
	return c.pc.SetRemoteDescription(desc)
}

func (c *Connection) LocalDescription() *webrtc.SessionDescription {
	return c.pc.LocalDescription()
}

func (c *Connection) AddICECandidate(ci webrtc.ICECandidateInit) error {
	return c.pc.AddICECandidate(ci)
}

// OnICECandidate skips the nil end-of-gathering marker.
func (c *Connection) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand != nil && fn != nil {
			fn(cand.ToJSON())
		}
	})
}

func (c *Connection) OnDataChannel(fn func(core.DataChannel)) {
	c.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		c.logger.Info().Str("label", dc.Label()).Bool("ordered", dc.Ordered()).Msg("inbound data channel")
		if fn != nil {
			fn(&Channel{dc: dc})
		}
	})
}

func (c *Connection) OnConnectionStateChange(fn func(webrtc.PeerConnectionState)) {
	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		c.logger.Info().Str("peer_connection_state", s.String()).Msg("Peer state")
		if fn != nil {
			fn(s)
		}
	})
}

func (c *Connection) Close() error {
	if err := c.pc.Close(); err != nil {
		c.logger.Error().Err(err).Msg("close error")
		return err
	}
	c.logger.Info().Msg("closed")
	return nil
}
