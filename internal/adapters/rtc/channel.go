package rtc

import (
	"github.com/dkeye/Chat/internal/core"
	"github.com/pion/webrtc/v4"
)

// Channel is a core.DataChannel backed by pion.
type Channel struct {
	dc *webrtc.DataChannel
}

var _ core.DataChannel = (*Channel)(nil)

func (c *Channel) Label() string                       { return c.dc.Label() }
func (c *Channel) ReadyState() webrtc.DataChannelState { return c.dc.ReadyState() }
func (c *Channel) SendText(text string) error          { return c.dc.SendText(text) }
func (c *Channel) OnOpen(fn func())                    { c.dc.OnOpen(fn) }
func (c *Channel) OnClose(fn func())                   { c.dc.OnClose(fn) }
func (c *Channel) Close() error                        { return c.dc.Close() }

func (c *Channel) OnMessage(fn func(webrtc.DataChannelMessage)) {
	c.dc.OnMessage(fn)
}
