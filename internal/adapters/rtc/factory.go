// Package rtc adapts pion/webrtc to the core peer interfaces.
package rtc

import (
	"sync/atomic"

	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/logging"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// ConfigFromURLs builds a configuration from STUN/TURN urls. An empty list
// leaves only host candidates, which is what tests on loopback want.
func ConfigFromURLs(urls []string) webrtc.Configuration {
	if len(urls) == 0 {
		return webrtc.Configuration{}
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: urls}},
	}
}

// Factory creates pion peer connections sharing one API instance.
type Factory struct {
	api    *webrtc.API
	cfg    webrtc.Configuration
	logger zerolog.Logger
	seq    atomic.Uint64
}

func NewFactory(cfg webrtc.Configuration, logger zerolog.Logger) *Factory {
	se := webrtc.SettingEngine{
		LoggerFactory: logging.PionFactory{Logger: logger},
	}
	return &Factory{
		api:    webrtc.NewAPI(webrtc.WithSettingEngine(se)),
		cfg:    cfg,
		logger: logger,
	}
}

// New matches core.PeerConnectionFactory.
func (f *Factory) New() (core.PeerConnection, error) {
	pc, err := f.api.NewPeerConnection(f.cfg)
	if err != nil {
		return nil, err
	}
	n := f.seq.Add(1)
	return &Connection{
		pc:     pc,
		logger: f.logger.With().Str("module", "webrtc").Uint64("pc", n).Logger(),
	}, nil
}
