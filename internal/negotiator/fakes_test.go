package negotiator

import (
	"context"
	"errors"
	"sync"

	"github.com/dkeye/Chat/internal/core"
	"github.com/pion/webrtc/v4"
)

type fakeChannel struct {
	mu      sync.Mutex
	label   string
	state   webrtc.DataChannelState
	sent    []string
	onOpen  func()
	onClose func()
	onMsg   func(webrtc.DataChannelMessage)
	closed  bool
}

func newFakeChannel(label string) *fakeChannel {
	return &fakeChannel{label: label, state: webrtc.DataChannelStateConnecting}
}

func (c *fakeChannel) Label() string { return c.label }

func (c *fakeChannel) ReadyState() webrtc.DataChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *fakeChannel) SendText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != webrtc.DataChannelStateOpen {
		return errors.New("channel not open")
	}
	c.sent = append(c.sent, text)
	return nil
}

func (c *fakeChannel) OnOpen(fn func())                              { c.mu.Lock(); c.onOpen = fn; c.mu.Unlock() }
func (c *fakeChannel) OnClose(fn func())                             { c.mu.Lock(); c.onClose = fn; c.mu.Unlock() }
func (c *fakeChannel) OnMessage(fn func(webrtc.DataChannelMessage)) { c.mu.Lock(); c.onMsg = fn; c.mu.Unlock() }

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.state = webrtc.DataChannelStateClosed
	c.mu.Unlock()
	return nil
}

func (c *fakeChannel) open() {
	c.mu.Lock()
	c.state = webrtc.DataChannelStateOpen
	fn := c.onOpen
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (c *fakeChannel) remoteClose() {
	c.mu.Lock()
	c.state = webrtc.DataChannelStateClosed
	fn := c.onClose
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (c *fakeChannel) receive(text string) {
	c.mu.Lock()
	fn := c.onMsg
	c.mu.Unlock()
	if fn != nil {
		fn(webrtc.DataChannelMessage{IsString: true, Data: []byte(text)})
	}
}

func (c *fakeChannel) sentTexts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

// fakePeer records calls in order and enforces the description rules the
// real transport enforces.
type fakePeer struct {
	mu         sync.Mutex
	calls      []string
	candidates []string
	channels   []*fakeChannel
	local      *webrtc.SessionDescription
	remote     *webrtc.SessionDescription
	remoteErr  error
	closed     bool

	onICE   func(webrtc.ICECandidateInit)
	onDC    func(core.DataChannel)
	onState func(webrtc.PeerConnectionState)
}

func (p *fakePeer) record(call string) {
	p.calls = append(p.calls, call)
}

func (p *fakePeer) CreateDataChannel(label string) (core.DataChannel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("channel")
	dc := newFakeChannel(label)
	p.channels = append(p.channels, dc)
	return dc, nil
}

func (p *fakePeer) CreateOffer() (webrtc.SessionDescription, error) {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0 offer"}, nil
}

func (p *fakePeer) CreateAnswer() (webrtc.SessionDescription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.remote == nil {
		return webrtc.SessionDescription{}, errors.New("no remote offer")
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0 answer"}, nil
}

func (p *fakePeer) SetLocalDescription(d webrtc.SessionDescription) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("local:" + d.Type.String())
	p.local = &d
	return nil
}

func (p *fakePeer) SetRemoteDescription(d webrtc.SessionDescription) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.remoteErr != nil {
		return p.remoteErr
	}
	if p.remote != nil {
		return errors.New("remote description already set")
	}
	p.record("remote:" + d.Type.String())
	p.remote = &d
	return nil
}

func (p *fakePeer) LocalDescription() *webrtc.SessionDescription {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.local
}

func (p *fakePeer) AddICECandidate(c webrtc.ICECandidateInit) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.remote == nil {
		return errors.New("remote description not set")
	}
	p.record("candidate")
	p.candidates = append(p.candidates, c.Candidate)
	return nil
}

func (p *fakePeer) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	p.mu.Lock()
	p.onICE = fn
	p.mu.Unlock()
}

func (p *fakePeer) OnDataChannel(fn func(core.DataChannel)) {
	p.mu.Lock()
	p.onDC = fn
	p.mu.Unlock()
}

func (p *fakePeer) OnConnectionStateChange(fn func(webrtc.PeerConnectionState)) {
	p.mu.Lock()
	p.onState = fn
	p.mu.Unlock()
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func (p *fakePeer) gather(candidate string) {
	p.mu.Lock()
	fn := p.onICE
	p.mu.Unlock()
	fn(webrtc.ICECandidateInit{Candidate: candidate})
}

func (p *fakePeer) inbound(dc *fakeChannel) {
	p.mu.Lock()
	fn := p.onDC
	p.mu.Unlock()
	fn(dc)
}

func (p *fakePeer) transition(s webrtc.PeerConnectionState) {
	p.mu.Lock()
	fn := p.onState
	p.mu.Unlock()
	fn(s)
}

func (p *fakePeer) callLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *fakePeer) applied() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.candidates...)
}

func (p *fakePeer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// peerPool hands out fakePeers and remembers them for inspection.
type peerPool struct {
	mu    sync.Mutex
	peers []*fakePeer
	err   error
	setup func(*fakePeer)
}

func (pp *peerPool) factory() core.PeerConnectionFactory {
	return func() (core.PeerConnection, error) {
		pp.mu.Lock()
		defer pp.mu.Unlock()
		if pp.err != nil {
			return nil, pp.err
		}
		p := &fakePeer{}
		if pp.setup != nil {
			pp.setup(p)
		}
		pp.peers = append(pp.peers, p)
		return p, nil
	}
}

func (pp *peerPool) last() *fakePeer {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return pp.peers[len(pp.peers)-1]
}

func (pp *peerPool) count() int {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return len(pp.peers)
}

type sentAnswer struct {
	answer webrtc.SessionDescription
	target string
}

type recordingRelay struct {
	mu         sync.Mutex
	offers     []webrtc.SessionDescription
	answers    []sentAnswer
	candidates []webrtc.ICECandidateInit
	err        error
}

func (r *recordingRelay) SendOffer(_ context.Context, offer webrtc.SessionDescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offers = append(r.offers, offer)
	return r.err
}

func (r *recordingRelay) SendAnswer(_ context.Context, answer webrtc.SessionDescription, target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers = append(r.answers, sentAnswer{answer: answer, target: target})
	return r.err
}

func (r *recordingRelay) SendCandidate(_ context.Context, c webrtc.ICECandidateInit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidates = append(r.candidates, c)
	return r.err
}

func (r *recordingRelay) counts() (offers, answers, candidates int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.offers), len(r.answers), len(r.candidates)
}

type stateLog struct {
	mu     sync.Mutex
	states []State
}

func (l *stateLog) add(s State) {
	l.mu.Lock()
	l.states = append(l.states, s)
	l.mu.Unlock()
}

func (l *stateLog) count(s State) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, x := range l.states {
		if x == s {
			n++
		}
	}
	return n
}
