// Package negotiator drives the offer/answer handshake that sets up one
// direct data channel between two chat peers. The relay only carries the
// handshake metadata; chat text then flows over the channel.
//
// A Negotiator owns exactly one pairing. Every operation and every platform
// callback is serialized by its mutex; relay I/O and user callbacks run
// outside of it.
package negotiator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/Chat/internal/core"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

const (
	DefaultChannelLabel         = "chat"
	DefaultMaxPendingCandidates = 64

	// maxPendingSenders caps how many senders may hold early candidates.
	// The oldest sender's entries go first.
	maxPendingSenders = 8

	relayTimeout = 5 * time.Second
)

type Config struct {
	// LocalID is this peer's relay session id. It breaks offer collisions:
	// the side with the lower id yields. Empty never yields.
	LocalID              string
	ChannelLabel         string
	HandshakeTimeout     time.Duration
	MaxPendingCandidates int
}

// queuedCandidate is a remote candidate that arrived before the remote
// description, tagged with the relay session that sent it.
type queuedCandidate struct {
	from string
	init webrtc.ICECandidateInit
}

type Negotiator struct {
	cfg    Config
	newPC  core.PeerConnectionFactory
	relay  core.SignalRelay
	logger zerolog.Logger

	// round identifies the current connection context. Callbacks from a
	// released context see a different value and bail out.
	round  atomic.Uint64
	closed atomic.Bool

	mu        sync.Mutex
	state     State
	role      Role
	peer      Peer
	pc        core.PeerConnection
	dc        core.DataChannel
	remoteSet bool
	pending   []queuedCandidate
	timer     *time.Timer
	lastErr   error

	notes []State
	trash []func()

	onMessage func(Message)
	onState   func(State)
}

func New(cfg Config, newPC core.PeerConnectionFactory, relay core.SignalRelay, logger zerolog.Logger) *Negotiator {
	if cfg.ChannelLabel == "" {
		cfg.ChannelLabel = DefaultChannelLabel
	}
	if cfg.MaxPendingCandidates <= 0 {
		cfg.MaxPendingCandidates = DefaultMaxPendingCandidates
	}
	return &Negotiator{
		cfg:    cfg,
		newPC:  newPC,
		relay:  relay,
		logger: logger.With().Str("module", "negotiator").Logger(),
	}
}

func (n *Negotiator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *Negotiator) Role() Role {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.role
}

func (n *Negotiator) Peer() Peer {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.peer
}

// SetLocalID records this peer's relay session id once the relay assigns it.
func (n *Negotiator) SetLocalID(id string) {
	n.mu.Lock()
	n.cfg.LocalID = id
	n.mu.Unlock()
}

// LastError returns the cause of the most recent failure, if any.
func (n *Negotiator) LastError() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastErr
}

// OnMessage registers the handler for inbound channel text.
func (n *Negotiator) OnMessage(fn func(Message)) {
	n.mu.Lock()
	n.onMessage = fn
	n.mu.Unlock()
}

// OnStateChange registers a handler called after every transition.
func (n *Negotiator) OnStateChange(fn func(State)) {
	n.mu.Lock()
	n.onState = fn
	n.mu.Unlock()
}

// Initiate starts a round as the caller: it opens the chat channel eagerly,
// commits a local offer and hands it to the relay. peerID may be empty, in
// which case the first answer wins.
func (n *Negotiator) Initiate(ctx context.Context, peerID string) error {
	n.mu.Lock()
	if n.closed.Load() {
		n.mu.Unlock()
		return ErrClosed
	}
	if n.state != StateIdle && n.state != StateFailed {
		err := negErr(AlreadyInProgress, fmt.Errorf("state %s", n.state))
		n.mu.Unlock()
		return err
	}
	n.resetLocked()

	pc, gen, err := n.openContextLocked()
	if err != nil {
		n.unlockAndNotify()
		return negErr(NoActiveContext, err)
	}
	n.role = RoleCaller
	n.peer = Peer{SID: peerID}

	dc, err := pc.CreateDataChannel(n.cfg.ChannelLabel)
	if err != nil {
		n.failLocked(err)
		n.unlockAndNotify()
		return negErr(NoActiveContext, err)
	}
	n.attachChannelLocked(dc, gen)

	offer, err := pc.CreateOffer()
	if err == nil {
		err = pc.SetLocalDescription(offer)
	}
	if err != nil {
		n.failLocked(err)
		n.unlockAndNotify()
		return negErr(DescriptionRejected, err)
	}
	n.setStateLocked(StateOfferCreated)
	n.armTimerLocked(gen)
	n.unlockAndNotify()

	if err := n.relay.SendOffer(ctx, offer); err != nil {
		n.abort(gen, err)
		return fmt.Errorf("negotiation: send offer: %w", err)
	}
	return nil
}

// HandleOffer answers a remote offer. Offers are accepted while idle or after
// a failed round; during an offer collision the lower id yields; anything
// else is rejected with AlreadyInProgress and leaves the round untouched.
func (n *Negotiator) HandleOffer(ctx context.Context, offer webrtc.SessionDescription, from Peer) error {
	if offer.Type != webrtc.SDPTypeOffer {
		return negErr(DescriptionRejected, fmt.Errorf("expected offer, got %s", offer.Type))
	}

	n.mu.Lock()
	if n.closed.Load() {
		n.mu.Unlock()
		return ErrClosed
	}
	switch {
	case n.state == StateIdle || n.state == StateFailed:
	case n.state == StateOfferCreated && n.yieldsTo(from.SID):
		n.logger.Info().Str("remote", from.SID).Msg("offer collision, dropping local offer")
		n.releaseLocked()
	default:
		err := negErr(AlreadyInProgress, fmt.Errorf("state %s with %q", n.state, n.peer.SID))
		n.logger.Warn().Str("remote", from.SID).Str("state", n.state.String()).Msg("offer rejected, negotiation busy")
		n.mu.Unlock()
		return err
	}
	// Early candidates from this offerer stay queued.
	n.releaseLocked()

	pc, gen, err := n.openContextLocked()
	if err != nil {
		n.failLocked(err)
		n.unlockAndNotify()
		return negErr(NoActiveContext, err)
	}
	n.role = RoleCallee
	n.peer = from
	n.setStateLocked(StateOfferReceived)
	n.armTimerLocked(gen)

	if err := pc.SetRemoteDescription(offer); err != nil {
		n.failLocked(err)
		n.unlockAndNotify()
		return negErr(DescriptionRejected, err)
	}
	n.remoteSet = true
	n.drainLocked(pc)

	answer, err := pc.CreateAnswer()
	if err == nil {
		err = pc.SetLocalDescription(answer)
	}
	if err != nil {
		n.failLocked(err)
		n.unlockAndNotify()
		return negErr(DescriptionRejected, err)
	}
	n.setStateLocked(StateAnswerCreated)
	n.unlockAndNotify()

	if err := n.relay.SendAnswer(ctx, answer, from.SID); err != nil {
		n.abort(gen, err)
		return fmt.Errorf("negotiation: send answer: %w", err)
	}
	return nil
}

// HandleAnswer commits the answer to our offer. Answers that do not match a
// pending offer (late, duplicate, other peer) are dropped and return nil.
func (n *Negotiator) HandleAnswer(answer webrtc.SessionDescription, fromSID string) error {
	n.mu.Lock()
	if n.role != RoleCaller || n.state != StateOfferCreated || n.pc == nil {
		n.logger.Debug().Str("remote", fromSID).Str("state", n.state.String()).Msg("stale answer dropped")
		n.mu.Unlock()
		return nil
	}
	if local := n.pc.LocalDescription(); local == nil || local.Type != webrtc.SDPTypeOffer {
		n.logger.Debug().Str("remote", fromSID).Msg("answer without local offer dropped")
		n.mu.Unlock()
		return nil
	}
	if n.peer.SID != "" && fromSID != n.peer.SID {
		n.logger.Debug().Str("remote", fromSID).Str("expected", n.peer.SID).Msg("answer from other peer dropped")
		n.mu.Unlock()
		return nil
	}
	if answer.Type != webrtc.SDPTypeAnswer {
		n.logger.Warn().Str("remote", fromSID).Str("type", answer.Type.String()).Msg("malformed answer dropped")
		n.mu.Unlock()
		return nil
	}

	if err := n.pc.SetRemoteDescription(answer); err != nil {
		n.failLocked(err)
		n.unlockAndNotify()
		return negErr(DescriptionRejected, err)
	}
	n.remoteSet = true
	n.peer.SID = fromSID
	n.drainLocked(n.pc)
	n.setStateLocked(StateAnswerReceived)
	if n.dc != nil && n.dc.ReadyState() == webrtc.DataChannelStateOpen {
		n.channelOpenLocked()
	}
	n.unlockAndNotify()
	return nil
}

// HandleCandidate applies a remote candidate, or queues it until the remote
// description is committed. fromSID is the relay session that sent it; once
// the round has a peer, candidates from anyone else are dropped. An empty
// fromSID is accepted for any peer. Bad candidates are logged, never returned.
func (n *Negotiator) HandleCandidate(c webrtc.ICECandidateInit, fromSID string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch {
	case n.closed.Load():
	case n.state == StateConnected:
		n.logger.Debug().Msg("candidate after connect ignored")
	case fromSID != "" && n.peer.SID != "" && fromSID != n.peer.SID:
		n.logger.Debug().Str("remote", fromSID).Str("expected", n.peer.SID).Msg("candidate from other peer dropped")
	case !n.remoteSet || n.pc == nil:
		n.queueLocked(fromSID, c)
	default:
		if err := n.pc.AddICECandidate(c); err != nil {
			n.logger.Warn().Err(err).Str("candidate", c.Candidate).Msg("add ice candidate")
		}
	}
}

// Send writes text to the open chat channel. It never retries.
func (n *Negotiator) Send(text string) error {
	n.mu.Lock()
	dc := n.dc
	n.mu.Unlock()
	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrChannelNotReady
	}
	if err := dc.SendText(text); err != nil {
		return fmt.Errorf("negotiation: send: %w", err)
	}
	return nil
}

// Reset releases the connection context and the candidate queue.
func (n *Negotiator) Reset() {
	n.mu.Lock()
	n.resetLocked()
	n.setStateLocked(StateIdle)
	n.unlockAndNotify()
}

// Close resets and refuses further rounds.
func (n *Negotiator) Close() {
	n.closed.Store(true)
	n.Reset()
}

func (n *Negotiator) yieldsTo(remote string) bool {
	return n.cfg.LocalID != "" && remote != "" && n.cfg.LocalID < remote
}

func (n *Negotiator) openContextLocked() (core.PeerConnection, uint64, error) {
	pc, err := n.newPC()
	if err != nil {
		n.logger.Error().Err(err).Msg("peer connection unavailable")
		return nil, 0, err
	}
	gen := n.round.Add(1)
	n.pc = pc
	n.remoteSet = false

	pc.OnICECandidate(func(c webrtc.ICECandidateInit) { n.localCandidate(gen, c) })
	pc.OnDataChannel(func(dc core.DataChannel) { n.inboundChannel(gen, dc) })
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) { n.connectionState(gen, s) })
	return pc, gen, nil
}

func (n *Negotiator) attachChannelLocked(dc core.DataChannel, gen uint64) {
	n.dc = dc
	dc.OnOpen(func() { n.channelOpened(gen) })
	dc.OnClose(func() { n.channelClosed(gen) })
	dc.OnMessage(func(msg webrtc.DataChannelMessage) { n.deliver(gen, msg) })
}

// releaseLocked drops the connection context. The pending queue, role and
// peer survive; resetLocked clears those too.
func (n *Negotiator) releaseLocked() {
	n.round.Add(1)
	n.stopTimerLocked()
	pc, dc := n.pc, n.dc
	n.pc, n.dc = nil, nil
	n.remoteSet = false
	if pc == nil && dc == nil {
		return
	}
	logger := n.logger
	n.trash = append(n.trash, func() {
		if dc != nil {
			_ = dc.Close()
		}
		if pc != nil {
			if err := pc.Close(); err != nil {
				logger.Warn().Err(err).Msg("close peer connection")
			}
		}
	})
}

func (n *Negotiator) resetLocked() {
	n.releaseLocked()
	n.pending = nil
	n.role = RoleNone
	n.peer = Peer{}
}

func (n *Negotiator) failLocked(err error) {
	n.logger.Error().Err(err).Str("state", n.state.String()).Str("role", n.role.String()).Msg("negotiation failed")
	n.lastErr = err
	n.resetLocked()
	n.setStateLocked(StateFailed)
}

func (n *Negotiator) abort(gen uint64, err error) {
	n.mu.Lock()
	if gen == n.round.Load() {
		n.failLocked(err)
	}
	n.unlockAndNotify()
}

// queueLocked holds an early candidate. Each sender gets its own
// MaxPendingCandidates slots, so traffic from other handshakes in the room
// cannot crowd out the peer that later offers or answers.
func (n *Negotiator) queueLocked(from string, c webrtc.ICECandidateInit) {
	held := 0
	senders := map[string]struct{}{}
	for _, q := range n.pending {
		senders[q.from] = struct{}{}
		if q.from == from {
			held++
		}
	}
	if held >= n.cfg.MaxPendingCandidates {
		n.logger.Warn().Str("remote", from).Int("pending", held).Msg("candidate queue full, dropping candidate")
		return
	}
	if _, ok := senders[from]; !ok && len(senders) >= maxPendingSenders {
		n.evictSenderLocked(n.pending[0].from)
	}
	n.pending = append(n.pending, queuedCandidate{from: from, init: c})
}

func (n *Negotiator) evictSenderLocked(from string) {
	kept := n.pending[:0]
	for _, q := range n.pending {
		if q.from != from {
			kept = append(kept, q)
		}
	}
	clear(n.pending[len(kept):])
	n.pending = kept
	n.logger.Debug().Str("remote", from).Msg("queued candidates evicted")
}

// drainLocked applies the queued candidates of the current peer in arrival
// order and discards the rest.
func (n *Negotiator) drainLocked(pc core.PeerConnection) {
	pending := n.pending
	n.pending = nil
	applied, skipped := 0, 0
	for _, q := range pending {
		if q.from != "" && q.from != n.peer.SID {
			skipped++
			continue
		}
		applied++
		if err := pc.AddICECandidate(q.init); err != nil {
			n.logger.Warn().Err(err).Int("index", applied-1).Msg("add queued ice candidate")
		}
	}
	if applied > 0 || skipped > 0 {
		n.logger.Debug().Int("applied", applied).Int("skipped", skipped).Msg("queued candidates drained")
	}
}

func (n *Negotiator) setStateLocked(s State) {
	if n.state == s {
		return
	}
	n.logger.Info().Str("from", n.state.String()).Str("to", s.String()).Str("role", n.role.String()).Str("peer", n.peer.SID).Msg("state")
	n.state = s
	n.notes = append(n.notes, s)
}

// unlockAndNotify releases the mutex, then closes released contexts and
// reports transitions recorded while it was held.
func (n *Negotiator) unlockAndNotify() {
	notes, trash, fn := n.notes, n.trash, n.onState
	n.notes, n.trash = nil, nil
	n.mu.Unlock()

	for _, f := range trash {
		f()
	}
	if fn == nil {
		return
	}
	for _, s := range notes {
		fn(s)
	}
}

func (n *Negotiator) armTimerLocked(gen uint64) {
	n.stopTimerLocked()
	if n.cfg.HandshakeTimeout <= 0 {
		return
	}
	n.timer = time.AfterFunc(n.cfg.HandshakeTimeout, func() {
		n.mu.Lock()
		if gen == n.round.Load() && n.state.negotiating() {
			n.failLocked(ErrHandshakeTimeout)
		}
		n.unlockAndNotify()
	})
}

func (n *Negotiator) stopTimerLocked() {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

func (n *Negotiator) localCandidate(gen uint64, c webrtc.ICECandidateInit) {
	if gen != n.round.Load() || n.closed.Load() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), relayTimeout)
	defer cancel()
	if err := n.relay.SendCandidate(ctx, c); err != nil {
		n.logger.Warn().Err(err).Msg("forward ice candidate")
	}
}

func (n *Negotiator) inboundChannel(gen uint64, dc core.DataChannel) {
	if gen != n.round.Load() {
		return
	}
	n.mu.Lock()
	if gen != n.round.Load() {
		n.mu.Unlock()
		return
	}
	if dc.Label() != n.cfg.ChannelLabel || n.dc != nil {
		n.logger.Warn().Str("label", dc.Label()).Msg("extra data channel ignored")
		n.mu.Unlock()
		return
	}
	n.attachChannelLocked(dc, gen)
	if dc.ReadyState() == webrtc.DataChannelStateOpen {
		n.channelOpenLocked()
	}
	n.unlockAndNotify()
}

func (n *Negotiator) channelOpened(gen uint64) {
	if gen != n.round.Load() {
		return
	}
	n.mu.Lock()
	if gen == n.round.Load() {
		n.channelOpenLocked()
	}
	n.unlockAndNotify()
}

// channelOpenLocked enters Connected at most once per round.
func (n *Negotiator) channelOpenLocked() {
	switch n.state {
	case StateAnswerCreated, StateAnswerReceived:
		n.stopTimerLocked()
		n.setStateLocked(StateConnected)
	case StateConnected:
	default:
		n.logger.Debug().Str("state", n.state.String()).Msg("channel open outside handshake ignored")
	}
}

func (n *Negotiator) channelClosed(gen uint64) {
	if gen != n.round.Load() {
		return
	}
	n.mu.Lock()
	if gen == n.round.Load() && n.state != StateFailed {
		n.logger.Info().Str("peer", n.peer.SID).Msg("data channel closed")
		n.resetLocked()
		n.setStateLocked(StateIdle)
	}
	n.unlockAndNotify()
}

func (n *Negotiator) connectionState(gen uint64, s webrtc.PeerConnectionState) {
	if s != webrtc.PeerConnectionStateFailed || gen != n.round.Load() {
		return
	}
	n.mu.Lock()
	if gen == n.round.Load() && n.state != StateFailed {
		n.failLocked(ErrConnectionFailed)
	}
	n.unlockAndNotify()
}

func (n *Negotiator) deliver(gen uint64, msg webrtc.DataChannelMessage) {
	if gen != n.round.Load() {
		return
	}
	if !msg.IsString {
		n.logger.Warn().Int("bytes", len(msg.Data)).Msg("binary message dropped")
		return
	}
	n.mu.Lock()
	fn := n.onMessage
	n.mu.Unlock()
	if fn != nil {
		fn(Message{Text: string(msg.Data), Direction: DirectionPeer})
	}
}
