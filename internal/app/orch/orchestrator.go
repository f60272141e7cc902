package orch

import (
	"context"
	"errors"

	"github.com/dkeye/Chat/internal/app"
	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrUnknownSession = errors.New("unknown session")

type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomManager
	Policy   app.Policy
}

// Connect binds a fresh socket. A previous socket under the same sid is
// cancelled and its room membership dropped; left names that room.
func (o *Orchestrator) Connect(sid core.SessionID, sess core.MemberSession, cancel context.CancelFunc) (left domain.RoomName) {
	if _, ok := o.Registry.GetSession(sid); ok {
		left, _ = o.KickBySID(sid)
		o.Registry.Cancel(sid)
		log.Info().Str("module", "app.orch").Str("sid", string(sid)).Str("left", string(left)).Msg("replaced previous connection")
	}
	o.Registry.BindSignal(sid, sess, cancel)
	return left
}

// Disconnect forgets sess and reports the room it was in. ok is false when
// sid has already been rebound to a newer session.
func (o *Orchestrator) Disconnect(sid core.SessionID, sess core.MemberSession) (left domain.RoomName, ok bool) {
	current, bound := o.Registry.GetSession(sid)
	if !bound || current != sess {
		return "", false
	}
	left, _ = o.KickBySID(sid)
	o.Registry.Unbind(sid, sess)
	return left, true
}

// SendTo queues one frame for sid.
func (o *Orchestrator) SendTo(sid core.SessionID, data core.Frame) error {
	sess, ok := o.Registry.GetSession(sid)
	if !ok {
		return ErrUnknownSession
	}
	sc := sess.Signal()
	if sc == nil {
		return ErrUnknownSession
	}
	return sc.TrySend(data)
}

// Fanout delivers to sid's room mates, or to every other online session when
// sid is in no room. It returns how many sessions accepted the frame.
func (o *Orchestrator) Fanout(sid core.SessionID, data core.Frame) int {
	targets := o.Registry.RoomMates(sid)
	if _, _, inRoom := o.Registry.RoomOf(sid); !inRoom {
		targets = o.Registry.Online(sid)
	}
	return o.deliver(targets, data)
}

// BroadcastAll reaches every online session except the given one.
func (o *Orchestrator) BroadcastAll(except core.SessionID, data core.Frame) int {
	return o.deliver(o.Registry.Online(except), data)
}

func (o *Orchestrator) deliver(targets []app.SessionSnap, data core.Frame) int {
	sent := 0
	for _, t := range targets {
		sc := t.Session.Signal()
		if sc == nil {
			continue
		}
		if err := sc.TrySend(data); err != nil {
			log.Warn().Err(err).Str("module", "app.orch").Str("sid", string(t.SID)).Msg("frame dropped")
			continue
		}
		sent++
	}
	return sent
}
