package signal

import (
	"time"

	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/dkeye/Chat/internal/protocol"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleJoin(
	sid core.SessionID,
	conn *WsSignalConn,
	env protocol.Envelope,
) {
	var p protocol.JoinRoom
	if !ctl.decode(conn, env, &p) {
		return
	}
	name := domain.RoomName(p.Room)

	_, left, err := ctl.Orch.Join(sid, name)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("room", p.Room).Msg("join failed")
		ctl.sendError(conn, err.Error())
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.Room).Msg("join")

	username := ctl.Orch.Registry.Username(sid)
	if left != "" {
		ctl.broadcastRoom(left, protocol.EventUserLeft,
			protocol.UserEvent{SID: string(sid), Username: username, Room: string(left)})
	}
	ctl.broadcastRoom(name, protocol.EventUserJoined,
		protocol.UserEvent{SID: string(sid), Username: username, Room: p.Room})
}

// handleLeave leaves the current room; the connection stays open.
func (ctl *SignalWSController) handleLeave(
	sid core.SessionID,
	conn *WsSignalConn,
	env protocol.Envelope,
) {
	var p protocol.LeaveRoom
	if !ctl.decode(conn, env, &p) {
		return
	}
	current, _, ok := ctl.Orch.Registry.RoomOf(sid)
	if !ok || (p.Room != "" && domain.RoomName(p.Room) != current) {
		ctl.sendError(conn, "not in room")
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", string(current)).Msg("leave")
	ctl.Orch.KickBySID(sid)

	ev := protocol.UserEvent{SID: string(sid), Username: ctl.Orch.Registry.Username(sid), Room: string(current)}
	ctl.sendEvent(conn, protocol.EventUserLeft, ev)
	ctl.broadcastRoom(current, protocol.EventUserLeft, ev)
}

func (ctl *SignalWSController) handleSendMessage(
	sid core.SessionID,
	conn *WsSignalConn,
	env protocol.Envelope,
) {
	var p protocol.SendMessage
	if !ctl.decode(conn, env, &p) {
		return
	}
	current, _, ok := ctl.Orch.Registry.RoomOf(sid)
	if !ok || domain.RoomName(p.Room) != current {
		ctl.sendError(conn, "not in room")
		return
	}
	if !ctl.limiter.Allow(domain.UserID(sid)) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("chat rate limited")
		ctl.sendError(conn, "rate limit exceeded")
		return
	}

	msg, err := domain.NewMessage(current, ctl.Orch.Registry.Username(sid), p.Message, time.Now().UTC())
	if err != nil {
		ctl.sendError(conn, err.Error())
		return
	}
	ctl.broadcastRoom(current, protocol.EventReceiveMessage, protocol.ChatMessage{
		Room:      string(msg.Room),
		Sender:    msg.Sender,
		Message:   msg.Text,
		Timestamp: msg.SentAt.Format(time.RFC3339),
	})
}
