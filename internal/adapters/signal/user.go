package signal

import (
	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/protocol"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleRename(
	sid core.SessionID,
	conn *WsSignalConn,
	env protocol.Envelope,
) {
	var p protocol.Rename
	if !ctl.decode(conn, env, &p) {
		return
	}
	if err := ctl.Orch.Registry.SetUsername(sid, p.Username); err != nil {
		ctl.sendError(conn, "invalid_name")
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("name", p.Username).Msg("rename")
	ctl.handleWhoAmI(sid, conn)
	ctl.broadcastUserList()
}

func (ctl *SignalWSController) handleWhoAmI(
	sid core.SessionID,
	conn *WsSignalConn,
) {
	resp := protocol.WhoAmI{
		SID:      string(sid),
		Username: ctl.Orch.Registry.Username(sid),
	}
	if room, _, ok := ctl.Orch.Registry.RoomOf(sid); ok {
		resp.Room = string(room)
	}
	ctl.sendEvent(conn, protocol.EventWhoAmI, resp)
}
