package signal

import (
	"context"
	"time"

	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/dkeye/Chat/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, sid core.SessionID, sess core.MemberSession, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		c.Close()
		ctl.disconnect(sid, sess)
	}()

	pongWait := ctl.opts.PingPeriod * 10 / 9
	if ctl.opts.ReadLimit > 0 {
		c.conn.SetReadLimit(ctl.opts.ReadLimit)
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				}
				return
			}
			_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
			ctl.handleSignal(sid, c, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(sid core.SessionID, c *WsSignalConn, data []byte) {
	env, err := protocol.Open(data)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendError(c, "bad_payload")
		return
	}

	switch env.Event {
	case protocol.EventJoinRoom:
		ctl.handleJoin(sid, c, env)
	case protocol.EventLeaveRoom:
		ctl.handleLeave(sid, c, env)
	case protocol.EventSendMessage:
		ctl.handleSendMessage(sid, c, env)
	case protocol.EventPing:
		ctl.handlePing(c)
	case protocol.EventRename:
		ctl.handleRename(sid, c, env)
	case protocol.EventWhoAmI:
		ctl.handleWhoAmI(sid, c)
	case protocol.EventOffer:
		ctl.handleOffer(sid, c, env)
	case protocol.EventAnswer:
		ctl.handleAnswer(sid, c, env)
	case protocol.EventCandidate:
		ctl.handleCandidate(sid, c, env)
	default:
		log.Warn().Str("module", "signal").Str("event", string(env.Event)).Msg("unknown signal")
		ctl.sendError(c, "unknown event")
	}
}

// decode reports a bad payload to the sender and returns false.
func (ctl *SignalWSController) decode(c *WsSignalConn, env protocol.Envelope, v any) bool {
	if err := protocol.Decode(env.Data, v); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("event", string(env.Event)).Msg("bad payload")
		ctl.sendError(c, "bad_payload")
		return false
	}
	return true
}

func encode(event protocol.Event, payload any) (core.Frame, bool) {
	b, err := protocol.Encode(event, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("event", string(event)).Msg("encode")
		return nil, false
	}
	return core.Frame(b), true
}

func (ctl *SignalWSController) sendEvent(c core.SignalConnection, event protocol.Event, payload any) {
	f, ok := encode(event, payload)
	if !ok {
		return
	}
	if err := c.TrySend(f); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("event", string(event)).Msg("send dropped")
	}
}

func (ctl *SignalWSController) sendError(c core.SignalConnection, msg string) {
	ctl.sendEvent(c, protocol.EventError, protocol.ErrorPayload{Message: msg})
}

func (ctl *SignalWSController) broadcastAll(except core.SessionID, event protocol.Event, payload any) {
	if f, ok := encode(event, payload); ok {
		ctl.Orch.BroadcastAll(except, f)
	}
}

// broadcastRoom reaches every member of the room. Slow members are kicked
// and announced.
func (ctl *SignalWSController) broadcastRoom(room domain.RoomName, event protocol.Event, payload any) {
	f, ok := encode(event, payload)
	if !ok {
		return
	}
	for _, sid := range ctl.Orch.Publish(room, f) {
		ctl.broadcastRoom(room, protocol.EventUserLeft, protocol.UserEvent{
			SID:      string(sid),
			Username: ctl.Orch.Registry.Username(sid),
			Room:     string(room),
		})
	}
}

func (ctl *SignalWSController) broadcastUserList() {
	ctl.broadcastAll("", protocol.EventUpdateUserList, protocol.UserList(ctl.Orch.Registry.Usernames()))
}
