package signal

import (
	"errors"

	"github.com/dkeye/Chat/internal/app/orch"
	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/protocol"
	"github.com/rs/zerolog/log"
)

// The relay never interprets descriptions or candidates; it validates the
// envelope, stamps the sender and forwards.

func (ctl *SignalWSController) handleOffer(
	sid core.SessionID,
	conn *WsSignalConn,
	env protocol.Envelope,
) {
	var p protocol.SessionDescription
	if !ctl.decode(conn, env, &p) {
		return
	}
	f, ok := encode(protocol.EventOffer, protocol.OfferIn{
		Offer:          p,
		SenderSID:      string(sid),
		SenderUsername: ctl.Orch.Registry.Username(sid),
	})
	if !ok {
		return
	}
	n := ctl.Orch.Fanout(sid, f)
	log.Info().Str("module", "signal").Str("sid", string(sid)).Int("recipients", n).Msg("offer forwarded")
	if n == 0 {
		ctl.sendError(conn, "no peers to receive the offer")
	}
}

func (ctl *SignalWSController) handleAnswer(
	sid core.SessionID,
	conn *WsSignalConn,
	env protocol.Envelope,
) {
	var p protocol.AnswerOut
	if !ctl.decode(conn, env, &p) {
		return
	}
	f, ok := encode(protocol.EventAnswer, protocol.AnswerIn{
		Answer:    p.Answer,
		SenderSID: string(sid),
	})
	if !ok {
		return
	}
	err := ctl.Orch.SendTo(core.SessionID(p.TargetSID), f)
	switch {
	case errors.Is(err, orch.ErrUnknownSession):
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("target", p.TargetSID).Msg("answer for unknown target")
		ctl.sendError(conn, "unknown target")
	case err != nil:
		log.Warn().Err(err).Str("module", "signal").Str("target", p.TargetSID).Msg("answer dropped")
	default:
		log.Info().Str("module", "signal").Str("sid", string(sid)).Str("target", p.TargetSID).Msg("answer forwarded")
	}
}

func (ctl *SignalWSController) handleCandidate(
	sid core.SessionID,
	conn *WsSignalConn,
	env protocol.Envelope,
) {
	var p protocol.Candidate
	if !ctl.decode(conn, env, &p) {
		return
	}
	p.SenderSID = string(sid)
	f, ok := encode(protocol.EventCandidate, p)
	if !ok {
		return
	}
	n := ctl.Orch.Fanout(sid, f)
	log.Debug().Str("module", "signal").Str("sid", string(sid)).Int("recipients", n).Msg("candidate forwarded")
}
