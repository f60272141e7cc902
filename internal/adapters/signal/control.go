package signal

import "github.com/dkeye/Chat/internal/protocol"

func (ctl *SignalWSController) handlePing(
	conn *WsSignalConn,
) {
	ctl.sendEvent(conn, protocol.EventPong, nil)
}
