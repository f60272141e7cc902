package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Chat/internal/app/orch"
	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/dkeye/Chat/internal/protocol"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// SessionUsernameKey is where POST /api/session keeps the display name.
const SessionUsernameKey = "username"

type Options struct {
	SendBuffer       int
	ReadLimit        int64
	PingPeriod       time.Duration
	ChatRateLimit    int
	ChatRateInterval time.Duration
}

// SignalWSController serves the relay event socket. One controller is
// shared by every connection.
type SignalWSController struct {
	Orch    *orch.Orchestrator
	opts    Options
	limiter *RoomRateLimiter
}

func NewSignalWSController(o *orch.Orchestrator, opts Options) *SignalWSController {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 32
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = 54 * time.Second
	}
	if opts.ChatRateLimit <= 0 || opts.ChatRateInterval <= 0 {
		opts.ChatRateLimit, opts.ChatRateInterval = 5, 3*time.Second
	}
	return &SignalWSController{
		Orch:    o,
		opts:    opts,
		limiter: NewRoomRateLimiter(opts.ChatRateLimit, opts.ChatRateInterval),
	}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and starts the pumps. The session id is
// the client token; the display name comes from ?name=, then the cookie
// session, then "guest".
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(c.GetString("client_token"))
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("new WS connection")

	name := c.Query("name")
	if name == "" {
		if v, ok := sessions.Default(c).Get(SessionUsernameKey).(string); ok {
			name = v
		}
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.opts.SendBuffer),
	}

	prevName := ctl.Orch.Registry.Username(sid)
	if name != "" {
		if err := ctl.Orch.Registry.SetUsername(sid, name); err != nil {
			log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("ignoring bad display name")
		}
	}
	user := ctl.Orch.Registry.GetOrCreateUser(sid)
	sess := core.NewMemberSession(domain.NewMember(user)).UpdateSignal(conn)
	ctx, cancel := context.WithCancel(ctx)
	if left := ctl.Orch.Connect(sid, sess, cancel); left != "" {
		ctl.broadcastRoom(left, protocol.EventUserLeft,
			protocol.UserEvent{SID: string(sid), Username: prevName, Room: string(left)})
	}

	ctl.announceConnect(sid, conn)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sid, sess, conn)
}

func (ctl *SignalWSController) announceConnect(sid core.SessionID, conn *WsSignalConn) {
	username := ctl.Orch.Registry.Username(sid)
	ctl.sendEvent(conn, protocol.EventSession, protocol.Session{SID: string(sid), Username: username})
	ctl.broadcastAll(sid, protocol.EventUserConnected, protocol.UserEvent{SID: string(sid), Username: username})
	ctl.broadcastUserList()
}

func (ctl *SignalWSController) disconnect(sid core.SessionID, sess core.MemberSession) {
	username := ctl.Orch.Registry.Username(sid)
	room, ok := ctl.Orch.Disconnect(sid, sess)
	if !ok {
		return
	}
	ctl.limiter.Forget(domain.UserID(sid))
	if room != "" {
		ctl.broadcastRoom(room, protocol.EventUserLeft,
			protocol.UserEvent{SID: string(sid), Username: username, Room: string(room)})
	}
	ctl.broadcastAll(sid, protocol.EventUserDisconnected, protocol.UserEvent{SID: string(sid), Username: username})
	ctl.broadcastUserList()
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("disconnected")
}
