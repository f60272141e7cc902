// Package relayclient speaks the relay's WebSocket event protocol from the
// peer's side. It carries negotiation metadata for the negotiator and chat
// events for the terminal client.
package relayclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

const writeWait = 5 * time.Second

var ErrClosed = errors.New("relay connection closed")

// Handlers receive decoded and validated inbound events. Nil handlers skip
// the event.
type Handlers struct {
	Session   func(protocol.Session)
	WhoAmI    func(protocol.WhoAmI)
	Offer     func(protocol.OfferIn)
	Answer    func(protocol.AnswerIn)
	Candidate func(protocol.Candidate)
	Message   func(protocol.ChatMessage)
	UserList  func(protocol.UserList)

	UserConnected    func(protocol.UserEvent)
	UserDisconnected func(protocol.UserEvent)
	UserJoined       func(protocol.UserEvent)
	UserLeft         func(protocol.UserEvent)

	Error func(protocol.ErrorPayload)
}

type Client struct {
	conn   *websocket.Conn
	logger zerolog.Logger

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

var _ core.SignalRelay = (*Client)(nil)

// SignalURL appends the display name to the relay's signal endpoint.
func SignalURL(base, username string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("relay: bad url %q: %w", base, err)
	}
	if username != "" {
		q := u.Query()
		q.Set("name", username)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func Dial(ctx context.Context, rawURL string, logger zerolog.Logger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("relay: dial %s: %w", rawURL, err)
	}
	logger = logger.With().Str("module", "relay").Logger()
	logger.Info().Str("url", rawURL).Msg("connected")
	return &Client{conn: conn, logger: logger}, nil
}

// Emit validates payload and writes one envelope. Writes are serialized.
func (c *Client) Emit(ctx context.Context, event protocol.Event, payload any) error {
	if payload != nil {
		if err := protocol.Validate(payload); err != nil {
			return err
		}
	}
	frame, err := protocol.Encode(event, payload)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("relay: set deadline: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("relay: write %s: %w", event, err)
	}
	c.logger.Debug().Str("event", string(event)).Msg("sent")
	return nil
}

func (c *Client) SendOffer(ctx context.Context, offer webrtc.SessionDescription) error {
	return c.Emit(ctx, protocol.EventOffer, protocol.DescriptionFromPion(offer))
}

func (c *Client) SendAnswer(ctx context.Context, answer webrtc.SessionDescription, targetSID string) error {
	return c.Emit(ctx, protocol.EventAnswer, protocol.AnswerOut{
		Answer:    protocol.DescriptionFromPion(answer),
		TargetSID: targetSID,
	})
}

func (c *Client) SendCandidate(ctx context.Context, candidate webrtc.ICECandidateInit) error {
	return c.Emit(ctx, protocol.EventCandidate, protocol.CandidateFromPion(candidate))
}

func (c *Client) JoinRoom(ctx context.Context, room string) error {
	return c.Emit(ctx, protocol.EventJoinRoom, protocol.JoinRoom{Room: room})
}

func (c *Client) LeaveRoom(ctx context.Context, room string) error {
	return c.Emit(ctx, protocol.EventLeaveRoom, protocol.LeaveRoom{Room: room})
}

func (c *Client) SendMessage(ctx context.Context, room, text string) error {
	return c.Emit(ctx, protocol.EventSendMessage, protocol.SendMessage{Room: room, Message: text})
}

func (c *Client) Rename(ctx context.Context, username string) error {
	return c.Emit(ctx, protocol.EventRename, protocol.Rename{Username: username})
}

func (c *Client) WhoAmI(ctx context.Context) error {
	return c.Emit(ctx, protocol.EventWhoAmI, nil)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.Emit(ctx, protocol.EventPing, nil)
}

// Run reads events until the connection ends or ctx is done. It returns nil
// after Close or a normal close from the relay.
func (c *Client) Run(ctx context.Context, h Handlers) error {
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if c.isClosed() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info().Msg("relay closed")
				return nil
			}
			return fmt.Errorf("relay: read: %w", err)
		}
		c.dispatch(h, data)
	}
}

func (c *Client) dispatch(h Handlers, data []byte) {
	env, err := protocol.Open(data)
	if err != nil {
		c.logger.Warn().Err(err).Msg("malformed frame dropped")
		return
	}
	c.logger.Debug().Str("event", string(env.Event)).Msg("received")

	switch env.Event {
	case protocol.EventSession:
		deliver(c, env, h.Session)
	case protocol.EventWhoAmI:
		deliver(c, env, h.WhoAmI)
	case protocol.EventOffer:
		deliver(c, env, h.Offer)
	case protocol.EventAnswer:
		deliver(c, env, h.Answer)
	case protocol.EventCandidate:
		deliver(c, env, h.Candidate)
	case protocol.EventReceiveMessage:
		deliver(c, env, h.Message)
	case protocol.EventUpdateUserList:
		deliver(c, env, h.UserList)
	case protocol.EventUserConnected:
		deliver(c, env, h.UserConnected)
	case protocol.EventUserDisconnected:
		deliver(c, env, h.UserDisconnected)
	case protocol.EventUserJoined:
		deliver(c, env, h.UserJoined)
	case protocol.EventUserLeft:
		deliver(c, env, h.UserLeft)
	case protocol.EventError:
		deliver(c, env, h.Error)
	case protocol.EventPong:
	default:
		c.logger.Warn().Str("event", string(env.Event)).Msg("unknown event")
	}
}

func deliver[T any](c *Client, env protocol.Envelope, fn func(T)) {
	var payload T
	if err := protocol.Decode(env.Data, &payload); err != nil {
		c.logger.Warn().Err(err).Str("event", string(env.Event)).Msg("malformed payload dropped")
		return
	}
	if fn != nil {
		fn(payload)
	}
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close sends a close frame and tears down the socket.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		_ = c.conn.SetWriteDeadline(time.Now().Add(time.Second))
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.mu.Unlock()
		err = c.conn.Close()
	})
	return err
}
