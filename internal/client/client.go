// Package client is the terminal side of the chat: it turns typed lines into
// relay events and negotiator calls, and relay events into console output.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/Chat/internal/adapters/relayclient"
	"github.com/dkeye/Chat/internal/negotiator"
	"github.com/dkeye/Chat/internal/protocol"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// Relay is the part of the relay connection the command loop drives.
type Relay interface {
	JoinRoom(ctx context.Context, room string) error
	LeaveRoom(ctx context.Context, room string) error
	SendMessage(ctx context.Context, room, text string) error
	Rename(ctx context.Context, username string) error
	WhoAmI(ctx context.Context) error
}

// Peer is the negotiator as the client sees it.
type Peer interface {
	SetLocalID(id string)
	Initiate(ctx context.Context, peerID string) error
	HandleOffer(ctx context.Context, offer webrtc.SessionDescription, from negotiator.Peer) error
	HandleAnswer(answer webrtc.SessionDescription, fromSID string) error
	HandleCandidate(c webrtc.ICECandidateInit, fromSID string)
	Send(text string) error
	Reset()
	State() negotiator.State
	Peer() negotiator.Peer
	OnMessage(func(negotiator.Message))
	OnStateChange(func(negotiator.State))
}

type Options struct {
	// Room is joined as soon as the relay assigns a session.
	Room string
}

type Client struct {
	relay   Relay
	peer    Peer
	console Console
	opts    Options
	logger  zerolog.Logger

	mu       sync.Mutex
	sid      string
	username string
	room     string
	users    []string
}

func New(relay Relay, peer Peer, console Console, opts Options, logger zerolog.Logger) *Client {
	c := &Client{
		relay:   relay,
		peer:    peer,
		console: console,
		opts:    opts,
		logger:  logger.With().Str("module", "client").Logger(),
	}
	peer.OnMessage(c.onPeerMessage)
	peer.OnStateChange(c.onPeerState)
	return c
}

const helpText = `commands:
  <text>            send to the current room
  /join <room>      join a room (leaves the current one)
  /leave            leave the current room
  /nick <name>      change display name
  /whoami           show session info
  /users            list online users
  /connect [sid]    open a direct channel (to sid, or to whoever answers)
  /p2p <text>       send over the direct channel
  /hangup           close the direct channel
  /quit             exit`

// Run reads commands from in until EOF, /quit or ctx is done.
func (c *Client) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if c.Execute(ctx, line) {
				return nil
			}
		}
	}
}

// Execute runs one input line. It reports whether the user asked to quit.
func (c *Client) Execute(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		c.say(ctx, line)
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		c.console.Append(helpText)
	case "/join":
		if arg == "" {
			c.console.Notify(NoticeWarning, "usage: /join <room>")
			return false
		}
		c.report(c.relay.JoinRoom(ctx, arg))
	case "/leave":
		room := c.currentRoom()
		if room == "" {
			c.console.Notify(NoticeWarning, "not in a room")
			return false
		}
		c.report(c.relay.LeaveRoom(ctx, room))
	case "/nick":
		if arg == "" {
			c.console.Notify(NoticeWarning, "usage: /nick <name>")
			return false
		}
		c.report(c.relay.Rename(ctx, arg))
	case "/whoami":
		c.report(c.relay.WhoAmI(ctx))
	case "/users":
		c.mu.Lock()
		users := strings.Join(c.users, ", ")
		c.mu.Unlock()
		c.console.Append("online: " + users)
	case "/connect":
		c.connect(ctx, arg)
	case "/p2p":
		c.direct(arg)
	case "/hangup":
		c.peer.Reset()
	default:
		c.console.Notify(NoticeWarning, fmt.Sprintf("unknown command %s, try /help", cmd))
	}
	return false
}

func (c *Client) say(ctx context.Context, text string) {
	room := c.currentRoom()
	if room == "" {
		c.console.Notify(NoticeWarning, "join a room first: /join <room>")
		return
	}
	c.report(c.relay.SendMessage(ctx, room, text))
}

func (c *Client) connect(ctx context.Context, sid string) {
	err := c.peer.Initiate(ctx, sid)
	switch {
	case err == nil:
		c.console.Notify(NoticeInfo, "offer sent, waiting for an answer")
	case errors.Is(err, negotiator.ErrAlreadyInProgress):
		c.console.Notify(NoticeWarning, "a direct connection is already being set up; /hangup first")
	default:
		c.console.Notify(NoticeError, "could not start direct connection: "+err.Error())
	}
}

func (c *Client) direct(text string) {
	if text == "" {
		c.console.Notify(NoticeWarning, "usage: /p2p <text>")
		return
	}
	err := c.peer.Send(text)
	switch {
	case err == nil:
		c.console.Append("[p2p] me: " + text)
	case errors.Is(err, negotiator.ErrChannelNotReady):
		c.console.Notify(NoticeWarning, "direct channel not ready; use /connect")
	default:
		c.console.Notify(NoticeError, "direct send failed: "+err.Error())
	}
}

func (c *Client) report(err error) {
	if err != nil {
		c.logger.Warn().Err(err).Msg("relay request")
		c.console.Notify(NoticeError, err.Error())
	}
}

func (c *Client) currentRoom() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *Client) isSelf(sid string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sid != "" && sid == c.sid
}

// Handlers routes relay events; ctx bounds the relay writes they trigger.
func (c *Client) Handlers(ctx context.Context) relayclient.Handlers {
	return relayclient.Handlers{
		Session:          func(p protocol.Session) { c.onSession(ctx, p) },
		WhoAmI:           c.onWhoAmI,
		Offer:            func(p protocol.OfferIn) { c.onOffer(ctx, p) },
		Answer:           c.onAnswer,
		Candidate:        c.onCandidate,
		Message:          c.onChat,
		UserList:         c.onUserList,
		UserConnected:    func(p protocol.UserEvent) { c.onPresence("online", p) },
		UserDisconnected: func(p protocol.UserEvent) { c.onPresence("offline", p) },
		UserJoined:       c.onJoined,
		UserLeft:         c.onLeft,
		Error: func(p protocol.ErrorPayload) {
			c.console.Notify(NoticeError, "relay: "+p.Message)
		},
	}
}

func (c *Client) onSession(ctx context.Context, p protocol.Session) {
	c.mu.Lock()
	c.sid, c.username = p.SID, p.Username
	c.mu.Unlock()
	c.peer.SetLocalID(p.SID)
	c.console.Notify(NoticeSuccess, fmt.Sprintf("connected as %s (%s)", p.Username, p.SID))
	if c.opts.Room != "" {
		c.report(c.relay.JoinRoom(ctx, c.opts.Room))
	}
}

func (c *Client) onWhoAmI(p protocol.WhoAmI) {
	c.mu.Lock()
	c.username = p.Username
	c.mu.Unlock()
	where := "no room"
	if p.Room != "" {
		where = "room " + p.Room
	}
	c.console.Notify(NoticeInfo, fmt.Sprintf("you are %s (%s), %s", p.Username, p.SID, where))
}

func (c *Client) onOffer(ctx context.Context, p protocol.OfferIn) {
	desc, err := p.Offer.ToPion()
	if err != nil {
		c.logger.Warn().Err(err).Msg("offer dropped")
		return
	}
	from := negotiator.Peer{SID: p.SenderSID, Username: p.SenderUsername}
	err = c.peer.HandleOffer(ctx, desc, from)
	switch {
	case err == nil:
		c.console.Notify(NoticeInfo, fmt.Sprintf("answering direct connection from %s", displayName(from)))
	case errors.Is(err, negotiator.ErrAlreadyInProgress):
		c.console.Notify(NoticeWarning, fmt.Sprintf("busy, ignored direct connection from %s", displayName(from)))
	default:
		c.console.Notify(NoticeError, "direct connection failed: "+err.Error())
	}
}

func (c *Client) onAnswer(p protocol.AnswerIn) {
	desc, err := p.Answer.ToPion()
	if err != nil {
		c.logger.Warn().Err(err).Msg("answer dropped")
		return
	}
	if err := c.peer.HandleAnswer(desc, p.SenderSID); err != nil {
		c.console.Notify(NoticeError, "direct connection failed: "+err.Error())
	}
}

func (c *Client) onCandidate(p protocol.Candidate) {
	c.peer.HandleCandidate(p.ToPion(), p.SenderSID)
}

func (c *Client) onChat(p protocol.ChatMessage) {
	stamp := p.Timestamp
	if t, err := time.Parse(time.RFC3339, p.Timestamp); err == nil {
		stamp = t.Local().Format("15:04")
	}
	c.console.Append(fmt.Sprintf("%s [%s] %s: %s", stamp, p.Room, p.Sender, p.Message))
}

func (c *Client) onUserList(p protocol.UserList) {
	users := append([]string(nil), p...)
	sort.Strings(users)
	c.mu.Lock()
	c.users = users
	c.mu.Unlock()
}

func (c *Client) onPresence(what string, p protocol.UserEvent) {
	if c.isSelf(p.SID) {
		return
	}
	c.console.Notify(NoticeInfo, fmt.Sprintf("%s is %s", p.Username, what))
}

func (c *Client) onJoined(p protocol.UserEvent) {
	if c.isSelf(p.SID) {
		c.mu.Lock()
		c.room = p.Room
		c.mu.Unlock()
		c.console.Notify(NoticeSuccess, "joined "+p.Room)
		return
	}
	c.console.Notify(NoticeInfo, fmt.Sprintf("%s (%s) joined %s", p.Username, p.SID, p.Room))
}

func (c *Client) onLeft(p protocol.UserEvent) {
	if c.isSelf(p.SID) {
		c.mu.Lock()
		if c.room == p.Room {
			c.room = ""
		}
		c.mu.Unlock()
		c.console.Notify(NoticeInfo, "left "+p.Room)
		return
	}
	c.console.Notify(NoticeInfo, fmt.Sprintf("%s left %s", p.Username, p.Room))
}

func (c *Client) onPeerMessage(m negotiator.Message) {
	c.console.Append(fmt.Sprintf("[p2p] %s: %s", displayName(c.peer.Peer()), m.Text))
}

func (c *Client) onPeerState(s negotiator.State) {
	switch s {
	case negotiator.StateConnected:
		c.console.Notify(NoticeSuccess, fmt.Sprintf("direct channel open with %s", displayName(c.peer.Peer())))
	case negotiator.StateFailed:
		c.console.Notify(NoticeError, "direct connection failed; use /connect to try again")
	case negotiator.StateIdle:
		c.console.Notify(NoticeInfo, "direct channel closed")
	default:
		c.logger.Debug().Str("state", s.String()).Msg("negotiation progress")
	}
}

func displayName(p negotiator.Peer) string {
	switch {
	case p.Username != "":
		return p.Username
	case p.SID != "":
		return p.SID
	default:
		return "peer"
	}
}
