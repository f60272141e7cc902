package negotiator_test

import (
	"context"
	"testing"
	"time"

	"github.com/dkeye/Chat/internal/adapters/rtc"
	"github.com/dkeye/Chat/internal/negotiator"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// pipe delivers one side's signaling to the other in order, on its own
// goroutine, the way a relay socket would.
type pipe struct {
	from string
	to   *negotiator.Negotiator
	q    chan func()
}

func newPipe(t *testing.T, from string) *pipe {
	p := &pipe{from: from, q: make(chan func(), 256)}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for f := range p.q {
			f()
		}
	}()
	t.Cleanup(func() {
		close(p.q)
		<-done
	})
	return p
}

func (p *pipe) SendOffer(_ context.Context, offer webrtc.SessionDescription) error {
	p.q <- func() {
		_ = p.to.HandleOffer(context.Background(), offer, negotiator.Peer{SID: p.from})
	}
	return nil
}

func (p *pipe) SendAnswer(_ context.Context, answer webrtc.SessionDescription, _ string) error {
	p.q <- func() { _ = p.to.HandleAnswer(answer, p.from) }
	return nil
}

func (p *pipe) SendCandidate(_ context.Context, c webrtc.ICECandidateInit) error {
	p.q <- func() { p.to.HandleCandidate(c, p.from) }
	return nil
}

func waitState(t *testing.T, n *negotiator.Negotiator, want negotiator.State) {
	t.Helper()
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		if n.State() == want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("state = %s, want %s", n.State(), want)
}

func TestLoopbackHandshakeDeliversOnce(t *testing.T) {
	factory := rtc.NewFactory(rtc.ConfigFromURLs(nil), zerolog.Nop())
	cfg := negotiator.Config{HandshakeTimeout: 20 * time.Second}

	toCallee := newPipe(t, "caller")
	toCaller := newPipe(t, "callee")

	callerCfg, calleeCfg := cfg, cfg
	callerCfg.LocalID, calleeCfg.LocalID = "caller", "callee"
	caller := negotiator.New(callerCfg, factory.New, toCallee, zerolog.Nop())
	callee := negotiator.New(calleeCfg, factory.New, toCaller, zerolog.Nop())
	toCallee.to, toCaller.to = callee, caller
	t.Cleanup(caller.Close)
	t.Cleanup(callee.Close)

	got := make(chan negotiator.Message, 4)
	callee.OnMessage(func(m negotiator.Message) { got <- m })

	if err := caller.Initiate(context.Background(), "callee"); err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	waitState(t, caller, negotiator.StateConnected)
	waitState(t, callee, negotiator.StateConnected)

	if callee.Role() != negotiator.RoleCallee || callee.Peer().SID != "caller" {
		t.Fatalf("callee role=%s peer=%+v", callee.Role(), callee.Peer())
	}

	if err := caller.Send("hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case m := <-got:
		if m.Text != "hello" || m.Direction != negotiator.DirectionPeer {
			t.Fatalf("message = %+v", m)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message not delivered")
	}
	select {
	case m := <-got:
		t.Fatalf("duplicate delivery: %+v", m)
	case <-time.After(200 * time.Millisecond):
	}
}
