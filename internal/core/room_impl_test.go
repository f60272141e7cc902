package core

import (
	"errors"
	"testing"

	"github.com/dkeye/Chat/internal/domain"
)

type fakeSignal struct {
	frames []Frame
	full   bool
}

func (f *fakeSignal) TrySend(fr Frame) error {
	if f.full {
		return errors.New("full")
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeSignal) Close() {}

func newSession(id, name string, sc SignalConnection) MemberSession {
	u := &domain.User{ID: domain.UserID(id), Username: name}
	return NewMemberSession(domain.NewMember(u)).UpdateSignal(sc)
}

func TestRoomBroadcastSkipsSenderAndReportsDropped(t *testing.T) {
	room := NewRoomService(&domain.Room{ID: "r1", Name: "lobby"})
	a, b, c := &fakeSignal{}, &fakeSignal{}, &fakeSignal{full: true}
	room.AddMember("a", newSession("a", "alice", a))
	room.AddMember("b", newSession("b", "bob", b))
	room.AddMember("c", newSession("c", "carol", c))

	res := room.Broadcast("a", Frame("hi"))
	if res.SendTo != 1 {
		t.Fatalf("SendTo = %d, want 1", res.SendTo)
	}
	if len(res.Dropped) != 1 || res.Dropped[0].Meta().User().Username != "carol" {
		t.Fatalf("unexpected dropped %+v", res.Dropped)
	}
	if len(a.frames) != 0 || len(b.frames) != 1 {
		t.Fatalf("a=%d b=%d frames", len(a.frames), len(b.frames))
	}

	res = room.Broadcast("", Frame("all"))
	if res.SendTo != 2 || len(a.frames) != 1 {
		t.Fatalf("broadcast to all: SendTo=%d a=%d", res.SendTo, len(a.frames))
	}
}

func TestRoomMembersSnapshotSortedAndRemove(t *testing.T) {
	room := NewRoomService(&domain.Room{ID: "r1", Name: "lobby"})
	room.AddMember("b", newSession("b", "bob", &fakeSignal{}))
	room.AddMember("a", newSession("a", "alice", &fakeSignal{}))

	snap := room.MembersSnapshot()
	if len(snap) != 2 || snap[0].Username != "alice" || snap[1].Username != "bob" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	room.RemoveMember("a")
	room.RemoveMember("missing")
	if room.MemberCount() != 1 {
		t.Fatalf("MemberCount = %d, want 1", room.MemberCount())
	}
}
