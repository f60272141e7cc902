package app

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
)

func bind(r *Registry, sid core.SessionID) core.MemberSession {
	sess := core.NewMemberSession(domain.NewMember(r.GetOrCreateUser(sid)))
	r.BindSignal(sid, sess, nil)
	return sess
}

func TestRegistryUsernames(t *testing.T) {
	r := NewRegistry()
	bind(r, "1")
	bind(r, "2")
	if err := r.SetUsername("1", "zed"); err != nil {
		t.Fatal(err)
	}
	if err := r.SetUsername("2", "amy"); err != nil {
		t.Fatal(err)
	}
	if err := r.SetUsername("2", ""); !errors.Is(err, domain.ErrUsernameEmpty) {
		t.Fatalf("empty name err = %v", err)
	}
	if got := r.Usernames(); !reflect.DeepEqual(got, []string{"amy", "zed"}) {
		t.Fatalf("usernames = %v", got)
	}
	// Offline users keep their name but are not listed.
	r.GetOrCreateUser("3")
	if got := r.Usernames(); len(got) != 2 {
		t.Fatalf("usernames = %v", got)
	}
	if r.Username("3") != domain.GuestUsername {
		t.Fatalf("guest name = %q", r.Username("3"))
	}
}

func TestRegistryRoomMates(t *testing.T) {
	r := NewRegistry()
	for _, sid := range []core.SessionID{"a", "b", "c"} {
		bind(r, sid)
	}
	r.UpdateRoom("a", "main")
	r.UpdateRoom("b", "main")

	mates := r.RoomMates("a")
	if len(mates) != 1 || mates[0].SID != "b" {
		t.Fatalf("mates = %+v", mates)
	}
	if r.RoomMates("c") != nil {
		t.Fatal("roomless session has mates")
	}
	if got := r.Online("a"); len(got) != 2 {
		t.Fatalf("online = %+v", got)
	}
	r.RemoveRoom("b")
	if len(r.RoomMates("a")) != 0 {
		t.Fatal("b still a room mate")
	}
}

func TestRegistryUnbindMatchesSession(t *testing.T) {
	r := NewRegistry()
	old := bind(r, "a")
	fresh := bind(r, "a")
	if r.Unbind("a", old) {
		t.Fatal("unbound with stale session")
	}
	if !r.Unbind("a", fresh) {
		t.Fatal("current session not unbound")
	}
	if r.Cancel("a") {
		t.Fatal("cancel on unbound sid")
	}
}

func TestRenameVisibleToRoomSnapshot(t *testing.T) {
	r := NewRegistry()
	rooms := NewRoomManager()
	sess := bind(r, "a")
	room, err := rooms.GetOrCreate("main")
	if err != nil {
		t.Fatal(err)
	}
	room.AddMember("a", sess)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if err := r.SetUsername("a", fmt.Sprintf("ann-%d", i)); err != nil {
				t.Error(err)
				return
			}
		}
	}()
	for i := 0; i < 200; i++ {
		if got := room.MembersSnapshot(); len(got) != 1 {
			t.Fatalf("members = %+v", got)
		}
	}
	wg.Wait()

	got := room.MembersSnapshot()
	if got[0].Username != "ann-199" || got[0].Username != r.Username("a") {
		t.Fatalf("snapshot = %+v, registry = %q", got, r.Username("a"))
	}
}

func TestRebindPicksUpRename(t *testing.T) {
	r := NewRegistry()
	stale := core.NewMemberSession(domain.NewMember(r.GetOrCreateUser("a")))
	if err := r.SetUsername("a", "ann"); err != nil {
		t.Fatal(err)
	}
	r.BindSignal("a", stale, nil)
	if got := stale.Meta().User().Username; got != "ann" {
		t.Fatalf("bound session sees %q", got)
	}
}
