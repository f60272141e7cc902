package app

import (
	"errors"
	"sync"
	"testing"

	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
)

func guestSession(sid string) core.MemberSession {
	return core.NewMemberSession(domain.NewMember(domain.NewGuest(domain.UserID(sid))))
}

func TestEnterRacingLastLeave(t *testing.T) {
	for i := 0; i < 500; i++ {
		rm := NewRoomManager()
		if _, err := rm.Enter("main", "b", guestSession("b")); err != nil {
			t.Fatal(err)
		}

		var (
			wg     sync.WaitGroup
			joined core.RoomService
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			rm.Leave("main", "b")
		}()
		go func() {
			defer wg.Done()
			joined, _ = rm.Enter("main", "a", guestSession("a"))
		}()
		wg.Wait()

		live, ok := rm.GetRoom("main")
		if !ok || live != joined {
			t.Fatalf("iteration %d: joiner left in a stopped room", i)
		}
		if live.MemberCount() != 1 {
			t.Fatalf("iteration %d: members = %d", i, live.MemberCount())
		}
	}
}

func TestLeaveStopsEmptyRoom(t *testing.T) {
	rm := NewRoomManager()
	if _, err := rm.Enter("main", "a", guestSession("a")); err != nil {
		t.Fatal(err)
	}
	if _, err := rm.Enter("main", "b", guestSession("b")); err != nil {
		t.Fatal(err)
	}
	rm.Leave("main", "a")
	if _, ok := rm.GetRoom("main"); !ok {
		t.Fatal("room stopped with a member left")
	}
	rm.Leave("main", "b")
	if _, ok := rm.GetRoom("main"); ok {
		t.Fatal("empty room still listed")
	}
	rm.Leave("gone", "b")

	if _, err := rm.Enter("", "a", guestSession("a")); !errors.Is(err, domain.ErrRoomNameEmpty) {
		t.Fatalf("empty name err = %v", err)
	}
}
