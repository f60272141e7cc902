package core

import (
	"github.com/dkeye/Chat/internal/domain"
)

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []MemberSession
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	ID       domain.UserID `json:"id"`
	Username string        `json:"username"`
}

// RoomService is the core-facing API of a room.
// It owns the membership set but never touches transport resources.
type RoomService interface {
	Room() *domain.Room
	MemberCount() int
	MembersSnapshot() []MemberDTO

	AddMember(sid SessionID, ms MemberSession)
	RemoveMember(sid SessionID)
	// Broadcast sends data to every member except the given sid.
	// An empty sid reaches everyone.
	Broadcast(except SessionID, data Frame) PublishResult
}

type RoomInfo struct {
	ID          domain.RoomID   `json:"id"`
	Name        domain.RoomName `json:"name"`
	MemberCount int             `json:"client_count"`
}

type RoomManager interface {
	GetOrCreate(name domain.RoomName) (RoomService, error)
	// Enter opens the room if needed and adds the member in one step, so a
	// concurrent Leave cannot stop the room in between.
	Enter(name domain.RoomName, sid SessionID, ms MemberSession) (RoomService, error)
	// Leave removes the member and stops the room once it is empty.
	Leave(name domain.RoomName, sid SessionID)
	GetRoom(name domain.RoomName) (RoomService, bool)
	List() []RoomInfo
	StopRoom(name domain.RoomName)
}
