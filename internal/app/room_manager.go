package app

import (
	"sort"
	"sync"

	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/rs/zerolog/log"
)

type RoomManagerImpl struct {
	mu    sync.RWMutex
	rooms map[domain.RoomName]core.RoomService
}

func NewRoomManager() core.RoomManager {
	return &RoomManagerImpl{rooms: make(map[domain.RoomName]core.RoomService)}
}

// GetOrCreate opens a room on first use. Invalid names are rejected.
func (f *RoomManagerImpl) GetOrCreate(name domain.RoomName) (core.RoomService, error) {
	f.mu.RLock()
	room, ok := f.rooms[name]
	f.mu.RUnlock()
	if ok {
		return room, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getOrCreateLocked(name)
}

func (f *RoomManagerImpl) Enter(name domain.RoomName, sid core.SessionID, ms core.MemberSession) (core.RoomService, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, err := f.getOrCreateLocked(name)
	if err != nil {
		return nil, err
	}
	room.AddMember(sid, ms)
	return room, nil
}

func (f *RoomManagerImpl) Leave(name domain.RoomName, sid core.SessionID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[name]
	if !ok {
		return
	}
	room.RemoveMember(sid)
	if room.MemberCount() == 0 {
		f.stopLocked(name)
	}
}

func (f *RoomManagerImpl) getOrCreateLocked(name domain.RoomName) (core.RoomService, error) {
	if room, ok := f.rooms[name]; ok {
		return room, nil
	}
	meta, err := domain.NewRoom(name)
	if err != nil {
		return nil, err
	}
	room := core.NewRoomService(meta)
	f.rooms[name] = room
	log.Info().Str("module", "app.rooms").Str("room", string(name)).Str("id", string(meta.ID)).Msg("room created")
	return room, nil
}

func (f *RoomManagerImpl) GetRoom(name domain.RoomName) (core.RoomService, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	room, ok := f.rooms[name]
	return room, ok
}

// List is sorted by room name.
func (f *RoomManagerImpl) List() []core.RoomInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(f.rooms))
	for name, r := range f.rooms {
		out = append(out, core.RoomInfo{ID: r.Room().ID, Name: name, MemberCount: r.MemberCount()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (f *RoomManagerImpl) StopRoom(name domain.RoomName) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopLocked(name)
}

func (f *RoomManagerImpl) stopLocked(name domain.RoomName) {
	if _, ok := f.rooms[name]; ok {
		delete(f.rooms, name)
		log.Info().Str("module", "app.rooms").Str("room", string(name)).Msg("room stopped")
	}
}
