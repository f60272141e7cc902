package orch

import (
	"github.com/dkeye/Chat/internal/app"
	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/rs/zerolog/log"
)

// Join moves sid into roomName, leaving its current room first. It returns
// the room left, if any.
func (o *Orchestrator) Join(sid core.SessionID, roomName domain.RoomName) (core.RoomService, domain.RoomName, error) {
	session, ok := o.Registry.GetSession(sid)
	if !ok {
		return nil, "", ErrUnknownSession
	}
	if err := domain.ValidateRoomName(roomName); err != nil {
		return nil, "", err
	}

	from, _, inRoom := o.Registry.RoomOf(sid)
	if inRoom && from == roomName {
		if room, ok := o.Rooms.GetRoom(roomName); ok {
			return room, "", nil
		}
	}
	if inRoom {
		o.KickBySID(sid)
		log.Info().Str("module", "app.orch").Str("sid", string(sid)).Str("from_room", string(from)).Msg("left previous room")
	}
	room, err := o.Rooms.Enter(roomName, sid, session)
	if err != nil {
		return nil, "", err
	}
	o.Registry.UpdateRoom(sid, roomName)
	log.Info().Str("module", "app.orch").Str("sid", string(sid)).Str("room", string(roomName)).Msg("added to room")
	return room, from, nil
}

// KickBySID removes sid from its room. Empty rooms are stopped.
func (o *Orchestrator) KickBySID(sid core.SessionID) (domain.RoomName, bool) {
	roomName, _, ok := o.Registry.RoomOf(sid)
	if !ok {
		return "", false
	}
	o.Rooms.Leave(roomName, sid)
	o.Registry.RemoveRoom(sid)
	return roomName, true
}

// Publish broadcasts to the whole room, sender included, and applies the
// backpressure policy. It returns the sessions kicked for being slow.
func (o *Orchestrator) Publish(roomName domain.RoomName, data core.Frame) []core.SessionID {
	room, ok := o.Rooms.GetRoom(roomName)
	if !ok {
		return nil
	}
	res := room.Broadcast("", data)
	if o.Policy == nil || len(res.Dropped) == 0 {
		return nil
	}
	var kicked []core.SessionID
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(room, slow) {
		case app.KickMember:
			for _, snap := range o.Registry.MembersOfRoom(roomName) {
				if snap.Session == slow {
					o.KickBySID(snap.SID)
					kicked = append(kicked, snap.SID)
					log.Warn().Str("module", "app.orch").Str("sid", string(snap.SID)).Str("room", string(roomName)).Msg("slow member kicked")
				}
			}
		case app.DropFrame, app.NoAction:
		}
	}
	return kicked
}

// EvictRoom empties the room and stops it. It returns the evicted sessions.
func (o *Orchestrator) EvictRoom(name domain.RoomName) []core.SessionID {
	var out []core.SessionID
	for _, snap := range o.Registry.MembersOfRoom(name) {
		o.KickBySID(snap.SID)
		out = append(out, snap.SID)
	}
	o.Rooms.StopRoom(name)
	return out
}
