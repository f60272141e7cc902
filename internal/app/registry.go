package app

import (
	"context"
	"sort"
	"sync"

	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	RoomName domain.RoomName
	Session  core.MemberSession
	Cancel   context.CancelFunc
}

// Registry tracks who is online and which room each session sits in.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
	users    map[core.SessionID]*domain.User
}

// SessionSnap is a point-in-time view of one online session.
type SessionSnap struct {
	SID     core.SessionID
	Session core.MemberSession
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
		users:    make(map[core.SessionID]*domain.User),
	}
}

func (r *Registry) GetOrCreateUser(sid core.SessionID) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[sid]; ok {
		return u
	}
	u := domain.NewGuest(domain.UserID(sid))
	r.users[sid] = u
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("created new user")
	return u
}

func (r *Registry) SetUsername(sid core.SessionID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[sid]
	if !ok {
		u = domain.NewGuest(domain.UserID(sid))
		r.users[sid] = u
	}
	renamed, err := u.WithUsername(name)
	if err != nil {
		return err
	}
	r.users[sid] = renamed
	if e, ok := r.sessions[sid]; ok {
		e.Session.Meta().SetUser(renamed)
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("username", name).Msg("updated username")
	return nil
}

func (r *Registry) Username(sid core.SessionID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.users[sid]; ok {
		return u.Username
	}
	return ""
}

// BindSignal registers an online session. A previous session under the same
// sid is replaced; callers cancel it first.
func (r *Registry) BindSignal(sid core.SessionID, sess core.MemberSession, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[sid]; ok {
		sess.Meta().SetUser(u)
	}
	r.sessions[sid] = &sessionEntry{Session: sess, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound signal")
}

func (r *Registry) GetSession(sid core.SessionID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Session, true
	}
	return nil, false
}

// Unbind removes sid only while it still maps to sess, so a stale socket
// closing late cannot drop its replacement.
func (r *Registry) Unbind(sid core.SessionID, sess core.MemberSession) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok || e.Session != sess {
		return false
	}
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
	return true
}

func (r *Registry) RoomOf(sid core.SessionID) (domain.RoomName, core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[sid]
	if !ok || entry.RoomName == "" {
		return "", nil, false
	}
	return entry.RoomName, entry.Session, true
}

func (r *Registry) UpdateRoom(sid core.SessionID, newRoom domain.RoomName) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[sid]
	if !ok {
		return false
	}
	entry.RoomName = newRoom
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(newRoom)).Msg("updated room")
	return true
}

func (r *Registry) RemoveRoom(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.sessions[sid]; ok {
		entry.RoomName = ""
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("removed room association")
}

func (r *Registry) MembersOfRoom(name domain.RoomName) []SessionSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SessionSnap, 0, len(r.sessions))
	for sid, e := range r.sessions {
		if e.RoomName == name {
			out = append(out, SessionSnap{SID: sid, Session: e.Session})
		}
	}
	return out
}

// RoomMates lists the other sessions in sid's room.
func (r *Registry) RoomMates(sid core.SessionID) []SessionSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	self, ok := r.sessions[sid]
	if !ok || self.RoomName == "" {
		return nil
	}
	var out []SessionSnap
	for other, e := range r.sessions {
		if other != sid && e.RoomName == self.RoomName {
			out = append(out, SessionSnap{SID: other, Session: e.Session})
		}
	}
	return out
}

// Online lists every bound session except the given one.
func (r *Registry) Online(except core.SessionID) []SessionSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SessionSnap, 0, len(r.sessions))
	for sid, e := range r.sessions {
		if sid != except {
			out = append(out, SessionSnap{SID: sid, Session: e.Session})
		}
	}
	return out
}

// Usernames returns the display names of online sessions, sorted.
func (r *Registry) Usernames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sessions))
	for sid := range r.sessions {
		if u, ok := r.users[sid]; ok {
			out = append(out, u.Username)
		}
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}
