package domain

import "sync/atomic"

// Member represents user's participation meta for a room.
// No transport or lifecycle logic here.
type Member struct {
	user atomic.Pointer[User]
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(user *User) *Member {
	m := &Member{}
	m.user.Store(user)
	return m
}

func (m *Member) User() *User { return m.user.Load() }

// SetUser swaps in a renamed user.
func (m *Member) SetUser(u *User) { m.user.Store(u) }
