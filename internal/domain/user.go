// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
)

const (
	MaxUserIDLen   = 36
	MaxUsernameLen = 36
	GuestUsername  = "guest"
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
)

type UserID string

type User struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
}

// NewGuest binds a user to an existing id, e.g. the client token.
func NewGuest(id UserID) *User {
	return &User{ID: id, Username: GuestUsername}
}

// WithUsername returns a renamed copy. Users are shared with rooms, so they
// are never changed in place.
func (u User) WithUsername(username string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	u.Username = username
	return &u, nil
}

func ValidateUsername(username string) error {
	if len(username) == 0 {
		return ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	return nil
}
