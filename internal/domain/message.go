package domain

import (
	"errors"
	"time"
)

const MaxMessageLen = 2000

var (
	ErrMessageEmpty   = errors.New("message empty")
	ErrMessageTooLong = errors.New("message too long")
)

// Message is a chat line relayed through a room. It is never stored.
type Message struct {
	Room   RoomName
	Sender string
	Text   string
	SentAt time.Time
}

func NewMessage(room RoomName, sender, text string, at time.Time) (Message, error) {
	if len(text) == 0 {
		return Message{}, ErrMessageEmpty
	}
	if len(text) > MaxMessageLen {
		return Message{}, ErrMessageTooLong
	}
	return Message{Room: room, Sender: sender, Text: text, SentAt: at}, nil
}
