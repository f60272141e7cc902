// Package protocol defines the events exchanged over the relay WebSocket.
// Every frame is an Envelope; Data holds one of the payload types below.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

type Event string

const (
	EventSession Event = "session"
	EventPing    Event = "ping"
	EventPong    Event = "pong"
	EventError   Event = "error"
	EventWhoAmI  Event = "whoami"
	EventRename  Event = "rename"

	EventJoinRoom       Event = "join_room"
	EventLeaveRoom      Event = "leave_room"
	EventSendMessage    Event = "send_message"
	EventReceiveMessage Event = "receive_message"

	EventUpdateUserList   Event = "update_user_list"
	EventUserConnected    Event = "user_connected"
	EventUserDisconnected Event = "user_disconnected"
	EventUserJoined       Event = "user_joined"
	EventUserLeft         Event = "user_left"

	EventOffer     Event = "webrtc_offer"
	EventAnswer    Event = "webrtc_answer"
	EventCandidate Event = "webrtc_ice_candidate"
)

var ErrEmptyEvent = errors.New("protocol: empty event name")

type Envelope struct {
	Event Event           `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode wraps payload into an envelope. A nil payload yields "{}".
func Encode(event Event, payload any) ([]byte, error) {
	if payload == nil {
		payload = struct{}{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal %s: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// Open parses the envelope and leaves Data for the caller to Decode.
func Open(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("protocol: bad envelope: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, ErrEmptyEvent
	}
	return env, nil
}

// Decode unmarshals data into v and validates it.
func Decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("protocol: bad payload: %w", err)
	}
	return Validate(v)
}
