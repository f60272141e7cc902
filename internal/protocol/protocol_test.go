package protocol

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/pion/webrtc/v4"
)

func TestEncodeOpenDecode(t *testing.T) {
	frame, err := Encode(EventAnswer, AnswerOut{
		Answer:    SessionDescription{Type: "answer", SDP: "v=0"},
		TargetSID: "sid-b",
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(frame), `"target_sid":"sid-b"`) {
		t.Fatalf("target_sid missing from %s", frame)
	}

	env, err := Open(frame)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if env.Event != EventAnswer {
		t.Fatalf("event = %q", env.Event)
	}
	var got AnswerOut
	if err := Decode(env.Data, &got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.TargetSID != "sid-b" || got.Answer.SDP != "v=0" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestEncodeNilPayload(t *testing.T) {
	frame, err := Encode(EventPong, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(frame) != `{"event":"pong","data":{}}` {
		t.Fatalf("frame = %s", frame)
	}
}

func TestOpenRejectsBadFrames(t *testing.T) {
	for _, in := range []string{`not json`, `{"data":{}}`, `{"event":""}`} {
		if _, err := Open([]byte(in)); err == nil {
			t.Fatalf("Open(%s) expected error", in)
		}
	}
}

func TestDecodeValidatesTaggedVariants(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		into    any
		wantErr bool
	}{
		{"offer ok", `{"offer":{"type":"offer","sdp":"v=0"},"sender_sid":"a","sender_username":"alice"}`, &OfferIn{}, false},
		{"offer missing sender", `{"offer":{"type":"offer","sdp":"v=0"}}`, &OfferIn{}, true},
		{"offer missing sdp", `{"offer":{"type":"offer"},"sender_sid":"a"}`, &OfferIn{}, true},
		{"offer unknown type", `{"offer":{"type":"bogus","sdp":"v=0"},"sender_sid":"a"}`, &OfferIn{}, true},
		{"answer ok", `{"answer":{"type":"answer","sdp":"v=0"},"sender_sid":"b"}`, &AnswerIn{}, false},
		{"candidate ok", `{"candidate":"candidate:1 1 udp 1 127.0.0.1 5000 typ host","sdpMid":"0"}`, &Candidate{}, false},
		{"candidate empty", `{"candidate":""}`, &Candidate{}, true},
		{"message too long", `{"room":"r","message":"` + strings.Repeat("x", 2001) + `"}`, &SendMessage{}, true},
		{"join missing room", `{}`, &JoinRoom{}, true},
		{"user list", `["alice","bob"]`, &UserList{}, false},
		{"wrong json type", `{"room":5}`, &JoinRoom{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Decode(json.RawMessage(tt.data), tt.into)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSessionDescriptionToPion(t *testing.T) {
	desc, err := SessionDescription{Type: "offer", SDP: "v=0"}.ToPion()
	if err != nil {
		t.Fatalf("ToPion: %v", err)
	}
	if desc.Type != webrtc.SDPTypeOffer || desc.SDP != "v=0" {
		t.Fatalf("unexpected %+v", desc)
	}
	if _, err := (SessionDescription{Type: "nope", SDP: "v=0"}).ToPion(); err == nil {
		t.Fatalf("expected error for unknown type")
	}
	back := DescriptionFromPion(desc)
	if back.Type != "offer" {
		t.Fatalf("DescriptionFromPion type = %q", back.Type)
	}
}

func TestCandidateToPionKeepsOptionalFields(t *testing.T) {
	mid := "0"
	idx := uint16(1)
	c := Candidate{Candidate: "candidate:1", SDPMid: &mid, SDPMLineIndex: &idx}
	init := c.ToPion()
	if init.Candidate != "candidate:1" || *init.SDPMid != "0" || *init.SDPMLineIndex != 1 || init.UsernameFragment != nil {
		t.Fatalf("unexpected %+v", init)
	}
	if CandidateFromPion(init).Candidate != "candidate:1" {
		t.Fatalf("CandidateFromPion lost candidate")
	}
}
