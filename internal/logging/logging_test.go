package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestPionFactoryTagsScope(t *testing.T) {
	var buf bytes.Buffer
	f := PionFactory{Logger: zerolog.New(&buf).Level(zerolog.DebugLevel)}

	l := f.NewLogger("ice")
	l.Warnf("gathering %d candidates", 3)
	l.Trace("dropped below level")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected one json line, got %q: %v", buf.String(), err)
	}
	if entry["module"] != "pion" || entry["scope"] != "ice" || entry["level"] != "warn" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if entry["message"] != "gathering 3 candidates" {
		t.Fatalf("message = %v", entry["message"])
	}
}
