package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew_AddsServiceAttribute(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Service: "bookings"})

	log.Info("hello", "booking_id", "b1")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if record[SERVICE] != "bookings" {
		t.Errorf("expected service attribute 'bookings', got %v", record[SERVICE])
	}
	if record["booking_id"] != "b1" {
		t.Errorf("expected booking_id attribute 'b1', got %v", record["booking_id"])
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Level: WARN, Format: TEXT})

	log.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("expected info record to be filtered at warn level, got %q", buf.String())
	}

	log.With("component", "lock").Warn("kept")
	if !bytes.Contains(buf.Bytes(), []byte("component=lock")) {
		t.Errorf("expected child logger attributes in output, got %q", buf.String())
	}
}
