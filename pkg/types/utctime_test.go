package types

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestUTCTimeMarshalUsesExplicitOffset(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	ts := NewUTCTime(time.Date(2025, 6, 1, 15, 30, 45, 123456000, loc))

	out, err := json.Marshal(ts)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := string(out)
	if !strings.HasSuffix(got, `+00:00"`) {
		t.Fatalf("expected +00:00 suffix, got %s", got)
	}
	if strings.Contains(got, "Z") {
		t.Fatalf("timestamp must never use a bare Z suffix, got %s", got)
	}
	if got != `"2025-06-01T12:30:45.123456+00:00"` {
		t.Fatalf("unexpected wire value %s", got)
	}
}

func TestUTCTimeUnmarshalAcceptsOffsets(t *testing.T) {
	for _, raw := range []string{
		`"2025-06-01T12:30:45+00:00"`,
		`"2025-06-01T12:30:45Z"`,
		`"2025-06-01T15:30:45+03:00"`,
	} {
		var ts UTCTime
		if err := json.Unmarshal([]byte(raw), &ts); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if ts.Location() != time.UTC {
			t.Fatalf("expected UTC location for %s", raw)
		}
		if ts.Hour() != 12 {
			t.Fatalf("expected normalized hour 12 for %s, got %d", raw, ts.Hour())
		}
	}
}

func TestUTCTimeUnmarshalRejectsGarbage(t *testing.T) {
	var ts UTCTime
	if err := json.Unmarshal([]byte(`"tomorrow"`), &ts); err == nil {
		t.Fatal("expected error for invalid timestamp")
	}
}

func TestUTCTimePtr(t *testing.T) {
	if UTCTimePtr(nil) != nil {
		t.Fatal("nil input should stay nil")
	}
	now := time.Now()
	wrapped := UTCTimePtr(&now)
	if wrapped == nil || !wrapped.Equal(now) {
		t.Fatalf("expected wrapped time equal to input")
	}
}
