package types

import (
	"fmt"
	"strings"
	"time"
)

// wireFormat renders an explicit numeric UTC offset. Combined with UTC()
// every serialized timestamp ends in "+00:00", never a bare "Z".
const wireFormat = "2006-01-02T15:04:05.999999-07:00"

// UTCTime is a time.Time that serializes as ISO-8601 with a "+00:00" offset.
type UTCTime struct {
	time.Time
}

func NewUTCTime(t time.Time) UTCTime {
	return UTCTime{Time: t.UTC()}
}

func (t UTCTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format(wireFormat) + `"`), nil
}

func (t *UTCTime) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "null" || raw == "" {
		*t = UTCTime{}
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		// Accept offset-less timestamps as UTC.
		parsed, err = time.Parse("2006-01-02T15:04:05.999999999", raw)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", raw, err)
		}
	}
	*t = UTCTime{Time: parsed.UTC()}
	return nil
}

// UTCTimePtr wraps a nullable model timestamp for serialization.
func UTCTimePtr(t *time.Time) *UTCTime {
	if t == nil {
		return nil
	}
	wrapped := NewUTCTime(*t)
	return &wrapped
}
