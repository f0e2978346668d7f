package task

import (
	"fmt"
	"time"
)

// TimestampLayout is fixed width so that serialized timestamps sort
// lexicographically in time order.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// legacyLayout is the local-time format written by earlier versions of the
// tool (Python str(datetime.now())).
const legacyLayout = "2006-01-02 15:04:05.999999999"

// Timestamp is a UTC instant with microsecond precision.
type Timestamp struct {
	t time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t: t.UTC().Truncate(time.Microsecond)}
}

func (ts Timestamp) Time() time.Time {
	return ts.t
}

func (ts Timestamp) IsZero() bool {
	return ts.t.IsZero()
}

func (ts Timestamp) Before(other Timestamp) bool {
	return ts.t.Before(other.t)
}

func (ts Timestamp) Equal(other Timestamp) bool {
	return ts.t.Equal(other.t)
}

func (ts Timestamp) String() string {
	if ts.t.IsZero() {
		return ""
	}
	return ts.t.Format(TimestampLayout)
}

func (ts Timestamp) MarshalText() ([]byte, error) {
	if ts.t.IsZero() {
		return []byte{}, nil
	}
	return []byte(ts.String()), nil
}

func (ts *Timestamp) UnmarshalText(text []byte) error {
	parsed, err := ParseTimestamp(string(text))
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}

// ParseTimestamp accepts TimestampLayout, RFC 3339 and the legacy local-time
// layout. The empty string yields the zero Timestamp.
func ParseTimestamp(s string) (Timestamp, error) {
	if s == "" {
		return Timestamp{}, nil
	}
	if t, err := time.Parse(TimestampLayout, s); err == nil {
		return NewTimestamp(t), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return NewTimestamp(t), nil
	}
	if t, err := time.ParseInLocation(legacyLayout, s, time.Local); err == nil {
		return NewTimestamp(t), nil
	}
	return Timestamp{}, fmt.Errorf("invalid timestamp %q", s)
}
