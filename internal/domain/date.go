package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// Date is a timestamp read from a loosely typed document. It accepts RFC3339
// strings, plain dates, unix milliseconds and Firestore {seconds,nanoseconds}
// objects; anything else decodes to an absent date.
type Date struct {
	Time  time.Time
	Valid bool
}

func NewDate(t time.Time) Date {
	return Date{Time: t.UTC(), Valid: true}
}

func (d Date) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.UTC().Format(time.RFC3339Nano))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	*d = Date{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	switch trimmed[0] {
	case '"':
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil
		}
		raw = strings.TrimSpace(raw)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				*d = NewDate(t)
				return nil
			}
		}
	case '{':
		var ts struct {
			Seconds     *int64 `json:"seconds"`
			LegacySecs  *int64 `json:"_seconds"`
			Nanoseconds int64  `json:"nanoseconds"`
		}
		if err := json.Unmarshal(trimmed, &ts); err != nil {
			return nil
		}
		secs := ts.Seconds
		if secs == nil {
			secs = ts.LegacySecs
		}
		if secs != nil {
			*d = NewDate(time.Unix(*secs, ts.Nanoseconds))
		}
	default:
		var millis float64
		if err := json.Unmarshal(trimmed, &millis); err != nil {
			return nil
		}
		*d = NewDate(time.UnixMilli(int64(millis)))
	}
	return nil
}
