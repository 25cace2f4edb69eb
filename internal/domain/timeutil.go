package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/journeylog/journeylog-backend/internal/platform/apierr"
)

// ParseTimestamp accepts ISO-8601 strings with a trailing Z, an explicit
// offset, or no zone designator at all (treated as UTC). The result is
// always normalized to UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, apierr.Serialization("timestamp string is empty", nil)
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apierr.Serialization(fmt.Sprintf("invalid timestamp format: %q", s), nil)
}

// TimestampFromStored normalizes every timestamp shape the store may hand
// back: native time values, unix epoch numbers (seconds), and ISO-8601
// strings. Anything else is a serialization error.
func TimestampFromStored(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case *time.Time:
		if t == nil {
			return time.Time{}, apierr.Serialization("timestamp is nil", nil)
		}
		return t.UTC(), nil
	case string:
		return ParseTimestamp(t)
	case int:
		return time.Unix(int64(t), 0).UTC(), nil
	case int64:
		return time.Unix(t, 0).UTC(), nil
	case float64:
		sec := int64(t)
		nsec := int64((t - float64(sec)) * float64(time.Second))
		return time.Unix(sec, nsec).UTC(), nil
	default:
		return time.Time{}, apierr.Serialization(fmt.Sprintf("unsupported timestamp type %T", v), nil)
	}
}

// OptionalTimestampFromStored is TimestampFromStored with nil passthrough.
func OptionalTimestampFromStored(v interface{}) (*time.Time, error) {
	if v == nil {
		return nil, nil
	}
	t, err := TimestampFromStored(v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
