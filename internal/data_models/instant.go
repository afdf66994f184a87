package datamodels

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var ErrInvalidInstant = errors.New("invalid date")

var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseInstant accepts RFC 3339 timestamps as well as the shorter date forms
// clients commonly send. Zone-less values are read as UTC.
func ParseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidInstant
}

// NullableTime distinguishes an absent JSON field (Set == false) from an
// explicit null (Set == true, Value == nil).
type NullableTime struct {
	Set   bool
	Value *time.Time
}

func (n *NullableTime) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}

	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return ErrInvalidInstant
	}
	if strings.TrimSpace(raw) == "" {
		n.Value = nil
		return nil
	}

	t, err := ParseInstant(raw)
	if err != nil {
		return err
	}
	n.Value = &t
	return nil
}
