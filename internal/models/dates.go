package models

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidDate is returned when a record date matches none of the accepted layouts.
var ErrInvalidDate = errors.New("invalid record date")

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseRecordDate parses a dataset date string. Layouts without a zone are
// interpreted in the local zone.
func ParseRecordDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, ErrInvalidDate
	}

	for _, layout := range dateLayouts {
		if parsed, err := time.ParseInLocation(layout, trimmed, time.Local); err == nil {
			return parsed, nil
		}
	}

	return time.Time{}, ErrInvalidDate
}
