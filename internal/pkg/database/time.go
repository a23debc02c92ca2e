package database

import (
	"fmt"
	"time"
)

// Timestamps are stored as RFC3339 TEXT so the same column works on SQLite,
// which has no native datetime type, and on PostgreSQL.

// FormatTime renders t for storage.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTime parses a timestamp written by FormatTime.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("database: parse time %q: %w", s, err)
	}
	return t, nil
}
