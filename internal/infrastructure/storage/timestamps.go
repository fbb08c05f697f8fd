package storage

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// parseTime accepts RFC 3339 and the looser formats older files were written with.
func parseTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), true
	}
	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func parseTimePtr(raw *string) *time.Time {
	if raw == nil {
		return nil
	}
	t, ok := parseTime(*raw)
	if !ok {
		return nil
	}
	return &t
}
