package offer

import (
	"strings"
	"time"
)

// Status classifies an offer against its validity window at a given instant.
type Status string

const (
	// StatusActive means the offer currently applies.
	StatusActive Status = "active"
	// StatusUpcoming means the offer window has not opened yet.
	StatusUpcoming Status = "upcoming"
	// StatusExpired means the offer is deactivated or its window has closed.
	StatusExpired Status = "expired"
)

// Classify derives the runtime status of an offer. It is a pure function and
// must be recomputed on every evaluation; a stored status is a correctness bug
// because it goes stale the moment the clock moves.
//
// An explicit deactivation always wins over dates. Bounds are widened to day
// granularity: the start counts from 00:00:00 and the end until the last
// instant of its calendar day. A missing bound degrades to a one-sided check.
func Classify(isActive bool, start, end *time.Time, now time.Time) Status {
	if !isActive {
		return StatusExpired
	}
	if start == nil && end == nil {
		return StatusActive
	}
	if start != nil && now.Before(dayStart(*start)) {
		return StatusUpcoming
	}
	if end != nil && now.After(dayEnd(*end)) {
		return StatusExpired
	}
	return StatusActive
}

// ClassifyStrings is Classify for the loosely typed date strings delivered by
// upstream admin tooling. Unparseable dates are treated as absent bounds so a
// malformed definition degrades instead of breaking every caller.
func ClassifyStrings(isActive bool, start, end string, now time.Time) Status {
	return Classify(isActive, ParseBound(start), ParseBound(end), now)
}

// ParseBound parses a date bound, returning nil for empty or malformed input.
func ParseBound(value string) *time.Time {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return &t
		}
	}
	return nil
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dayEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
