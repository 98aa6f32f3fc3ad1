// Package normalize holds the pure field conversions applied to profile events:
// timestamps are stamped with a fixed zone, money amounts are rendered as
// dollar strings and free-form names are lowercased.
package normalize

import (
	"fmt"
	"strings"
	"time"

	// Zone data is embedded so the fixed zone resolves on hosts without tzdata.
	_ "time/tzdata"

	errspkg "github.com/drblury/avroflow/internal/runtime/errors"
)

// DefaultTimezone is the civil zone profile timestamps are stamped with.
const DefaultTimezone = "Europe/Amsterdam"

const (
	outputLayout      = "2006-01-02T15:04:05-07:00"
	outputLayoutMicro = "2006-01-02T15:04:05.000000-07:00"
)

// Accepted wall-clock layouts once any zone suffix has been removed. Fractional
// seconds are accepted by the seconds layouts without being spelled out.
var inputLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02T15",
	"2006-01-02 15",
	"2006-01-02",
}

// Timestamps attaches a fixed zone to naive ISO 8601 timestamps.
type Timestamps struct {
	loc *time.Location
}

// NewTimestamps returns a normalizer stamping timestamps with loc.
func NewTimestamps(loc *time.Location) *Timestamps {
	if loc == nil {
		panic("avroflow: timestamp location cannot be nil")
	}
	return &Timestamps{loc: loc}
}

// NewTimestampsFromName resolves the IANA zone name and builds a normalizer.
func NewTimestampsFromName(name string) (*Timestamps, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return NewTimestamps(loc), nil
}

// Location returns the zone the normalizer stamps with.
func (t *Timestamps) Location() *time.Location {
	return t.loc
}

// Normalize re-stamps the wall clock in s with the configured zone. The time is
// not converted: a trailing Z or numeric offset on the input is discarded and
// the resulting string carries the zone's offset for that date. A wall clock
// skipped or repeated by a DST transition gets the offset in effect before the
// transition.
func (t *Timestamps) Normalize(s string) (string, error) {
	wall, err := parseWall(s)
	if err != nil {
		return "", errspkg.NewInvalidInput("datetime string", s, err)
	}
	stamped := time.Date(wall.Year(), wall.Month(), wall.Day(),
		wall.Hour(), wall.Minute(), wall.Second(), wall.Nanosecond(),
		time.FixedZone(t.loc.String(), t.offset(wall)))
	return stamped.Format(layoutFor(stamped)), nil
}

// offset returns the UTC offset in seconds for the naive wall clock, held as a
// UTC time. Inside a gap or an overlap the earlier offset wins.
func (t *Timestamps) offset(wall time.Time) int {
	_, before := wall.Add(-24 * time.Hour).In(t.loc).Zone()
	_, after := wall.Add(24 * time.Hour).In(t.loc).Zone()
	valid := func(off int) bool {
		_, got := wall.Add(-time.Duration(off) * time.Second).In(t.loc).Zone()
		return got == off
	}
	if valid(before) || !valid(after) {
		return before
	}
	return after
}

func layoutFor(ts time.Time) string {
	layout := outputLayout
	if ts.Nanosecond() != 0 {
		layout = outputLayoutMicro
	}
	if _, off := ts.Zone(); off%60 != 0 {
		layout += ":00"
	}
	return layout
}

// parseWall reads the wall clock of s into a UTC time truncated to
// microseconds.
func parseWall(s string) (time.Time, error) {
	wall, err := stripZone(strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}

	var lastErr error
	for _, layout := range inputLayouts {
		parsed, err := time.Parse(layout, wall)
		if err == nil {
			return parsed.Truncate(time.Microsecond), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// stripZone removes a Z or ±hh[:mm] suffix from the time part of s.
func stripZone(s string) (string, error) {
	if len(s) <= len("2006-01-02") {
		return s, nil
	}
	if last := s[len(s)-1]; last == 'Z' || last == 'z' {
		return s[:len(s)-1], nil
	}

	timePart := s[len("2006-01-02")+1:]
	idx := strings.IndexAny(timePart, "+-")
	if idx < 0 {
		return s, nil
	}
	offset := strings.ReplaceAll(timePart[idx+1:], ":", "")
	if !validOffset(offset) {
		return "", fmt.Errorf("malformed utc offset %q", timePart[idx:])
	}
	return s[:len("2006-01-02")+1+idx], nil
}

func validOffset(offset string) bool {
	if len(offset) != 2 && len(offset) != 4 {
		return false
	}
	for _, r := range offset {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
