package shaper

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // custom zones must resolve on hosts without zoneinfo

	"github.com/dustin/go-humanize"
)

// TimeLayout renders absolute timestamps as "2024-01-02 15:04:05+01:00",
// with "Z" for UTC.
const TimeLayout = "2006-01-02 15:04:05Z07:00"

// LocalZone is the timezone option that selects the server's local zone
const LocalZone = "local"

// Zone resolves a timezone option. An empty name is UTC. An unknown name
// also yields UTC together with the lookup error so the caller can flag it.
func Zone(name string) (*time.Location, error) {
	switch name {
	case "", "UTC":
		return time.UTC, nil
	case LocalZone:
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return loc, nil
}

// FormatTime renders an RFC 3339 timestamp either in loc or, when relative
// is set, as the distance to now ("3 hours ago"). A timestamp that does not
// parse is returned unchanged.
func FormatTime(ts string, loc *time.Location, relative bool, now time.Time) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	if relative {
		return humanize.RelTime(t, now, "ago", "from now")
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(TimeLayout)
}

// SinceStart describes how far ts lies from start, e.g. "(5 minutes from start)".
// It returns "" when either timestamp does not parse.
func SinceStart(ts, start string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ""
	}
	s, err := time.Parse(time.RFC3339Nano, start)
	if err != nil {
		return ""
	}
	distance := strings.TrimSpace(humanize.RelTime(s, t, "", ""))
	if distance == "now" {
		return "(at start)"
	}
	return "(" + distance + " from start)"
}
