// Package shaper turns the sparse aggregates returned by the backend into
// the dense, ordered series the charts and tables render.
//
// Every function is pure. An entry whose date or timestamp key cannot be
// parsed is skipped and the rest of the input is still shaped.
package shaper

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// DateCount is one day of the filled date histogram
type DateCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// RangeCount is one bucket of the duration histogram
type RangeCount struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

// LabelCount is one bar of the machine or RCM histogram
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// parseDay accepts a plain calendar date or a full RFC 3339 timestamp and
// returns the UTC calendar day it falls on.
func parseDay(key string) (time.Time, bool) {
	if d, err := time.Parse(dateLayout, key); err == nil {
		return d, true
	}
	ts, err := time.Parse(time.RFC3339Nano, key)
	if err != nil {
		return time.Time{}, false
	}
	ts = ts.UTC()
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), true
}

// FillDateHistogram returns one entry per calendar day from the earliest to
// the latest parsable key, inclusive and ascending. Days without a key get 0.
func FillDateHistogram(hist map[string]int) []DateCount {
	counts := make(map[string]int, len(hist))
	var first, last time.Time
	for key, n := range hist {
		d, ok := parseDay(key)
		if !ok {
			continue
		}
		if len(counts) == 0 || d.Before(first) {
			first = d
		}
		if len(counts) == 0 || d.After(last) {
			last = d
		}
		counts[d.Format(dateLayout)] += n
	}
	if len(counts) == 0 {
		return []DateCount{}
	}

	out := make([]DateCount, 0, int(last.Sub(first).Hours()/24)+1)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		day := d.Format(dateLayout)
		out = append(out, DateCount{Date: day, Count: counts[day]})
	}
	return out
}

// rangeLow parses the lower bound of a "<low>-<high>" label.
func rangeLow(label string) (float64, bool) {
	low, _, _ := strings.Cut(label, "-")
	v, err := strconv.ParseFloat(strings.TrimSpace(low), 64)
	return v, err == nil
}

// SortDurationHistogram orders the buckets by their numeric lower bound.
// Buckets without one keep their count and sort last. Ties are broken by
// label so the output is deterministic.
func SortDurationHistogram(hist map[string]int) []RangeCount {
	type bucket struct {
		RangeCount
		low    float64
		parsed bool
	}
	buckets := make([]bucket, 0, len(hist))
	for label, n := range hist {
		low, ok := rangeLow(label)
		buckets = append(buckets, bucket{RangeCount{Range: label, Count: n}, low, ok})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].parsed != buckets[j].parsed {
			return buckets[i].parsed
		}
		if buckets[i].parsed && buckets[i].low != buckets[j].low {
			return buckets[i].low < buckets[j].low
		}
		return buckets[i].Range < buckets[j].Range
	})

	out := make([]RangeCount, len(buckets))
	for i, b := range buckets {
		out[i] = b.RangeCount
	}
	return out
}

func labelCounts(hist map[string]int) []LabelCount {
	out := make([]LabelCount, 0, len(hist))
	for label, n := range hist {
		out = append(out, LabelCount{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// MachineHistogram lists RDR counts per machine alias
func MachineHistogram(hist map[string]int) []LabelCount { return labelCounts(hist) }

// RCMHistogram lists RDR counts per RCM id
func RCMHistogram(hist map[string]int) []LabelCount { return labelCounts(hist) }
