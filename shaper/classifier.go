package shaper

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"
)

// DefaultTickCount is the number of x axis ticks of the classifier chart
const DefaultTickCount = 10

// ClassifierPoint is one timestamp of the classifier chart. Values holds a
// 0/1 entry for every classifier:label reported at that timestamp; labels
// not reported there are absent rather than zero.
type ClassifierPoint struct {
	Time   string         `json:"time"`
	Values map[string]int `json:"values"`

	at time.Time
}

// At returns the parsed timestamp
func (p ClassifierPoint) At() time.Time { return p.at }

// validClassifiers decodes every classifier that did not report an error
// into label -> raw timestamp map.
func validClassifiers(raw map[string]json.RawMessage) map[string]map[string]json.RawMessage {
	out := make(map[string]map[string]json.RawMessage, len(raw))
	for name, body := range raw {
		var labels map[string]json.RawMessage
		if err := json.Unmarshal(body, &labels); err != nil {
			continue
		}
		if _, failed := labels["error"]; failed {
			continue
		}
		out[name] = labels
	}
	return out
}

func lineKey(classifier, label string) string { return classifier + ":" + label }

// ClassifierLines lists every classifier:label key of the non-error
// classifiers, sorted.
func ClassifierLines(raw map[string]json.RawMessage) []string {
	var lines []string
	for name, labels := range validClassifiers(raw) {
		for label := range labels {
			lines = append(lines, lineKey(name, label))
		}
	}
	sort.Strings(lines)
	return lines
}

// ClassifierSeries pivots classifier -> label -> timestamp -> bool into one
// point per timestamp, ordered by time. Timestamps that are not RFC 3339
// are skipped.
func ClassifierSeries(raw map[string]json.RawMessage) []ClassifierPoint {
	byTime := make(map[string]*ClassifierPoint)
	for name, labels := range validClassifiers(raw) {
		for label, body := range labels {
			var stamps map[string]json.RawMessage
			if err := json.Unmarshal(body, &stamps); err != nil {
				continue
			}
			key := lineKey(name, label)
			for stamp, value := range stamps {
				p, seen := byTime[stamp]
				if !seen {
					at, err := time.Parse(time.RFC3339Nano, stamp)
					if err != nil {
						continue
					}
					p = &ClassifierPoint{Time: stamp, Values: make(map[string]int), at: at}
					byTime[stamp] = p
				}
				if bytes.Equal(bytes.TrimSpace(value), []byte("true")) {
					p.Values[key] = 1
				} else {
					p.Values[key] = 0
				}
			}
		}
	}

	out := make([]ClassifierPoint, 0, len(byTime))
	for _, p := range byTime {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].at.Equal(out[j].at) {
			return out[i].at.Before(out[j].at)
		}
		return out[i].Time < out[j].Time
	})
	return out
}

// ClassifierTicks picks up to n evenly spread timestamps for the x axis.
// Index i*len/(n-1) is used for i in [0, n); duplicates and indices past
// the end are dropped. n < 2 falls back to DefaultTickCount.
func ClassifierTicks(points []ClassifierPoint, n int) []string {
	if n < 2 {
		n = DefaultTickCount
	}
	var ticks []string
	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		idx := i * len(points) / (n - 1)
		if idx >= len(points) {
			continue
		}
		t := points[idx].Time
		if seen[t] {
			continue
		}
		seen[t] = true
		ticks = append(ticks, t)
	}
	return ticks
}

// ClassifierErrors lists "<classifier>: <error>" for every classifier that
// failed, sorted by classifier.
func ClassifierErrors(raw map[string]json.RawMessage) []string {
	var out []string
	for name, body := range raw {
		var labels map[string]json.RawMessage
		if err := json.Unmarshal(body, &labels); err != nil {
			continue
		}
		detail, failed := labels["error"]
		if !failed {
			continue
		}
		var msg string
		if err := json.Unmarshal(detail, &msg); err != nil {
			msg = string(detail)
		}
		out = append(out, name+": "+msg)
	}
	sort.Strings(out)
	return out
}
