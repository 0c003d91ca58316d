package controller

import (
	"sort"
	"strconv"
	"strings"

	"rdr-dashboard/viewstate"
)

// Field keys shared by several screens
const (
	KeySortKey        = "sort_key"
	KeySortAsc        = "sort_asc"
	KeyLimit          = "limit"
	KeyRelativeTime   = "relative_time"
	KeyTimezone       = "timezone"
	KeyCustomTimezone = "custom_timezone"
	KeyTempTimezone   = "temp_timezone"
	KeyHiddenLines    = "hidden_lines"
	KeyLogFilter      = "log_filter"

	draftPrefix = "temp_"
)

// CustomTimezone is the timezone option that switches to free-text entry
const CustomTimezone = "custom"

// Scale values of the chart axes
const (
	ScaleLinear = "linear"
	ScaleLog    = "log"
)

// SetOffset moves to an explicit offset
func SetOffset[S any](offset int) func(*S) {
	return func(s *S) { viewstate.SetOffset(s, offset) }
}

// ToggleSort cycles a sortable column: unsorted -> descending -> ascending
// -> unsorted. Leaving the cycle keeps the ascending flag.
func ToggleSort[S any](key string) func(*S) {
	return func(s *S) {
		switch {
		case viewstate.Text(*s, KeySortKey) != key:
			viewstate.SetText(s, KeySortKey, key)
			viewstate.SetText(s, KeySortAsc, "false")
		case viewstate.Text(*s, KeySortAsc) != "true":
			viewstate.SetText(s, KeySortAsc, "true")
		default:
			viewstate.SetText(s, KeySortKey, "")
		}
	}
}

// SetFilter assigns a filter field directly, as a dropdown does
func SetFilter[S any](key, value string) func(*S) {
	return func(s *S) { viewstate.SetText(s, key, value) }
}

// DraftKey is the address-bar key holding the uncommitted text of key
func DraftKey(key string) string { return draftPrefix + key }

// SetDraft edits the draft text of a free-text filter without applying it
func SetDraft[S any](key, value string) func(*S) {
	return func(s *S) { viewstate.SetText(s, DraftKey(key), value) }
}

// CommitDraft applies the draft text of key to the filter
func CommitDraft[S any](key string) func(*S) {
	return func(s *S) {
		viewstate.SetText(s, key, viewstate.Text(*s, DraftKey(key)))
	}
}

// ClearDraft empties both the draft and the applied filter
func ClearDraft[S any](key string) func(*S) {
	return func(s *S) {
		viewstate.SetText(s, DraftKey(key), "")
		viewstate.SetText(s, key, "")
	}
}

// SetLimit changes the page size
func SetLimit[S any](limit int) func(*S) {
	return func(s *S) { viewstate.SetText(s, KeyLimit, strconv.Itoa(limit)) }
}

// SelectTimezone applies a timezone option. CustomTimezone switches to
// free-text entry and keeps the current zone until a draft is committed.
func SelectTimezone[S any](option string) func(*S) {
	return func(s *S) {
		if option == CustomTimezone {
			viewstate.SetText(s, KeyCustomTimezone, "true")
			return
		}
		viewstate.SetText(s, KeyCustomTimezone, "false")
		viewstate.SetText(s, KeyTimezone, option)
	}
}

// SetTempTimezone edits the custom timezone draft
func SetTempTimezone[S any](value string) func(*S) {
	return func(s *S) { viewstate.SetText(s, KeyTempTimezone, value) }
}

// CommitTempTimezone applies the custom timezone draft
func CommitTempTimezone[S any]() func(*S) {
	return func(s *S) {
		viewstate.SetText(s, KeyTimezone, viewstate.Text(*s, KeyTempTimezone))
	}
}

// ClearTempTimezone empties the draft and falls back to UTC
func ClearTempTimezone[S any]() func(*S) {
	return func(s *S) {
		viewstate.SetText(s, KeyTempTimezone, "")
		viewstate.SetText(s, KeyTimezone, "UTC")
	}
}

// ToggleRelativeTime switches between absolute and relative timestamps
func ToggleRelativeTime[S any]() func(*S) {
	return func(s *S) {
		relative := viewstate.Text(*s, KeyRelativeTime) == "true"
		viewstate.SetText(s, KeyRelativeTime, strconv.FormatBool(!relative))
	}
}

// ToggleScale flips a chart axis between linear and log
func ToggleScale[S any](key string) func(*S) {
	return func(s *S) {
		next := ScaleLog
		if viewstate.Text(*s, key) == ScaleLog {
			next = ScaleLinear
		}
		viewstate.SetText(s, key, next)
	}
}

// HiddenLines parses the hidden classifier lines of a details state
func HiddenLines(encoded string) map[string]bool {
	hidden := make(map[string]bool)
	for _, line := range strings.Split(encoded, ",") {
		if line != "" {
			hidden[line] = true
		}
	}
	return hidden
}

// ToggleLine shows or hides one classifier:label line of the chart
func ToggleLine[S any](line string) func(*S) {
	return func(s *S) {
		hidden := HiddenLines(viewstate.Text(*s, KeyHiddenLines))
		if hidden[line] {
			delete(hidden, line)
		} else if line != "" {
			hidden[line] = true
		}
		lines := make([]string, 0, len(hidden))
		for l := range hidden {
			lines = append(lines, l)
		}
		sort.Strings(lines)
		viewstate.SetText(s, KeyHiddenLines, strings.Join(lines, ","))
	}
}

// SetLogFilter filters the log table by local path
func SetLogFilter[S any](text string) func(*S) {
	return func(s *S) { viewstate.SetText(s, KeyLogFilter, text) }
}
