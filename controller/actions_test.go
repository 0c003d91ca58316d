package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"rdr-dashboard/viewstate"
)

func TestReduce(t *testing.T) {
	base := viewstate.Default[viewstate.RDRs]()
	base.Offset = 40

	tests := []struct {
		name       string
		mutate     func(*viewstate.RDRs)
		wantOffset int
		refetch    bool
	}{
		{"filter resets offset", SetFilter[viewstate.RDRs]("alias", "m-1"), 0, true},
		{"sort resets offset", ToggleSort[viewstate.RDRs]("duration"), 0, true},
		{"limit resets offset", SetLimit[viewstate.RDRs](25), 0, true},
		{"pagination keeps its offset", SetOffset[viewstate.RDRs](90), 90, true},
		{"scale is presentation only", ToggleScale[viewstate.RDRs]("hist_scale"), 40, false},
		{"timezone is presentation only", SelectTimezone[viewstate.RDRs]("America/Phoenix"), 40, false},
		{"no change", func(*viewstate.RDRs) {}, 40, false},
		{"same value", SetFilter[viewstate.RDRs]("alias", ""), 40, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, refetch := Reduce(base, tt.mutate)
			assert.Equal(t, tt.wantOffset, next.Offset)
			assert.Equal(t, tt.refetch, refetch)
			assert.Equal(t, 40, base.Offset, "input is not modified")
		})
	}
}

func TestToggleSort(t *testing.T) {
	s := viewstate.Default[viewstate.Sets]()
	toggle := ToggleSort[viewstate.Sets]("created_at")

	toggle(&s)
	assert.Equal(t, "created_at", s.SortKey)
	assert.False(t, s.SortAsc)

	toggle(&s)
	assert.Equal(t, "created_at", s.SortKey)
	assert.True(t, s.SortAsc)

	toggle(&s)
	assert.Equal(t, "", s.SortKey)
	assert.True(t, s.SortAsc)

	// another column always starts descending
	s.SortKey = "created_at"
	ToggleSort[viewstate.Sets]("rdr_count")(&s)
	assert.Equal(t, "rdr_count", s.SortKey)
	assert.False(t, s.SortAsc)
}

func TestDrafts(t *testing.T) {
	s := viewstate.Default[viewstate.Sets]()

	SetDraft[viewstate.Sets]("name", "nightly")(&s)
	assert.Equal(t, "nightly", s.TempName)
	assert.Equal(t, "", s.Name)

	CommitDraft[viewstate.Sets]("name")(&s)
	assert.Equal(t, "nightly", s.Name)
	assert.Equal(t, "nightly", s.TempName)

	ClearDraft[viewstate.Sets]("name")(&s)
	assert.Equal(t, "", s.Name)
	assert.Equal(t, "", s.TempName)
	assert.Equal(t, "temp_tag", DraftKey("tag"))
}

func TestTimezoneActions(t *testing.T) {
	s := viewstate.Default[viewstate.Aliases]()

	SelectTimezone[viewstate.Aliases](CustomTimezone)(&s)
	assert.True(t, s.CustomTimezone)
	assert.Equal(t, "UTC", s.Timezone)

	SetTempTimezone[viewstate.Aliases]("Europe/Paris")(&s)
	CommitTempTimezone[viewstate.Aliases]()(&s)
	assert.Equal(t, "Europe/Paris", s.Timezone)

	ClearTempTimezone[viewstate.Aliases]()(&s)
	assert.Equal(t, "", s.TempTimezone)
	assert.Equal(t, "UTC", s.Timezone)

	SelectTimezone[viewstate.Aliases]("America/New_York")(&s)
	assert.False(t, s.CustomTimezone)
	assert.Equal(t, "America/New_York", s.Timezone)

	ToggleRelativeTime[viewstate.Aliases]()(&s)
	assert.True(t, s.RelativeTime)
	ToggleRelativeTime[viewstate.Aliases]()(&s)
	assert.False(t, s.RelativeTime)
}

func TestToggleScale(t *testing.T) {
	s := viewstate.Default[viewstate.RDRs]()
	ToggleScale[viewstate.RDRs]("kde_y_scale")(&s)
	assert.Equal(t, ScaleLog, s.KDEYScale)
	assert.Equal(t, ScaleLinear, s.KDEXScale)
	ToggleScale[viewstate.RDRs]("kde_y_scale")(&s)
	assert.Equal(t, ScaleLinear, s.KDEYScale)
}

func TestToggleLine(t *testing.T) {
	s := viewstate.Default[viewstate.Details]()
	ToggleLine[viewstate.Details]("vision:person")(&s)
	ToggleLine[viewstate.Details]("motion:idle")(&s)
	assert.Equal(t, "motion:idle,vision:person", s.HiddenLines)
	assert.Equal(t, map[string]bool{"motion:idle": true, "vision:person": true}, HiddenLines(s.HiddenLines))

	ToggleLine[viewstate.Details]("motion:idle")(&s)
	assert.Equal(t, "vision:person", s.HiddenLines)

	SetLogFilter[viewstate.Details]("lidar")(&s)
	assert.Equal(t, "lidar", s.LogFilter)
}

func TestNewPager(t *testing.T) {
	s := viewstate.Default[viewstate.Sets]()
	s.Offset = 30

	p := NewPager(s, nil, false)
	assert.True(t, p.CanPrev)
	assert.False(t, p.CanNext)
	assert.Equal(t, 0, p.PrevOffset)

	details := NewPager(viewstate.Default[viewstate.Details](), nil, false)
	assert.False(t, details.CanPrev)
	assert.False(t, details.CanNext)
}
