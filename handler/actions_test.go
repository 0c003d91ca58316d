package handler

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rdr-dashboard/viewstate"
)

func TestParseAction(t *testing.T) {
	base := viewstate.Default[viewstate.RDRs]()
	base.Offset = 100
	base.Alias = "robot-1"

	tests := []struct {
		name  string
		query string
		want  func(s *viewstate.RDRs)
	}{
		{"sort", "op=sort&key=start_time", func(s *viewstate.RDRs) { s.SortKey = "start_time" }},
		{"filter", "op=filter&key=robot_id&value=rcm-9", func(s *viewstate.RDRs) { s.RobotID = "rcm-9" }},
		{"clear filter", "op=filter&key=alias&value=", func(s *viewstate.RDRs) { s.Alias = "" }},
		{"limit", "op=limit&value=25", func(s *viewstate.RDRs) { s.Limit = 25 }},
		{"offset", "op=offset&value=150", func(s *viewstate.RDRs) { s.Offset = 150 }},
		{"timezone", "op=timezone&value=Europe/Zurich", func(s *viewstate.RDRs) { s.Timezone = "Europe/Zurich" }},
		{"custom timezone", "op=timezone&value=custom", func(s *viewstate.RDRs) { s.CustomTimezone = true }},
		{"relative", "op=relative", func(s *viewstate.RDRs) { s.RelativeTime = true }},
		{"scale", "op=scale&key=kde_y_scale", func(s *viewstate.RDRs) { s.KDEYScale = "log" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)
			mutate, err := parseAction[viewstate.RDRs](q)
			require.NoError(t, err)

			got := base
			mutate(&got)
			want := base
			tt.want(&want)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseAction_Drafts(t *testing.T) {
	q := url.Values{"op": {"draft"}, "key": {"tag"}, "value": {"night"}}
	mutate, err := parseAction[viewstate.Sets](q)
	require.NoError(t, err)

	s := viewstate.Default[viewstate.Sets]()
	mutate(&s)
	assert.Equal(t, "night", s.TempTag)
	assert.Empty(t, s.Tag)

	q.Set("op", "commit")
	mutate, err = parseAction[viewstate.Sets](q)
	require.NoError(t, err)
	mutate(&s)
	assert.Equal(t, "night", s.Tag)

	q.Set("op", "clear")
	mutate, err = parseAction[viewstate.Sets](q)
	require.NoError(t, err)
	mutate(&s)
	assert.Empty(t, s.Tag)
	assert.Empty(t, s.TempTag)
}

func TestParseAction_Details(t *testing.T) {
	mutate, err := parseAction[viewstate.Details](url.Values{"op": {"line"}, "key": {"motion:idle"}})
	require.NoError(t, err)
	s := viewstate.Default[viewstate.Details]()
	mutate(&s)
	assert.Equal(t, "motion:idle", s.HiddenLines)

	mutate, err = parseAction[viewstate.Details](url.Values{"op": {"log_filter"}, "value": {"camera"}})
	require.NoError(t, err)
	mutate(&s)
	assert.Equal(t, "camera", s.LogFilter)
}

func TestParseAction_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"unknown op", "op=explode"},
		{"sort without column", "op=sort"},
		{"filter on presentation field", "op=filter&key=timezone&value=UTC"},
		{"filter on unknown field", "op=filter&key=color&value=red"},
		{"draft without draft field", "op=draft&key=alias&value=x"},
		{"negative limit", "op=limit&value=-1"},
		{"non numeric offset", "op=offset&value=ten"},
		{"scale on a filter", "op=scale&key=alias"},
		{"line on a list", "op=line&key=motion:idle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)
			_, err = parseAction[viewstate.RDRs](q)
			assert.Error(t, err)
		})
	}

	_, err := parseAction[viewstate.Root](url.Values{"op": {"relative"}})
	assert.Error(t, err, "the instructions page has no view state")

	_, err = parseAction[viewstate.Details](url.Values{"op": {"offset"}, "value": {"10"}})
	assert.Error(t, err, "details are not paginated")

	_, err = parseAction[viewstate.Sets](url.Values{"op": {"frobnicate"}})
	assert.True(t, errors.Is(err, errUnknownOp))
}
