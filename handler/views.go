package handler

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"rdr-dashboard/controller"
	"rdr-dashboard/shaper"
	"rdr-dashboard/viewstate"
)

// limitOptions are the page sizes offered by list screens
var limitOptions = []int{10, 25, 50, 100, 250}

// Field is a hidden form input carrying view state across a form submit
type Field struct {
	Key   string
	Value string
}

// Option is one entry of a select
type Option struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected,omitempty"`
}

// SelectForm is a dropdown that submits op=Op&key=Key&value=<choice>
type SelectForm struct {
	Op      string   `json:"op"`
	Key     string   `json:"key"`
	Options []Option `json:"options"`
	Hidden  []Field  `json:"-"`
}

// DraftForm is a text box that edits the Input draft and commits it to Key
type DraftForm struct {
	Key       string  `json:"key"`
	Input     string  `json:"input"`
	Draft     string  `json:"draft"`
	Applied   string  `json:"applied"`
	ClearHref string  `json:"clear_href"`
	Hidden    []Field `json:"-"`
}

// SortLink is the header link of a sortable column
type SortLink struct {
	Href      string `json:"href"`
	Indicator string `json:"indicator"`
}

// PagerView adds the navigation links to the pagination controls
type PagerView struct {
	controller.Pager
	PrevHref string     `json:"prev_href,omitempty"`
	NextHref string     `json:"next_href,omitempty"`
	Limits   SelectForm `json:"limits"`
}

// DisplayView holds the timezone and relative time controls
type DisplayView struct {
	Timezone     string     `json:"timezone"`
	Custom       bool       `json:"custom"`
	TempTimezone string     `json:"temp_timezone"`
	Relative     bool       `json:"relative"`
	ZoneError    string     `json:"zone_error,omitempty"`
	Zones        SelectForm `json:"zones"`
	RelativeHref string     `json:"relative_href"`
	ClearHref    string     `json:"clear_href"`
	DraftHidden  []Field    `json:"-"`
}

// NavLink is an entry of the top navigation
type NavLink struct {
	Href  string
	Label string
}

// Page is shared by every screen view
type Page struct {
	Screen  string       `json:"screen"`
	Title   string       `json:"title"`
	URL     string       `json:"url"`
	ShareQR string       `json:"share_qr"`
	Error   string       `json:"error,omitempty"`
	Display *DisplayView `json:"display,omitempty"`
	Nav     []NavLink    `json:"-"`
}

var navLinks = []NavLink{
	{Href: "/", Label: "Instructions"},
	{Href: "/sets", Label: "Sets"},
	{Href: "/aliases", Label: "Aliases"},
}

func withQuery(path, rawQuery string) string {
	if rawQuery == "" {
		return path
	}
	return path + "?" + rawQuery
}

// qrHref links the share QR code of a dashboard address
func qrHref(address string) string {
	return "/qr?" + url.Values{"path": {address}}.Encode()
}

// viewContext is what a screen needs to build its view model from a
// settled controller.
type viewContext[S, P any] struct {
	name    string
	path    string // escaped path of the HTML screen
	vars    map[string]string
	ctrl    *controller.Controller[S, P]
	snap    controller.Snapshot[S, P]
	loc     *time.Location
	zoneErr error
	now     time.Time
	ticks   int
	zones   []string
}

func newViewContext[S, P any](name, path string, vars map[string]string, ctrl *controller.Controller[S, P], snap controller.Snapshot[S, P], now time.Time) *viewContext[S, P] {
	v := &viewContext[S, P]{
		name: name,
		path: path,
		vars: vars,
		ctrl: ctrl,
		snap: snap,
		loc:  time.UTC,
		now:  now,
	}
	if hasKey[S](controller.KeyTimezone) {
		v.loc, v.zoneErr = shaper.Zone(v.text(controller.KeyTimezone))
	}
	return v
}

func (v *viewContext[S, P]) text(key string) string {
	return viewstate.Text(v.snap.State, key)
}

func (v *viewContext[S, P]) relative() bool {
	return v.text(controller.KeyRelativeTime) == "true"
}

// href is the address the screen would have after mutate
func (v *viewContext[S, P]) href(mutate func(*S)) string {
	return withQuery(v.path, v.ctrl.Preview(mutate))
}

// hidden carries every non-empty state field except exclude
func (v *viewContext[S, P]) hidden(exclude ...string) []Field {
	skip := make(map[string]bool, len(exclude))
	for _, k := range exclude {
		skip[k] = true
	}
	var fields []Field
	for _, k := range viewstate.Keys[S]() {
		if skip[k] {
			continue
		}
		if value := v.text(k); value != "" {
			fields = append(fields, Field{Key: k, Value: value})
		}
	}
	return fields
}

func (v *viewContext[S, P]) formatTime(ts string) string {
	return shaper.FormatTime(ts, v.loc, v.relative(), v.now)
}

func (v *viewContext[S, P]) page(title string) Page {
	address := withQuery(v.path, viewstate.Encode(v.snap.State))
	p := Page{
		Screen:  v.name,
		Title:   title,
		URL:     address,
		ShareQR: qrHref(address),
		Nav:     navLinks,
	}
	if v.snap.Err != nil {
		p.Error = errorLine(v.snap.Err)
	}
	if hasKey[S](controller.KeyTimezone) {
		p.Display = v.display()
	}
	return p
}

func (v *viewContext[S, P]) display() *DisplayView {
	d := &DisplayView{
		Timezone:     v.text(controller.KeyTimezone),
		Custom:       v.text(controller.KeyCustomTimezone) == "true",
		TempTimezone: v.text(controller.KeyTempTimezone),
		Relative:     v.relative(),
		RelativeHref: v.href(controller.ToggleRelativeTime[S]()),
		ClearHref:    v.href(controller.ClearTempTimezone[S]()),
		DraftHidden:  v.hidden(controller.KeyTempTimezone),
		Zones: SelectForm{
			Op:     "timezone",
			Hidden: v.hidden(),
		},
	}
	if v.zoneErr != nil {
		d.ZoneError = v.zoneErr.Error()
	}
	for _, zone := range v.zones {
		label := zone
		if zone == shaper.LocalZone {
			name, _ := v.now.In(time.Local).Zone()
			label = name + " (Local Time)"
		}
		d.Zones.Options = append(d.Zones.Options, Option{
			Value:    zone,
			Label:    label,
			Selected: !d.Custom && zone == d.Timezone,
		})
	}
	d.Zones.Options = append(d.Zones.Options, Option{
		Value:    controller.CustomTimezone,
		Label:    "-- Enter Custom Time Zone --",
		Selected: d.Custom,
	})
	return d
}

// selectForm builds a filter dropdown over values. allLabel, when set, is
// the option that clears the filter.
func (v *viewContext[S, P]) selectForm(key, allLabel string, values []string) SelectForm {
	current := v.text(key)
	f := SelectForm{Op: "filter", Key: key, Hidden: v.hidden()}
	if allLabel != "" {
		f.Options = append(f.Options, Option{Value: "", Label: allLabel, Selected: current == ""})
	}
	for _, value := range values {
		f.Options = append(f.Options, Option{Value: value, Label: value, Selected: value == current})
	}
	return f
}

func (v *viewContext[S, P]) draftForm(key string) DraftForm {
	input := controller.DraftKey(key)
	return DraftForm{
		Key:       key,
		Input:     input,
		Draft:     v.text(input),
		Applied:   v.text(key),
		ClearHref: v.href(controller.ClearDraft[S](key)),
		Hidden:    v.hidden(input),
	}
}

func (v *viewContext[S, P]) sortLink(key string) SortLink {
	link := SortLink{Href: v.href(controller.ToggleSort[S](key))}
	if v.text(controller.KeySortKey) == key {
		link.Indicator = "▼"
		if v.text(controller.KeySortAsc) == "true" {
			link.Indicator = "▲"
		}
	}
	return link
}

func (v *viewContext[S, P]) sortLinks(keys ...string) map[string]SortLink {
	links := make(map[string]SortLink, len(keys))
	for _, k := range keys {
		links[k] = v.sortLink(k)
	}
	return links
}

func (v *viewContext[S, P]) pager() PagerView {
	p := PagerView{Pager: v.snap.Pager()}
	if p.CanPrev {
		p.PrevHref = v.href(controller.SetOffset[S](p.PrevOffset))
	}
	if p.CanNext {
		p.NextHref = v.href(controller.SetOffset[S](p.NextOffset))
	}
	p.Limits = SelectForm{Op: "limit", Key: controller.KeyLimit, Hidden: v.hidden()}
	for _, n := range limitOptions {
		value := strconv.Itoa(n)
		p.Limits.Options = append(p.Limits.Options, Option{Value: value, Label: value, Selected: n == p.Limit})
	}
	return p
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return "0s"
	}
	d := time.Duration(seconds * float64(time.Second))
	if d < time.Second {
		return fmt.Sprintf("%.2fs", seconds)
	}
	return d.Round(time.Second).String()
}
