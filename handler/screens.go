package handler

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"rdr-dashboard/controller"
	"rdr-dashboard/model"
	"rdr-dashboard/shaper"
	"rdr-dashboard/viewstate"
)

// screen describes one page of the dashboard
type screen[S, P any] struct {
	name    string
	loading string
	fetch   func(h *DashboardHandler, vars map[string]string) controller.Fetcher[S, P]
	view    func(v *viewContext[S, P]) any
}

func paramsFetch[S, P any](get func(ctx context.Context, params url.Values) (P, error)) controller.Fetcher[S, P] {
	return func(ctx context.Context, state S) (P, error) {
		params, err := viewstate.Params(state)
		if err != nil {
			var zero P
			return zero, err
		}
		return get(ctx, params)
	}
}

func machineHref(alias string) string { return "/machines/" + url.PathEscape(alias) }
func rcmHref(id string) string        { return "/rcms/" + url.PathEscape(id) }

// Endpoint is one backend endpoint listed on the instructions page
type Endpoint struct {
	Instruction string `json:"instruction"`
	Path        string `json:"path"`
	Href        string `json:"href,omitempty"` // set when the dashboard has a screen for it
}

// RootView is the instructions page
type RootView struct {
	Page
	Message   string     `json:"message"`
	Endpoints []Endpoint `json:"endpoints"`
}

var rootScreen = screen[viewstate.Root, model.Root]{
	name:    "root",
	loading: "Loading instructions...",
	fetch: func(h *DashboardHandler, _ map[string]string) controller.Fetcher[viewstate.Root, model.Root] {
		return func(ctx context.Context, _ viewstate.Root) (model.Root, error) {
			return h.client.Root(ctx)
		}
	},
	view: func(v *viewContext[viewstate.Root, model.Root]) any {
		root := v.snap.Page
		view := RootView{
			Page:      v.page("RDR Dashboard"),
			Message:   root.Message,
			Endpoints: make([]Endpoint, 0, len(root.Endpoints)),
		}
		for instruction, path := range root.Endpoints {
			e := Endpoint{Instruction: instruction, Path: path}
			if path == "/sets" || path == "/aliases" {
				e.Href = path
			}
			view.Endpoints = append(view.Endpoints, e)
		}
		sort.Slice(view.Endpoints, func(i, j int) bool {
			return view.Endpoints[i].Instruction < view.Endpoints[j].Instruction
		})
		return view
	},
}

// SetRow is one row of the sets table
type SetRow struct {
	Set         string   `json:"set"`
	Href        string   `json:"href"`
	Description string   `json:"description"`
	CreatedBy   string   `json:"created_by"`
	CreatedAt   string   `json:"created_at"`
	Count       int      `json:"count"`
	Duration    string   `json:"duration"`
	Tags        []string `json:"tags"`
}

// SetsView is the sets screen
type SetsView struct {
	Page
	Rows    []SetRow            `json:"rows"`
	Authors SelectForm          `json:"authors"`
	Name    DraftForm           `json:"name"`
	Tag     DraftForm           `json:"tag"`
	Sort    map[string]SortLink `json:"sort"`
	Pager   PagerView           `json:"pager"`
}

var setsScreen = screen[viewstate.Sets, model.SetList]{
	name:    "sets",
	loading: "Loading sets...",
	fetch: func(h *DashboardHandler, _ map[string]string) controller.Fetcher[viewstate.Sets, model.SetList] {
		return paramsFetch[viewstate.Sets](h.client.Sets)
	},
	view: func(v *viewContext[viewstate.Sets, model.SetList]) any {
		list := v.snap.Page
		view := SetsView{
			Page:    v.page("Sets"),
			Rows:    make([]SetRow, 0, len(list.Sets)),
			Authors: v.selectForm("author", "All Authors", list.ValidAuthors),
			Name:    v.draftForm("name"),
			Tag:     v.draftForm("tag"),
			Sort:    v.sortLinks("created_at", "rdr_count", "rdr_duration"),
			Pager:   v.pager(),
		}
		for _, s := range list.Sets {
			view.Rows = append(view.Rows, SetRow{
				Set:         s.Set,
				Href:        "/rdrsets/" + url.PathEscape(s.Set),
				Description: s.Description,
				CreatedBy:   s.CreatedBy,
				CreatedAt:   v.formatTime(s.CreatedAt),
				Count:       s.Count,
				Duration:    formatDuration(s.Duration),
				Tags:        s.Tags,
			})
		}
		return view
	},
}

// AliasRow is one row of the aliases table
type AliasRow struct {
	Alias     string `json:"alias"`
	AliasHref string `json:"alias_href"`
	ID        string `json:"id"`
	IDHref    string `json:"id_href"`
	Start     string `json:"start"`
	End       string `json:"end"`
}

// AliasesView is the aliases screen
type AliasesView struct {
	Page
	Rows     []AliasRow `json:"rows"`
	Aliases  SelectForm `json:"aliases"`
	RobotIDs SelectForm `json:"robot_ids"`
	Pager    PagerView  `json:"pager"`
}

var aliasesScreen = screen[viewstate.Aliases, model.AliasList]{
	name:    "aliases",
	loading: "Loading aliases...",
	fetch: func(h *DashboardHandler, _ map[string]string) controller.Fetcher[viewstate.Aliases, model.AliasList] {
		return paramsFetch[viewstate.Aliases](h.client.Aliases)
	},
	view: func(v *viewContext[viewstate.Aliases, model.AliasList]) any {
		list := v.snap.Page
		view := AliasesView{
			Page:     v.page("Aliases"),
			Rows:     make([]AliasRow, 0, len(list.Aliases)),
			Aliases:  v.selectForm("alias", "All Aliases", list.ValidAliases),
			RobotIDs: v.selectForm("robot_id", "All IDs", list.ValidIDs),
			Pager:    v.pager(),
		}
		for _, a := range list.Aliases {
			view.Rows = append(view.Rows, AliasRow{
				Alias:     a.Alias,
				AliasHref: machineHref(a.Alias),
				ID:        a.ID,
				IDHref:    rcmHref(a.ID),
				Start:     v.formatTime(a.StartTime),
				End:       v.formatTime(a.EndTime),
			})
		}
		return view
	},
}

// RDRRow is one row of an RDR list
type RDRRow struct {
	RDR         string `json:"rdr"`
	FoxgloveURL string `json:"foxglove_url,omitempty"`
	Alias       string `json:"alias"`
	AliasHref   string `json:"alias_href"`
	ID          string `json:"id"`
	IDHref      string `json:"id_href"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Duration    string `json:"duration"`
	DetailsHref string `json:"details_href"`
}

// RDRListView is the RDR list of a set, machine or RCM
type RDRListView struct {
	Page
	Type       string              `json:"type"`
	Identifier string              `json:"identifier"`
	Rows       []RDRRow            `json:"rows"`
	Aliases    SelectForm          `json:"aliases"`
	RobotIDs   SelectForm          `json:"robot_ids"`
	Sort       map[string]SortLink `json:"sort"`
	Pager      PagerView           `json:"pager"`

	Dates     BarChart  `json:"date_histogram"`
	Durations BarChart  `json:"duration_histogram"`
	Density   LineChart `json:"duration_kde"`
	Machines  BarChart  `json:"machine_histogram"`
	RCMs      BarChart  `json:"rcm_histogram"`
}

var rdrListScreen = screen[viewstate.RDRs, model.RDRList]{
	name:    "rdrs",
	loading: "Loading RDRs...",
	fetch: func(h *DashboardHandler, vars map[string]string) controller.Fetcher[viewstate.RDRs, model.RDRList] {
		kind, param := vars["kind"], vars["param"]
		return paramsFetch[viewstate.RDRs](func(ctx context.Context, params url.Values) (model.RDRList, error) {
			return h.client.RDRs(ctx, kind, param, params)
		})
	},
	view: func(v *viewContext[viewstate.RDRs, model.RDRList]) any {
		list, s := v.snap.Page, v.snap.State
		kind, identifier := list.Type, list.Identifier
		if kind == "" {
			kind, identifier = v.vars["kind"], v.vars["param"]
		}
		view := RDRListView{
			Page:       v.page(fmt.Sprintf("Robot Data Ranges of %s %s", kind, identifier)),
			Type:       kind,
			Identifier: identifier,
			Rows:       make([]RDRRow, 0, len(list.RDRs)),
			Aliases:    v.selectForm("alias", "All Aliases", list.ValidAliases),
			RobotIDs:   v.selectForm("robot_id", "All IDs", list.ValidIDs),
			Sort:       v.sortLinks("start_time", "end_time", "duration"),
			Pager:      v.pager(),

			Dates: DateChart(shaper.FillDateHistogram(list.DateHistogram)),
			Durations: DurationChart(shaper.SortDurationHistogram(list.DurationHistogram),
				s.HistScale, v.href(controller.ToggleScale[viewstate.RDRs]("hist_scale"))),
			Density: KDEChart(shaper.SortKDE(list.DurationKDE), s.KDEXScale, s.KDEYScale,
				v.href(controller.ToggleScale[viewstate.RDRs]("kde_x_scale")),
				v.href(controller.ToggleScale[viewstate.RDRs]("kde_y_scale"))),
			Machines: LabelChart("RDRs per Machine", shaper.MachineHistogram(list.MachineHistogram)),
			RCMs:     LabelChart("RDRs per RCM", shaper.RCMHistogram(list.RCMHistogram)),
		}
		for _, r := range list.RDRs {
			view.Rows = append(view.Rows, RDRRow{
				RDR:         r.RDR,
				FoxgloveURL: r.FoxgloveURL,
				Alias:       r.Alias,
				AliasHref:   machineHref(r.Alias),
				ID:          r.ID,
				IDHref:      rcmHref(r.ID),
				Start:       v.formatTime(r.StartTime),
				End:         v.formatTime(r.EndTime),
				Duration:    formatDuration(r.Duration),
				DetailsHref: "/rdrs/" + url.PathEscape(r.RDR),
			})
		}
		return view
	},
}

// LineToggle is the legend entry that shows or hides a classifier line
type LineToggle struct {
	Key    string `json:"key"`
	Color  string `json:"color"`
	Hidden bool   `json:"hidden"`
	Href   string `json:"href"`
}

// LogRow is one row of the logs table
type LogRow struct {
	Start      string `json:"start"`
	SinceStart string `json:"since_start"`
	End        string `json:"end"`
	Duration   string `json:"duration"`
	LocalPath  string `json:"local_path"`
}

// LogFilterForm is the text box filtering the logs by local path
type LogFilterForm struct {
	Value  string  `json:"value"`
	Hidden []Field `json:"-"`
}

// DetailsView is the details screen of one RDR
type DetailsView struct {
	Page
	RDR            string `json:"rdr"`
	Alias          string `json:"alias"`
	AliasHref      string `json:"alias_href"`
	ID             string `json:"id"`
	IDHref         string `json:"id_href"`
	Start          string `json:"start"`
	End            string `json:"end"`
	Duration       string `json:"duration"`
	FoxgloveURL    string `json:"foxglove_url,omitempty"`
	FoxgloveStatus string `json:"foxglove_status,omitempty"`

	Lines            []LineToggle    `json:"lines"`
	Timeline         ClassifierChart `json:"timeline"`
	ClassifierErrors []string        `json:"classifier_errors,omitempty"`

	Logs      []LogRow      `json:"logs"`
	LogCount  int           `json:"log_count"`
	LogError  string        `json:"log_error,omitempty"`
	LogFilter LogFilterForm `json:"log_filter"`
}

var detailsScreen = screen[viewstate.Details, model.RDRDetails]{
	name:    "details",
	loading: "Loading RDR details...",
	fetch: func(h *DashboardHandler, vars map[string]string) controller.Fetcher[viewstate.Details, model.RDRDetails] {
		param := vars["param"]
		return func(ctx context.Context, _ viewstate.Details) (model.RDRDetails, error) {
			return h.client.RDR(ctx, param)
		}
	},
	view: func(v *viewContext[viewstate.Details, model.RDRDetails]) any {
		d, s := v.snap.Page, v.snap.State
		name := d.RDR
		if name == "" {
			name = v.vars["param"]
		}
		view := DetailsView{
			Page:           v.page("Details of " + name),
			RDR:            name,
			Alias:          d.Alias,
			AliasHref:      machineHref(d.Alias),
			ID:             d.ID,
			IDHref:         rcmHref(d.ID),
			Start:          v.formatTime(d.StartTime),
			End:            v.formatTime(d.EndTime),
			Duration:       formatDuration(d.Duration),
			FoxgloveURL:    d.FoxgloveURL,
			FoxgloveStatus: d.FoxgloveStatus,
			LogFilter: LogFilterForm{
				Value:  s.LogFilter,
				Hidden: v.hidden(controller.KeyLogFilter),
			},
		}

		hidden := controller.HiddenLines(s.HiddenLines)
		lines := shaper.ClassifierLines(d.Classifiers)
		for _, key := range lines {
			view.Lines = append(view.Lines, LineToggle{
				Key:    key,
				Color:  shaper.StringToColor(key),
				Hidden: hidden[key],
				Href:   v.href(controller.ToggleLine[viewstate.Details](key)),
			})
		}
		view.Timeline = TimelineChart(shaper.ClassifierSeries(d.Classifiers), lines, hidden, v.ticks,
			func(ts string) string { return shaper.FormatTime(ts, v.loc, false, v.now) })
		view.ClassifierErrors = shaper.ClassifierErrors(d.Classifiers)

		logs, logErr := shaper.LogsOrError(d.Logs)
		view.LogError = logErr
		view.LogCount = len(logs)
		rows := shaper.FilterLogs(logs, s.LogFilter)
		view.Logs = make([]LogRow, 0, len(rows))
		for _, l := range rows {
			view.Logs = append(view.Logs, LogRow{
				Start:      v.formatTime(l.StartTime),
				SinceStart: shaper.SinceStart(l.StartTime, d.StartTime),
				End:        v.formatTime(l.EndTime),
				Duration:   formatDuration(l.Duration),
				LocalPath:  l.LocalPath,
			})
		}
		return view
	},
}
