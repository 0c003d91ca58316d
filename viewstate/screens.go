package viewstate

// Display holds the presentation-only settings shared by every screen.
// None of them is sent to the backend.
type Display struct {
	RelativeTime   bool   `query:"relative_time" url:"-"`
	Timezone       string `query:"timezone,default=UTC" url:"-"`
	CustomTimezone bool   `query:"custom_timezone" url:"-"`
	TempTimezone   string `query:"temp_timezone" url:"-"`
}

// Charts holds the axis scale toggles of the RDR list charts.
type Charts struct {
	HistScale string `query:"hist_scale,default=linear" url:"-"`
	KDEXScale string `query:"kde_x_scale,default=linear" url:"-"`
	KDEYScale string `query:"kde_y_scale,default=linear" url:"-"`
}

// Sets is the view state of /sets.
type Sets struct {
	Name     string `query:"name" url:"name,omitempty"`
	TempName string `query:"temp_name" url:"-"`
	Author   string `query:"author" url:"author,omitempty"`
	SortKey  string `query:"sort_key" url:"sort_key,omitempty"`
	SortAsc  bool   `query:"sort_asc" url:"sort_asc"`
	Tag      string `query:"tag" url:"tag,omitempty"`
	TempTag  string `query:"temp_tag" url:"-"`
	Limit    int    `query:"limit,default=50,size" url:"limit,omitempty"`
	Offset   int    `query:"offset,page" url:"offset,omitempty"`
	Display
}

// Aliases is the view state of /aliases.
type Aliases struct {
	Alias   string `query:"alias" url:"alias,omitempty"`
	RobotID string `query:"robot_id" url:"robot_id,omitempty"`
	Limit   int    `query:"limit,default=50,size" url:"limit,omitempty"`
	Offset  int    `query:"offset,page" url:"offset,omitempty"`
	Display
}

// RDRs is the view state of /rdrsets/{p}, /machines/{p} and /rcms/{p}.
type RDRs struct {
	Alias   string `query:"alias" url:"alias,omitempty"`
	RobotID string `query:"robot_id" url:"robot_id,omitempty"`
	SortKey string `query:"sort_key" url:"sort_key,omitempty"`
	SortAsc bool   `query:"sort_asc" url:"sort_asc"`
	Limit   int    `query:"limit,default=50,size" url:"limit,omitempty"`
	Offset  int    `query:"offset,page" url:"offset,omitempty"`
	Charts
	Display
}

// Details is the view state of /rdrs/{p}. The details request takes no
// query parameters, so every field is presentation-only.
type Details struct {
	HiddenLines string `query:"hidden_lines" url:"-"` // comma separated classifier:label keys
	LogFilter   string `query:"log_filter" url:"-"`
	Display
}

// Root is the view state of the instructions page, which takes no parameters.
type Root struct{}
