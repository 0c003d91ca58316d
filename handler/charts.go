package handler

import (
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"rdr-dashboard/controller"
	"rdr-dashboard/shaper"
)

// Chart geometry in SVG user units
const (
	chartWidth  = 720.0
	chartHeight = 240.0
	chartLeft   = 56.0
	chartRight  = 12.0
	chartTop    = 12.0
	chartBottom = 44.0

	maxXTicks = 12
	yTicks    = 5

	barColor = "#4f7cac"
	kdeColor = "#2e8b57"
	refColor = "red"
)

func plotWidth() float64  { return chartWidth - chartLeft - chartRight }
func plotHeight() float64 { return chartHeight - chartTop - chartBottom }
func plotBottom() float64 { return chartTop + plotHeight() }

// Tick is an axis label at Pos, in user units along its axis
type Tick struct {
	Pos   float64 `json:"pos"`
	Label string  `json:"label"`
}

// Bar is one rectangle of a BarChart
type Bar struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// BarChart is a categorical histogram laid out for SVG
type BarChart struct {
	Title     string  `json:"title"`
	Scale     string  `json:"scale"`
	ScaleHref string  `json:"scale_href,omitempty"` // toggles Scale; empty when the scale is fixed
	Color     string  `json:"color"`
	Bars      []Bar   `json:"bars"`
	XTicks    []Tick  `json:"x_ticks"`
	YTicks    []Tick  `json:"y_ticks"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Left      float64 `json:"-"`
	Bottom    float64 `json:"-"`
}

// Empty reports whether there is nothing to draw
func (c BarChart) Empty() bool { return len(c.Bars) == 0 }

// RefLine is a labelled dashed reference line
type RefLine struct {
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
	Label string  `json:"label"`
}

// LineChart is the duration density curve laid out for SVG
type LineChart struct {
	Title      string    `json:"title"`
	XScale     string    `json:"x_scale"`
	YScale     string    `json:"y_scale"`
	XScaleHref string    `json:"x_scale_href"`
	YScaleHref string    `json:"y_scale_href"`
	Points     string    `json:"points"`
	XTicks     []Tick    `json:"x_ticks"`
	YTicks     []Tick    `json:"y_ticks"`
	Refs       []RefLine `json:"refs,omitempty"`
	Color      string    `json:"color"`
	RefColor   string    `json:"ref_color"`
	Width      float64   `json:"width"`
	Height     float64   `json:"height"`
	Left       float64   `json:"-"`
	Bottom     float64   `json:"-"`
}

// Empty reports whether there is nothing to draw
func (c LineChart) Empty() bool { return c.Points == "" }

// SeriesLine is one classifier:label line. Segments are polylines split
// where the label was not reported.
type SeriesLine struct {
	Key      string   `json:"key"`
	Color    string   `json:"color"`
	Segments []string `json:"segments"`
}

// ClassifierChart is the classifier timeline laid out for SVG
type ClassifierChart struct {
	Lines  []SeriesLine `json:"lines"`
	XTicks []Tick       `json:"x_ticks"`
	YTicks []Tick       `json:"y_ticks"`
	Points int          `json:"points"`
	Width  float64      `json:"width"`
	Height float64      `json:"height"`
	Left   float64      `json:"-"`
	Bottom float64      `json:"-"`
}

// Empty reports whether there is nothing to draw
func (c ClassifierChart) Empty() bool { return c.Points == 0 }

func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return humanize.Comma(int64(v))
	}
	return strconv.FormatFloat(v, 'g', 3, 64)
}

func point(x, y float64) string {
	return strconv.FormatFloat(x, 'f', 1, 64) + "," + strconv.FormatFloat(y, 'f', 1, 64)
}

// barFraction maps v in [0, max] to [0, 1]. The log scale uses log10(1+v)
// so empty bins stay at the baseline.
func barFraction(v, max float64, scale string) float64 {
	if max <= 0 || v <= 0 {
		return 0
	}
	if scale == controller.ScaleLog {
		return math.Log10(1+v) / math.Log10(1+max)
	}
	return v / max
}

func newBarChart(title string, labels []string, values []float64, scale string) BarChart {
	c := BarChart{
		Title:  title,
		Scale:  scale,
		Color:  barColor,
		Bars:   make([]Bar, 0, len(values)),
		Width:  chartWidth,
		Height: chartHeight,
		Left:   chartLeft,
		Bottom: plotBottom(),
	}
	if len(values) == 0 {
		return c
	}

	max := 0.0
	for _, v := range values {
		max = math.Max(max, v)
	}
	slot := plotWidth() / float64(len(values))
	step := (len(values) + maxXTicks - 1) / maxXTicks
	for i, v := range values {
		h := barFraction(v, max, scale) * plotHeight()
		x := chartLeft + float64(i)*slot
		c.Bars = append(c.Bars, Bar{
			X:     x + slot*0.1,
			Y:     plotBottom() - h,
			W:     slot * 0.8,
			H:     h,
			Label: labels[i],
			Value: v,
		})
		if i%step == 0 {
			c.XTicks = append(c.XTicks, Tick{Pos: x + slot/2, Label: labels[i]})
		}
	}

	for _, v := range barTickValues(max, scale) {
		c.YTicks = append(c.YTicks, Tick{
			Pos:   plotBottom() - barFraction(v, max, scale)*plotHeight(),
			Label: formatNumber(v),
		})
	}
	return c
}

func barTickValues(max float64, scale string) []float64 {
	if max <= 0 {
		return []float64{0}
	}
	if scale == controller.ScaleLog {
		ticks := []float64{0}
		for p := 1.0; p <= max; p *= 10 {
			ticks = append(ticks, p)
		}
		if ticks[len(ticks)-1] != max {
			ticks = append(ticks, max)
		}
		return ticks
	}
	ticks := make([]float64, 0, yTicks)
	for i := 0; i < yTicks; i++ {
		v := max * float64(i) / float64(yTicks-1)
		if max >= yTicks-1 {
			v = math.Round(v)
		}
		ticks = append(ticks, v)
	}
	return ticks
}

// DateChart draws the filled per-day histogram. Its scale is fixed.
func DateChart(days []shaper.DateCount) BarChart {
	labels := make([]string, len(days))
	values := make([]float64, len(days))
	for i, d := range days {
		labels[i], values[i] = d.Date, float64(d.Count)
	}
	return newBarChart("RDRs per Day", labels, values, controller.ScaleLinear)
}

// DurationChart draws the duration histogram
func DurationChart(ranges []shaper.RangeCount, scale, scaleHref string) BarChart {
	labels := make([]string, len(ranges))
	values := make([]float64, len(ranges))
	for i, r := range ranges {
		labels[i], values[i] = r.Range, float64(r.Count)
	}
	c := newBarChart("Duration Histogram", labels, values, scale)
	c.ScaleHref = scaleHref
	return c
}

// LabelChart draws a per-machine or per-RCM histogram
func LabelChart(title string, counts []shaper.LabelCount) BarChart {
	labels := make([]string, len(counts))
	values := make([]float64, len(counts))
	for i, l := range counts {
		labels[i], values[i] = l.Label, float64(l.Count)
	}
	return newBarChart(title, labels, values, controller.ScaleLinear)
}

// axis maps data values to [0, 1]. A log axis only accepts positive values.
type axis struct {
	lo, hi float64
	log    bool
}

func newAxis(values []float64, scale string, fromZero bool) axis {
	a := axis{lo: math.Inf(1), hi: math.Inf(-1), log: scale == controller.ScaleLog}
	if fromZero && !a.log {
		a.lo, a.hi = 0, 0
	}
	for _, v := range values {
		if !a.valid(v) {
			continue
		}
		a.lo, a.hi = math.Min(a.lo, v), math.Max(a.hi, v)
	}
	return a
}

func (a axis) valid(v float64) bool { return !a.log || v > 0 }

func (a axis) frac(v float64) float64 {
	if a.hi <= a.lo {
		return 0.5
	}
	if a.log {
		return (math.Log10(v) - math.Log10(a.lo)) / (math.Log10(a.hi) - math.Log10(a.lo))
	}
	return (v - a.lo) / (a.hi - a.lo)
}

func (a axis) ticks() []float64 {
	if math.IsInf(a.lo, 0) || a.hi <= a.lo {
		if math.IsInf(a.lo, 0) {
			return nil
		}
		return []float64{a.lo}
	}
	if a.log {
		var ticks []float64
		for p := math.Pow(10, math.Ceil(math.Log10(a.lo))); p <= a.hi; p *= 10 {
			ticks = append(ticks, p)
		}
		if len(ticks) >= 2 {
			return ticks
		}
		return []float64{a.lo, a.hi}
	}
	ticks := make([]float64, 0, yTicks)
	for i := 0; i < yTicks; i++ {
		ticks = append(ticks, a.lo+(a.hi-a.lo)*float64(i)/float64(yTicks-1))
	}
	return ticks
}

// KDEChart draws the duration density with its mean and uniform reference
// lines. Points a log axis cannot show are left out.
func KDEChart(points []shaper.KDEPoint, xScale, yScale, xHref, yHref string) LineChart {
	c := LineChart{
		Title:      "Duration Density",
		XScale:     xScale,
		YScale:     yScale,
		XScaleHref: xHref,
		YScaleHref: yHref,
		Color:      kdeColor,
		RefColor:   refColor,
		Width:      chartWidth,
		Height:     chartHeight,
		Left:       chartLeft,
		Bottom:     plotBottom(),
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.X, p.Density
	}
	ax := newAxis(xs, xScale, false)
	ay := newAxis(ys, yScale, true)
	px := func(v float64) float64 { return chartLeft + ax.frac(v)*plotWidth() }
	py := func(v float64) float64 { return plotBottom() - ay.frac(v)*plotHeight() }

	coords := make([]string, 0, len(points))
	for _, p := range points {
		if ax.valid(p.X) && ay.valid(p.Density) {
			coords = append(coords, point(px(p.X), py(p.Density)))
		}
	}
	c.Points = strings.Join(coords, " ")
	if c.Points == "" {
		return c
	}

	for _, v := range ax.ticks() {
		c.XTicks = append(c.XTicks, Tick{Pos: px(v), Label: formatNumber(roundTo(v, 3))})
	}
	for _, v := range ay.ticks() {
		c.YTicks = append(c.YTicks, Tick{Pos: py(v), Label: strconv.FormatFloat(v, 'g', 3, 64)})
	}

	mean, uniform, ok := shaper.KDEReference(points)
	if !ok {
		return c
	}
	if ax.valid(mean) {
		if f := ax.frac(mean); f >= 0 && f <= 1 {
			x := px(mean)
			c.Refs = append(c.Refs, RefLine{X1: x, Y1: chartTop, X2: x, Y2: plotBottom(), Label: "Mean"})
		}
	}
	if ay.valid(uniform) {
		if f := ay.frac(uniform); f >= 0 && f <= 1 {
			y := py(uniform)
			c.Refs = append(c.Refs, RefLine{X1: chartLeft, Y1: y, X2: chartLeft + plotWidth(), Y2: y, Label: "Uniform Density"})
		}
	}
	return c
}

func roundTo(v float64, digits int) float64 {
	f, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'g', digits, 64), 64)
	return f
}

// TimelineChart draws one 0/1 line per visible classifier:label over the
// points in time order. Points sit at even spacing by index, not by time.
// tickLabel formats the timestamps picked by shaper.ClassifierTicks.
func TimelineChart(points []shaper.ClassifierPoint, lines []string, hidden map[string]bool, ticks int, tickLabel func(string) string) ClassifierChart {
	c := ClassifierChart{
		Points: len(points),
		Width:  chartWidth,
		Height: chartHeight,
		Left:   chartLeft,
		Bottom: plotBottom(),
		YTicks: []Tick{
			{Pos: plotBottom(), Label: "0"},
			{Pos: chartTop, Label: "1"},
		},
	}
	if len(points) == 0 {
		return c
	}

	index := make(map[string]int, len(points))
	px := func(i int) float64 {
		if len(points) == 1 {
			return chartLeft + plotWidth()/2
		}
		return chartLeft + float64(i)*plotWidth()/float64(len(points)-1)
	}
	for i, p := range points {
		index[p.Time] = i
	}

	for _, key := range lines {
		if hidden[key] {
			continue
		}
		line := SeriesLine{Key: key, Color: shaper.StringToColor(key)}
		var run []string
		flush := func() {
			if len(run) > 0 {
				line.Segments = append(line.Segments, strings.Join(run, " "))
				run = nil
			}
		}
		for i, p := range points {
			v, ok := p.Values[key]
			if !ok {
				flush()
				continue
			}
			run = append(run, point(px(i), plotBottom()-float64(v)*plotHeight()))
		}
		flush()
		c.Lines = append(c.Lines, line)
	}

	for _, t := range shaper.ClassifierTicks(points, ticks) {
		c.XTicks = append(c.XTicks, Tick{Pos: px(index[t]), Label: tickLabel(t)})
	}
	return c
}
