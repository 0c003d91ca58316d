package handler

import (
	"html/template"
	"strconv"

	"github.com/dustin/go-humanize"
)

var funcMap = template.FuncMap{
	"f1":    func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) },
	"comma": func(n int) string { return humanize.Comma(int64(n)) },
}

// pageTemplates maps a template name to its content definitions
var pageTemplates = map[string]string{
	"root":    tmplRoot,
	"sets":    tmplSets,
	"aliases": tmplAliases,
	"rdrs":    tmplRDRs,
	"details": tmplDetails,
	"loading": tmplLoading,
	"error":   tmplError,
}

// parsePages parses the shared layout once and clones it for every page
func parsePages() (map[string]*template.Template, error) {
	base, err := template.New("layout").Funcs(funcMap).Parse(tmplBase + tmplPartials + tmplCharts)
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(pageTemplates))
	for name, content := range pageTemplates {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if t, err = t.Parse(content); err != nil {
			return nil, err
		}
		pages[name] = t
	}
	return pages, nil
}

// ── Base layout ───────────────────────────────────────────────────────────────

const tmplBase = `
{{define "base"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>{{.Title}}</title>
<style>
*{box-sizing:border-box;margin:0;padding:0}
body{font-family:system-ui,sans-serif;background:#fafafa;color:#1f2328;font-size:14px;line-height:1.5}
a{color:#0969da;text-decoration:none}
a:hover{text-decoration:underline}
nav{background:#24292f;padding:8px 16px;display:flex;gap:16px;align-items:center}
nav .brand{color:#fff;font-weight:700;margin-right:8px}
nav a{color:#d0d7de}
nav .share{margin-left:auto}
main{padding:16px}
h1{font-size:18px;margin-bottom:12px}
table{width:100%;border-collapse:collapse;font-size:13px;background:#fff}
th{text-align:left;padding:6px 10px;border-bottom:2px solid #d0d7de;white-space:nowrap}
td{padding:5px 10px;border-bottom:1px solid #eaeef2;vertical-align:top}
.mono{font-family:monospace}
.dim{color:#57606a}
.err{color:red}
.tag{display:inline-block;padding:0 6px;margin:0 2px 2px 0;border-radius:4px;background:#eaeef2;font-size:12px}
.filters{display:flex;gap:12px;flex-wrap:wrap;align-items:center;margin-bottom:12px}
.inline{display:inline-flex;gap:4px;align-items:center}
.pager{display:flex;gap:12px;align-items:center;margin:12px 0}
.charts{display:grid;grid-template-columns:repeat(auto-fit,minmax(480px,1fr));gap:12px;margin-bottom:16px}
.section{background:#fff;border:1px solid #d0d7de;border-radius:6px;margin-bottom:16px}
.section-hdr{padding:6px 12px;border-bottom:1px solid #d0d7de;font-weight:600;display:flex;gap:12px}
.pad{padding:12px}
svg.chart{width:100%;height:auto;font-size:10px}
svg.chart .axis{stroke:#57606a}
.legend{display:flex;flex-wrap:wrap;gap:10px;padding:8px 12px}
.meta td:first-child{color:#57606a;width:140px}
</style>
</head>
<body>
<nav>
  <span class="brand">RDR Dashboard</span>
  {{range .Nav}}<a href="{{.Href}}">{{.Label}}</a>{{end}}
  {{if .ShareQR}}<a class="share" href="{{.ShareQR}}" target="_blank">Share QR</a>{{end}}
</nav>
<main>
{{if .Error}}
<h1>{{.Title}}</h1>
<p class="err">{{.Error}}</p>
{{else}}
{{template "content" .}}
{{end}}
</main>
</body>
</html>
{{end}}
`

// ── Form partials ─────────────────────────────────────────────────────────────

const tmplPartials = `
{{define "hidden"}}{{range .}}<input type="hidden" name="{{.Key}}" value="{{.Value}}">{{end}}{{end}}

{{define "select"}}<form method="get" class="inline">{{template "hidden" .Hidden}}
<input type="hidden" name="op" value="{{.Op}}">{{if .Key}}<input type="hidden" name="key" value="{{.Key}}">{{end}}
<select name="value" onchange="this.form.submit()">{{range .Options}}<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>{{end}}</select>
<noscript><button type="submit">Apply</button></noscript>
</form>{{end}}

{{define "draft"}}<form method="get" class="inline">{{template "hidden" .Hidden}}
<input type="hidden" name="op" value="commit"><input type="hidden" name="key" value="{{.Key}}">
<input type="text" name="{{.Input}}" value="{{.Draft}}">
<button type="submit">Search</button>{{if .Applied}} <a href="{{.ClearHref}}">Clear</a>{{end}}
</form>{{end}}

{{define "display"}}{{with .Display}}<div class="filters">
<label>Time Zone</label> {{template "select" .Zones}}
{{if .Custom}}<form method="get" class="inline">{{template "hidden" .DraftHidden}}
<input type="hidden" name="op" value="commit_timezone">
<input type="text" name="temp_timezone" value="{{.TempTimezone}}" placeholder="e.g. Europe/Zurich">
<button type="submit">Apply</button> <a href="{{.ClearHref}}">Clear</a>
</form>{{end}}
<a href="{{.RelativeHref}}">{{if .Relative}}Show Absolute Time{{else}}Show Relative Time{{end}}</a>
{{if .ZoneError}}<span class="err">{{.ZoneError}}</span>{{end}}
</div>{{end}}{{end}}

{{define "pager"}}<div class="pager">
{{if .PrevHref}}<a href="{{.PrevHref}}">&laquo; Prev</a>{{else}}<span class="dim">&laquo; Prev</span>{{end}}
<span>{{if .Len}}{{.First}}&ndash;{{.Last}}{{else}}0{{end}} of {{comma .Total}}</span>
{{if .NextHref}}<a href="{{.NextHref}}">Next &raquo;</a>{{else}}<span class="dim">Next &raquo;</span>{{end}}
<label>Rows per page</label> {{template "select" .Limits}}
</div>{{end}}
`

// ── Charts ────────────────────────────────────────────────────────────────────

const tmplCharts = `
{{define "barchart"}}<div class="section">
<div class="section-hdr">{{.Title}}{{if .ScaleHref}} <a href="{{.ScaleHref}}">Y: {{.Scale}}</a>{{end}}</div>
{{if .Empty}}<p class="pad dim">No data</p>{{else}}
<svg class="chart" viewBox="0 0 {{f1 .Width}} {{f1 .Height}}">
<line class="axis" x1="{{f1 .Left}}" y1="{{f1 .Bottom}}" x2="{{f1 .Width}}" y2="{{f1 .Bottom}}"/>
{{range .YTicks}}<text x="{{f1 $.Left}}" y="{{f1 .Pos}}" dx="-4" dy="3" text-anchor="end">{{.Label}}</text>{{end}}
{{range .Bars}}<rect x="{{f1 .X}}" y="{{f1 .Y}}" width="{{f1 .W}}" height="{{f1 .H}}" fill="{{$.Color}}"><title>{{.Label}}: {{.Value}}</title></rect>{{end}}
{{range .XTicks}}<text x="{{f1 .Pos}}" y="{{f1 $.Bottom}}" dy="14" text-anchor="middle">{{.Label}}</text>{{end}}
</svg>{{end}}
</div>{{end}}

{{define "linechart"}}<div class="section">
<div class="section-hdr">{{.Title}} <a href="{{.XScaleHref}}">X: {{.XScale}}</a> <a href="{{.YScaleHref}}">Y: {{.YScale}}</a></div>
{{if .Empty}}<p class="pad dim">No data</p>{{else}}
<svg class="chart" viewBox="0 0 {{f1 .Width}} {{f1 .Height}}">
<line class="axis" x1="{{f1 .Left}}" y1="{{f1 .Bottom}}" x2="{{f1 .Width}}" y2="{{f1 .Bottom}}"/>
{{range .YTicks}}<text x="{{f1 $.Left}}" y="{{f1 .Pos}}" dx="-4" dy="3" text-anchor="end">{{.Label}}</text>{{end}}
{{range .XTicks}}<text x="{{f1 .Pos}}" y="{{f1 $.Bottom}}" dy="14" text-anchor="middle">{{.Label}}</text>{{end}}
<polyline points="{{.Points}}" fill="none" stroke="{{.Color}}" stroke-width="2"/>
{{range .Refs}}<line x1="{{f1 .X1}}" y1="{{f1 .Y1}}" x2="{{f1 .X2}}" y2="{{f1 .Y2}}" stroke="{{$.RefColor}}" stroke-dasharray="4 4"/>
<text x="{{f1 .X1}}" y="{{f1 .Y1}}" dx="4" dy="-3" fill="{{$.RefColor}}">{{.Label}}</text>{{end}}
</svg>{{end}}
</div>{{end}}

{{define "timeline"}}{{if .Empty}}<p class="pad dim">No classifier data</p>{{else}}
<svg class="chart" viewBox="0 0 {{f1 .Width}} {{f1 .Height}}">
<line class="axis" x1="{{f1 .Left}}" y1="{{f1 .Bottom}}" x2="{{f1 .Width}}" y2="{{f1 .Bottom}}"/>
{{range .YTicks}}<text x="{{f1 $.Left}}" y="{{f1 .Pos}}" dx="-4" dy="3" text-anchor="end">{{.Label}}</text>{{end}}
{{range .XTicks}}<text x="{{f1 .Pos}}" y="{{f1 $.Bottom}}" dy="14" text-anchor="middle">{{.Label}}</text>{{end}}
{{range .Lines}}{{$color := .Color}}{{range .Segments}}<polyline points="{{.}}" fill="none" stroke="{{$color}}" stroke-width="1.5"/>{{end}}{{end}}
</svg>{{end}}{{end}}
`

// ── Screens ───────────────────────────────────────────────────────────────────

const tmplRoot = `
{{define "content"}}
<h1>{{.Title}}</h1>
{{if .Message}}<p class="pad">{{.Message}}</p>{{end}}
<table>
<tr><th>Instruction</th><th>Endpoint</th></tr>
{{range .Endpoints}}<tr><td>{{.Instruction}}</td><td class="mono">{{if .Href}}<a href="{{.Href}}">{{.Path}}</a>{{else}}{{.Path}}{{end}}</td></tr>{{end}}
</table>
{{end}}
`

const tmplSets = `
{{define "content"}}
<h1>{{.Title}}</h1>
{{template "display" .}}
<div class="filters">
<label>Name</label> {{template "draft" .Name}}
<label>Tag</label> {{template "draft" .Tag}}
<label>Author</label> {{template "select" .Authors}}
</div>
<table>
<tr>
<th>Set</th><th>Description</th><th>Created By</th>
<th>{{with index .Sort "created_at"}}<a href="{{.Href}}">Created At {{.Indicator}}</a>{{end}}</th>
<th>{{with index .Sort "rdr_count"}}<a href="{{.Href}}">Count {{.Indicator}}</a>{{end}}</th>
<th>{{with index .Sort "rdr_duration"}}<a href="{{.Href}}">Duration {{.Indicator}}</a>{{end}}</th>
<th>Tags</th>
</tr>
{{range .Rows}}<tr>
<td><a href="{{.Href}}">{{.Set}}</a></td>
<td>{{.Description}}</td>
<td>{{.CreatedBy}}</td>
<td>{{.CreatedAt}}</td>
<td>{{comma .Count}}</td>
<td>{{.Duration}}</td>
<td>{{range .Tags}}<span class="tag">{{.}}</span>{{end}}</td>
</tr>{{else}}<tr><td colspan="7" class="dim">No sets found</td></tr>{{end}}
</table>
{{template "pager" .Pager}}
{{end}}
`

const tmplAliases = `
{{define "content"}}
<h1>{{.Title}}</h1>
{{template "display" .}}
<div class="filters">
<label>Alias</label> {{template "select" .Aliases}}
<label>ID</label> {{template "select" .RobotIDs}}
</div>
<table>
<tr><th>Alias</th><th>ID</th><th>Start</th><th>End</th></tr>
{{range .Rows}}<tr>
<td><a href="{{.AliasHref}}">{{.Alias}}</a></td>
<td class="mono"><a href="{{.IDHref}}">{{.ID}}</a></td>
<td>{{.Start}}</td>
<td>{{.End}}</td>
</tr>{{else}}<tr><td colspan="4" class="dim">No aliases found</td></tr>{{end}}
</table>
{{template "pager" .Pager}}
{{end}}
`

const tmplRDRs = `
{{define "content"}}
<h1>{{.Title}}</h1>
{{template "display" .}}
<div class="charts">
{{template "barchart" .Dates}}
{{template "barchart" .Durations}}
{{template "linechart" .Density}}
{{template "barchart" .Machines}}
{{template "barchart" .RCMs}}
</div>
<div class="filters">
<label>Alias</label> {{template "select" .Aliases}}
<label>ID</label> {{template "select" .RobotIDs}}
</div>
<table>
<tr>
<th>RDR</th><th>Alias</th><th>RCM ID</th>
<th>{{with index .Sort "start_time"}}<a href="{{.Href}}">Start {{.Indicator}}</a>{{end}}</th>
<th>{{with index .Sort "end_time"}}<a href="{{.Href}}">End {{.Indicator}}</a>{{end}}</th>
<th>{{with index .Sort "duration"}}<a href="{{.Href}}">Duration {{.Indicator}}</a>{{end}}</th>
<th>Details</th>
</tr>
{{range .Rows}}<tr>
<td class="mono">{{if .FoxgloveURL}}<a href="{{.FoxgloveURL}}" target="_blank" rel="noopener">{{.RDR}}</a>{{else}}{{.RDR}}{{end}}</td>
<td><a href="{{.AliasHref}}">{{.Alias}}</a></td>
<td class="mono"><a href="{{.IDHref}}">{{.ID}}</a></td>
<td>{{.Start}}</td>
<td>{{.End}}</td>
<td>{{.Duration}}</td>
<td><a href="{{.DetailsHref}}">Details</a></td>
</tr>{{else}}<tr><td colspan="7" class="dim">No RDRs found</td></tr>{{end}}
</table>
{{template "pager" .Pager}}
{{end}}
`

const tmplDetails = `
{{define "content"}}
<h1>{{.Title}}</h1>
{{template "display" .}}
<table class="meta section">
<tr><td>Alias</td><td><a href="{{.AliasHref}}">{{.Alias}}</a></td></tr>
<tr><td>ID</td><td class="mono"><a href="{{.IDHref}}">{{.ID}}</a></td></tr>
<tr><td>Start</td><td>{{.Start}}</td></tr>
<tr><td>End</td><td>{{.End}}</td></tr>
<tr><td>Duration</td><td>{{.Duration}}</td></tr>
<tr><td>Foxglove</td><td>{{if .FoxgloveURL}}<a href="{{.FoxgloveURL}}" target="_blank" rel="noopener">Open in Foxglove</a>{{end}} <span class="dim">{{.FoxgloveStatus}}</span></td></tr>
</table>

<div class="section">
<div class="section-hdr">Classifiers</div>
{{range .ClassifierErrors}}<p class="pad err">{{.}}</p>{{end}}
<div class="legend">{{range .Lines}}<a href="{{.Href}}"><input type="checkbox"{{if not .Hidden}} checked{{end}} disabled>
<svg width="10" height="10"><rect width="10" height="10" fill="{{.Color}}"/></svg> {{.Key}}</a>{{end}}</div>
{{template "timeline" .Timeline}}
</div>

<div class="section">
<div class="section-hdr">Logs</div>
{{if .LogError}}<p class="pad err">{{.LogError}}</p>{{else}}
<div class="filters pad">
<form method="get" class="inline">{{template "hidden" .LogFilter.Hidden}}
<input type="hidden" name="op" value="log_filter">
<label>Filter by path</label> <input type="text" name="value" value="{{.LogFilter.Value}}">
<button type="submit">Filter</button>
</form>
<span class="dim">{{len .Logs}} of {{.LogCount}} logs</span>
</div>
<table>
<tr><th>Start</th><th>End</th><th>Duration</th><th>Local Path</th></tr>
{{range .Logs}}<tr>
<td>{{.Start}} <span class="dim">{{.SinceStart}}</span></td>
<td>{{.End}}</td>
<td>{{.Duration}}</td>
<td class="mono">{{.LocalPath}}</td>
</tr>{{else}}<tr><td colspan="4" class="dim">No logs</td></tr>{{end}}
</table>
{{end}}
</div>
{{end}}
`

const tmplLoading = `
{{define "content"}}
<h1>{{.Message}}</h1>
<p class="dim">This page reloads automatically. <a href="{{.URL}}">Reload now</a></p>
{{end}}
`

const tmplError = `
{{define "content"}}{{end}}
`
