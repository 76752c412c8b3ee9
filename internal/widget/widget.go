// Package widget renders the published sensor surface as an HTML summary
// table. Rendering is pull-based and stateless: every call recomputes the
// view from the records it is handed, with no cross-render cache.
package widget

import (
	"html/template"
	"io"

	"github.com/couchcryptid/cfa-fire-forecast/internal/domain"
	"github.com/couchcryptid/cfa-fire-forecast/internal/sensor"
)

// Cell is one district-day in the table.
type Cell struct {
	Rating   string
	Colour   string
	Severity int
	FireBan  bool
	Date     string
}

// Row is one configured district.
type Row struct {
	Slug   string
	Name   string
	Health domain.FeedHealth
	Cells  [domain.MaxForecastDays]Cell
}

// Data is everything a single render needs.
type Data struct {
	Title         string
	DayHeaders    [domain.MaxForecastDays]string
	Rows          []Row
	ShowStatusDot bool
	Health        domain.FeedHealth
	Attribution   string
}

// Build assembles render data from published sensor records. It reads only
// the published reading surface, never the pipeline, and treats missing or
// malformed readings defensively: an absent sensor renders as UNKNOWN with
// no fire ban rather than an error. The footer health is the worst health
// across the given districts (failed dominates degraded dominates ok).
func Build(title string, showStatusDot bool, prefix string, records []sensor.Record) Data {
	data := Data{
		Title:         title,
		ShowStatusDot: showStatusDot,
		Rows:          make([]Row, 0, len(records)),
		Attribution:   domain.Attribution,
	}
	for i := range data.DayHeaders {
		data.DayHeaders[i] = sensor.DayLabel(i)
	}

	states := make([]domain.FeedHealth, 0, len(records))
	for _, record := range records {
		data.Rows = append(data.Rows, buildRow(prefix, record))
		states = append(states, record.Health)
	}
	data.Health = domain.WorstHealth(states)

	return data
}

func buildRow(prefix string, record sensor.Record) Row {
	row := Row{
		Slug:   record.DistrictSlug,
		Name:   record.DistrictName,
		Health: record.Health,
	}
	for i := range row.Cells {
		row.Cells[i] = buildCell(prefix, record, i)
	}
	return row
}

func buildCell(prefix string, record sensor.Record, index int) Cell {
	cell := Cell{
		Rating: domain.UnknownLabel,
		Colour: domain.Unknown.Colour,
	}

	rating, ok := record.Reading(sensor.RatingName(prefix, record.DistrictSlug, index))
	if !ok {
		return cell
	}
	cell.Rating = rating.State
	if colour, ok := rating.Attributes["colour"].(string); ok {
		cell.Colour = colour
	}
	if severity, ok := rating.Attributes["severity"].(int); ok {
		cell.Severity = severity
	}
	if date, ok := rating.Attributes["date"].(string); ok {
		cell.Date = date
	}

	if ban, ok := record.Reading(sensor.FireBanName(prefix, record.DistrictSlug, index)); ok {
		cell.FireBan = ban.State == "Yes"
	}
	return cell
}

// Render writes the widget HTML for the given data.
func Render(w io.Writer, data Data) error {
	return widgetTemplate.Execute(w, data)
}

var widgetTemplate = template.Must(template.New("widget").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { font-family: sans-serif; background: #1c1c1c; color: #eee; margin: 1rem; }
  table { border-collapse: collapse; width: 100%; }
  th, td { padding: 0.5rem 0.75rem; text-align: left; border-bottom: 1px solid #333; }
  .pill { display: inline-block; padding: 0.15rem 0.6rem; border-radius: 999px;
          color: #111; font-weight: 600; font-size: 0.85rem; }
  .tfb { color: #ff5252; font-weight: 700; margin-left: 0.4rem;
         animation: blink 1s step-start infinite; }
  @keyframes blink { 50% { opacity: 0; } }
  .footer { margin-top: 0.75rem; font-size: 0.8rem; color: #999; }
  .dot { display: inline-block; width: 0.6rem; height: 0.6rem; border-radius: 50%;
         margin-right: 0.35rem; vertical-align: middle; }
  .dot-ok { background: #4caf50; }
  .dot-degraded { background: #f5c518; }
  .dot-failed { background: #cc2200; }
</style>
</head>
<body>
<h2>{{.Title}}</h2>
<table>
  <thead>
    <tr>
      <th>District</th>
      {{range .DayHeaders}}<th>{{.}}</th>{{end}}
    </tr>
  </thead>
  <tbody>
    {{range .Rows}}
    <tr>
      <td>{{.Name}}</td>
      {{range .Cells}}
      <td>
        <span class="pill" style="background: {{.Colour}}"{{if .Date}} title="{{.Date}}"{{end}}>{{.Rating}}</span>
        {{- if .FireBan}}<span class="tfb" title="Total Fire Ban">TFB</span>{{end}}
      </td>
      {{end}}
    </tr>
    {{end}}
  </tbody>
</table>
<div class="footer">
  {{if .ShowStatusDot}}<span class="dot dot-{{.Health}}"></span>feed {{.Health}} &middot; {{end}}{{.Attribution}}
</div>
</body>
</html>
`))
