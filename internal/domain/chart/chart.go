// Package chart turns aggregates into plotly figure descriptions. The figures
// are plain data; the browser renders them with plotly.js.
package chart

import (
	"fmt"

	"github.com/okian/covidash/internal/domain/aggregate"
)

const (
	dateLayout   = "2006-01-02"
	featureIDKey = "properties.CFSAUID"
	textTemplate = "%{text:.2s}"
	axisColor    = "rgb(36,36,36)"
	noDataText   = "No data"
	noDataSize   = 20
	lineWidth    = 2
	centre       = 0.5

	titleTotalCases = "Total Cases"
	titleFatalCases = "Fatal Cases"
	titleReported   = "Date reported"
	titleSource     = "Source of Infection"
	titleAgeGroup   = "Age Group"

	TraceCasesCount = "Covid Cases Count"
	TraceFatalCount = "Number of fatal cases"
)

// Figure is a complete plotly figure.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// IsEmpty reports whether the figure carries no traces.
func (f Figure) IsEmpty() bool { return len(f.Data) == 0 }

// Trace is the subset of plotly trace attributes the dashboard uses.
type Trace struct {
	Type         string   `json:"type"`
	Name         string   `json:"name,omitempty"`
	Mode         string   `json:"mode,omitempty"`
	X            []string `json:"x,omitempty"`
	Y            []int    `json:"y,omitempty"`
	Locations    []string `json:"locations,omitempty"`
	Z            []int    `json:"z,omitempty"`
	GeoJSON      any      `json:"geojson,omitempty"`
	FeatureIDKey string   `json:"featureidkey,omitempty"`
	ColorScale   any      `json:"colorscale,omitempty"`
	ReverseScale bool     `json:"reversescale,omitempty"`
	ColorBar     *Bar     `json:"colorbar,omitempty"`
	Marker       *Marker  `json:"marker,omitempty"`
	Line         *Line    `json:"line,omitempty"`
	Text         []int    `json:"text,omitempty"`
	TextTemplate string   `json:"texttemplate,omitempty"`
	TextPosition string   `json:"textposition,omitempty"`
	YAxis        string   `json:"yaxis,omitempty"`
}

// Bar is a colour bar legend.
type Bar struct {
	Title *Title `json:"title,omitempty"`
}

// Marker colours bars by value.
type Marker struct {
	Color      []int `json:"color,omitempty"`
	ColorScale any   `json:"colorscale,omitempty"`
	ShowScale  bool  `json:"showscale,omitempty"`
}

// Line styles a line trace.
type Line struct {
	Color string `json:"color,omitempty"`
	Width int    `json:"width,omitempty"`
}

// Title is an axis or colour bar title.
type Title struct {
	Text string `json:"text"`
}

// Layout is the subset of plotly layout attributes the dashboard uses.
type Layout struct {
	XAxis       *Axis        `json:"xaxis,omitempty"`
	YAxis       *Axis        `json:"yaxis,omitempty"`
	YAxis2      *Axis        `json:"yaxis2,omitempty"`
	Geo         *Geo         `json:"geo,omitempty"`
	Margin      *Margin      `json:"margin,omitempty"`
	PlotBG      string       `json:"plot_bgcolor,omitempty"`
	PaperBG     string       `json:"paper_bgcolor,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Axis styles one cartesian axis. The booleans are always emitted because
// plotly's defaults differ from the zero values.
type Axis struct {
	Title      *Title `json:"title,omitempty"`
	ShowLine   bool   `json:"showline"`
	ShowGrid   bool   `json:"showgrid"`
	ZeroLine   bool   `json:"zeroline"`
	Visible    bool   `json:"visible"`
	LineColor  string `json:"linecolor,omitempty"`
	Ticks      string `json:"ticks,omitempty"`
	Overlaying string `json:"overlaying,omitempty"`
	Side       string `json:"side,omitempty"`
	Type       string `json:"type,omitempty"`
}

// Geo frames the choropleth. Without FitBounds the view is set by Center and
// the axis ranges.
type Geo struct {
	FitBounds  string      `json:"fitbounds,omitempty"`
	Visible    bool        `json:"visible"`
	Projection *Projection `json:"projection,omitempty"`
	Center     *GeoCenter  `json:"center,omitempty"`
	LonAxis    *GeoAxis    `json:"lonaxis,omitempty"`
	LatAxis    *GeoAxis    `json:"lataxis,omitempty"`
}

// GeoCenter is the map centre in degrees.
type GeoCenter struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// GeoAxis limits the visible longitude or latitude.
type GeoAxis struct {
	Range [2]float64 `json:"range"`
}

// Projection names the plotly map projection.
type Projection struct {
	Type string `json:"type"`
}

// Margin is the plot margin in pixels.
type Margin struct {
	R int `json:"r"`
	T int `json:"t"`
	L int `json:"l"`
	B int `json:"b"`
}

// Annotation places text on the paper.
type Annotation struct {
	Text      string  `json:"text"`
	XRef      string  `json:"xref"`
	YRef      string  `json:"yref"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	ShowArrow bool    `json:"showarrow"`
	Font      *Font   `json:"font,omitempty"`
}

// Font sets an annotation's size.
type Font struct {
	Size int `json:"size"`
}

// simpleWhite returns an axis styled like plotly's simple_white template.
func simpleWhite(title string) *Axis {
	return &Axis{
		Title:     &Title{Text: title},
		ShowLine:  true,
		Visible:   true,
		LineColor: axisColor,
		Ticks:     "outside",
	}
}

func simpleWhiteLayout() Layout {
	return Layout{PlotBG: "white", PaperBG: "white"}
}

// Empty is the placeholder figure shown when an aggregate has no rows.
func Empty() Figure {
	hidden := &Axis{}
	return Figure{
		Data: []Trace{},
		Layout: Layout{
			XAxis: hidden,
			YAxis: hidden,
			Annotations: []Annotation{{
				Text: noDataText,
				XRef: "paper",
				YRef: "paper",
				X:    centre,
				Y:    centre,
				Font: &Font{Size: noDataSize},
			}},
		},
	}
}

// Map colours every FSA by the selected outcome column (or TOTAL). geojson is
// either a URL the browser fetches or the decoded boundary collection.
// extent (minLon, minLat, maxLon, maxLat) frames the whole city; a zero
// extent falls back to fitting the coloured regions.
func Map(rows []aggregate.GeoRow, outcome string, geojson any, extent [4]float64) Figure {
	if len(rows) == 0 {
		return Empty()
	}
	locations := make([]string, len(rows))
	z := make([]int, len(rows))
	for i, r := range rows {
		locations[i] = r.FSA
		z[i] = r.Value(outcome)
	}
	return Figure{
		Data: []Trace{{
			Type:         "choropleth",
			Locations:    locations,
			Z:            z,
			GeoJSON:      geojson,
			FeatureIDKey: featureIDKey,
			ColorScale:   ScaleViridis,
			ReverseScale: true,
			ColorBar:     &Bar{Title: &Title{Text: outcome}},
		}},
		Layout: Layout{
			Geo:    frame(extent),
			Margin: &Margin{},
		},
	}
}

func frame(extent [4]float64) *Geo {
	g := &Geo{Projection: &Projection{Type: "mercator"}}
	if extent == [4]float64{} {
		g.FitBounds = "locations"
		return g
	}
	minLon, minLat, maxLon, maxLat := extent[0], extent[1], extent[2], extent[3]
	g.Center = &GeoCenter{Lon: (minLon + maxLon) * centre, Lat: (minLat + maxLat) * centre}
	g.LonAxis = &GeoAxis{Range: [2]float64{minLon, maxLon}}
	g.LatAxis = &GeoAxis{Range: [2]float64{minLat, maxLat}}
	return g
}

// Timeline draws the daily series as a single line.
func Timeline(points []aggregate.DailyPoint) Figure {
	if len(points) == 0 {
		return Empty()
	}
	x := make([]string, len(points))
	y := make([]int, len(points))
	for i, p := range points {
		x[i] = p.Date.Format(dateLayout)
		y[i] = p.Count
	}
	layout := simpleWhiteLayout()
	layout.XAxis = simpleWhite(titleReported)
	layout.XAxis.Type = "date"
	layout.YAxis = simpleWhite(titleTotalCases)
	return Figure{
		Data:   []Trace{{Type: "scatter", Mode: "lines", X: x, Y: y}},
		Layout: layout,
	}
}

// Sources draws one bar per source of infection. Unknown sources stay in the
// aggregate but are left off the chart.
func Sources(rows []aggregate.SourceRow) Figure {
	var x []string
	var y []int
	for _, r := range rows {
		if r.Source == aggregate.SourceUnknown {
			continue
		}
		x = append(x, r.Source)
		y = append(y, r.Count)
	}
	if len(x) == 0 {
		return Empty()
	}
	layout := simpleWhiteLayout()
	layout.XAxis = simpleWhite(titleSource)
	layout.YAxis = simpleWhite(titleTotalCases)
	return Figure{
		Data: []Trace{{
			Type:         "bar",
			X:            x,
			Y:            y,
			Marker:       &Marker{Color: y, ColorScale: ScaleSunsetDark, ShowScale: true},
			Text:         y,
			TextTemplate: textTemplate,
			TextPosition: "inside",
		}},
		Layout: layout,
	}
}

// AgeCombo draws total cases per age group as bars with the fatal count as a
// line on a secondary axis.
func AgeCombo(rows []aggregate.AgeRow) Figure {
	if len(rows) == 0 {
		return Empty()
	}
	groups := make([]string, len(rows))
	totals := make([]int, len(rows))
	fatal := make([]int, len(rows))
	for i, r := range rows {
		groups[i] = r.AgeGroup
		totals[i] = r.Total
		fatal[i] = r.Fatal
	}
	layout := simpleWhiteLayout()
	layout.XAxis = simpleWhite(titleAgeGroup)
	layout.YAxis = simpleWhite(titleTotalCases)
	layout.YAxis2 = simpleWhite(titleFatalCases)
	layout.YAxis2.Overlaying = "y"
	layout.YAxis2.Side = "right"
	return Figure{
		Data: []Trace{
			{
				Type:         "bar",
				Name:         TraceCasesCount,
				X:            groups,
				Y:            totals,
				Marker:       &Marker{Color: totals, ColorScale: ScaleBurg},
				Text:         totals,
				TextTemplate: textTemplate,
				TextPosition: "inside",
			},
			{
				Type:  "scatter",
				Mode:  "lines",
				Name:  TraceFatalCount,
				X:     groups,
				Y:     fatal,
				Line:  &Line{Color: "black", Width: lineWidth},
				YAxis: "y2",
			},
		},
		Layout: layout,
	}
}

// Summary holds the five headline strings.
type Summary struct {
	Confirmed string `json:"confirmed"`
	Probable  string `json:"probable"`
	Active    string `json:"active"`
	Fatal     string `json:"fatal"`
	Resolved  string `json:"resolved"`
}

// Summaries formats the global counts for the summary cards.
func Summaries(g aggregate.GlobalCounts) Summary {
	return Summary{
		Confirmed: fmt.Sprintf("Confirmed Cases: %d", g.Confirmed),
		Probable:  fmt.Sprintf("Probable Cases: %d", g.Probable),
		Active:    fmt.Sprintf("Active Cases: %d", g.Active),
		Fatal:     fmt.Sprintf("Fatal Cases: %d", g.Fatal),
		Resolved:  fmt.Sprintf("Resolved Cases: %d", g.Resolved),
	}
}
