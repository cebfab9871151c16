package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/covidash/internal/domain/aggregate"
	"github.com/okian/covidash/internal/domain/cases"
	"github.com/okian/covidash/internal/domain/chart"
	"github.com/okian/covidash/pkg/logger"
	"github.com/okian/covidash/pkg/metrics"
)

// View statuses.
const (
	StatusOK     = "ok"
	StatusNoData = "no_data"
)

// Figure names accepted by Figure.
const (
	FigureMap        = "map"
	FigureTimeseries = "timeseries"
	FigureSources    = "sources"
	FigureAge        = "age"
)

// FigureNames lists the figures in display order.
var FigureNames = []string{FigureMap, FigureTimeseries, FigureSources, FigureAge}

// Selection is the state of the three dashboard controls.
type Selection struct {
	MapOutcome   string `json:"map"`
	DailyOutcome string `json:"daily"`
	AgeGroup     string `json:"age"`
}

// DefaultSelection is what the dashboard shows on first load.
func DefaultSelection() Selection {
	return Selection{MapOutcome: cases.Total, DailyOutcome: cases.Total, AgeGroup: cases.All}
}

// Normalize fills empty controls with their defaults and validates the map
// outcome. Unknown daily outcomes and age groups are allowed; they simply
// match no records.
func (sel Selection) Normalize() (Selection, error) {
	def := DefaultSelection()
	if sel.MapOutcome == "" {
		sel.MapOutcome = def.MapOutcome
	}
	if sel.DailyOutcome == "" {
		sel.DailyOutcome = def.DailyOutcome
	}
	if sel.AgeGroup == "" {
		sel.AgeGroup = def.AgeGroup
	}
	if !cases.IsOutcomeSelector(sel.MapOutcome) {
		return sel, fmt.Errorf("%w: map outcome %q", ErrInvalidSelection, sel.MapOutcome)
	}
	return sel, nil
}

// Figures holds the four charts.
type Figures struct {
	Map        chart.Figure `json:"map"`
	Timeseries chart.Figure `json:"timeseries"`
	Sources    chart.Figure `json:"sources"`
	Age        chart.Figure `json:"age"`
}

func (f Figures) byName() map[string]chart.Figure {
	return map[string]chart.Figure{
		FigureMap:        f.Map,
		FigureTimeseries: f.Timeseries,
		FigureSources:    f.Sources,
		FigureAge:        f.Age,
	}
}

// View is everything one interaction renders.
type View struct {
	Status    string        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Selection Selection     `json:"selection"`
	Summary   chart.Summary `json:"summary"`
	Figures   Figures       `json:"figures"`
}

func noDataView(sel Selection, msg string) View {
	empty := chart.Empty()
	return View{
		Status:    StatusNoData,
		Message:   msg,
		Selection: sel,
		Figures:   Figures{Map: empty, Timeseries: empty, Sources: empty, Age: empty},
	}
}

// buildView recomputes every output from the immutable state.
func buildView(st *State, sel Selection, geojson any) View {
	t := st.Table
	return View{
		Status:    StatusOK,
		Selection: sel,
		Summary:   chart.Summaries(aggregate.Global(t)),
		Figures: Figures{
			Map:        chart.Map(aggregate.Geo(t), sel.MapOutcome, geojson, st.Boundaries.Extent()),
			Timeseries: chart.Timeline(aggregate.Daily(t, sel.DailyOutcome)),
			Sources:    chart.Sources(aggregate.Sources(t, sel.AgeGroup)),
			Age:        chart.AgeCombo(aggregate.Age(t)),
		},
	}
}

// Render recomputes the summary strings and the four figures for sel. A
// panic during the computation is logged and turned into a no data view;
// only a bad selection or a missing state yields an error.
func (s *Service) Render(ctx context.Context, sel Selection) (view View, err error) {
	st, err := s.State()
	if err != nil {
		return View{}, err
	}
	sel, err = sel.Normalize()
	if err != nil {
		return View{}, err
	}

	start := time.Now()
	defer func() {
		failed := false
		if r := recover(); r != nil {
			failed = true
			s.logger.Error(ctx, "render failed, serving no data view",
				logger.Any("panic", r),
				logger.Any("selection", sel),
			)
			metrics.RecordRenderFailure()
			view = noDataView(sel, "dashboard data could not be computed")
			err = nil
		}
		metrics.RecordRender(float64(time.Since(start)) / float64(time.Millisecond))
		s.countRender(failed)
	}()

	view = s.compute(st, sel, s.geojson(st))
	for name, fig := range view.Figures.byName() {
		if fig.IsEmpty() {
			metrics.RecordEmptyFigure(name)
		}
	}
	s.logger.Debug(ctx, "rendered view", logger.Any("selection", sel))
	return view, nil
}

// Figure renders a single named figure.
func (s *Service) Figure(ctx context.Context, name string, sel Selection) (chart.Figure, error) {
	known := false
	for _, n := range FigureNames {
		if n == name {
			known = true
			break
		}
	}
	if !known {
		return chart.Figure{}, fmt.Errorf("%w: %q", ErrUnknownFigure, name)
	}
	view, err := s.Render(ctx, sel)
	if err != nil {
		return chart.Figure{}, err
	}
	return view.Figures.byName()[name], nil
}

// Options lists the values each control accepts.
type Options struct {
	MapOutcomes   []string  `json:"map"`
	DailyOutcomes []string  `json:"daily"`
	AgeGroups     []string  `json:"age"`
	Defaults      Selection `json:"defaults"`
}

// Options returns the control values derived from the loaded data.
func (s *Service) Options(_ context.Context) (Options, error) {
	st, err := s.State()
	if err != nil {
		return Options{}, err
	}
	return Options{
		MapOutcomes:   append(aggregate.Outcomes(st.Table), cases.Total),
		DailyOutcomes: []string{cases.OutcomeResolved, cases.OutcomeFatal, cases.Total},
		AgeGroups:     append(aggregate.AgeGroups(st.Table), cases.All),
		Defaults:      DefaultSelection(),
	}, nil
}
