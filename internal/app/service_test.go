package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/covidash/internal/adapters/geo"
	"github.com/okian/covidash/internal/adapters/source"
	service "github.com/okian/covidash/internal/app"
	"github.com/okian/covidash/internal/domain/cases"
	"github.com/okian/covidash/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const boundariesJSON = `{"type": "FeatureCollection", "features": [
	{"type": "Feature", "properties": {"CFSAUID": "M5V"}, "geometry": {"type": "Point", "coordinates": [-79.39, 43.64]}},
	{"type": "Feature", "properties": {"CFSAUID": "M4E"}, "geometry": {"type": "Point", "coordinates": [-79.29, 43.67]}}]}`

type fakeData struct {
	table cases.Table
	err   error
}

func (f fakeData) Load(context.Context) (cases.Table, error) { return f.table, f.err }

type fakeBoundaries struct {
	err error
}

func (f fakeBoundaries) Load(context.Context) (*geo.Boundaries, error) {
	if f.err != nil {
		return nil, f.err
	}
	return geo.Parse([]byte(boundariesJSON))
}

func day(d int) time.Time {
	return time.Date(2021, 1, d, 0, 0, 0, 0, time.UTC)
}

func sampleTable() cases.Table {
	return cases.NewTable([]cases.Record{
		{ID: 1, ReportedDate: day(1), FSA: "M5V", AgeGroup: "90 and older", Classification: cases.ClassificationConfirmed, Outcome: cases.OutcomeFatal, SourceOfInfection: "N/A - Outbreak associated"},
		{ID: 2, ReportedDate: day(3), FSA: "M5V", AgeGroup: "20 to 29 Years", Classification: cases.ClassificationConfirmed, Outcome: cases.OutcomeActive, SourceOfInfection: "Household Contact"},
		{ID: 3, ReportedDate: day(3), FSA: "M4E", AgeGroup: "20 to 29 Years", Classification: cases.ClassificationProbable, Outcome: cases.OutcomeResolved, SourceOfInfection: "Pending"},
		{ID: 4, ReportedDate: day(2), FSA: "", AgeGroup: "", Classification: cases.ClassificationConfirmed, Outcome: cases.OutcomeResolved, SourceOfInfection: "Unknown/Missing"},
	})
}

func newStarted(opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithLogger(logger.NewNop()),
		service.WithDataSource(fakeData{table: sampleTable()}),
		service.WithBoundarySource(fakeBoundaries{}),
		service.WithBoundaryURL("/api/boundaries"),
	}
	svc := service.New(append(base, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		panic(err)
	}
	return svc
}

func TestService_Start(t *testing.T) {
	Convey("Given a service with working sources", t, func() {
		svc := service.New(
			service.WithLogger(logger.NewNop()),
			service.WithDataSource(fakeData{table: sampleTable()}),
			service.WithBoundarySource(fakeBoundaries{}),
		)
		defer svc.Stop()

		Convey("When it is queried before Start", func() {
			_, err := svc.Render(context.Background(), service.Selection{})

			Convey("Then it should report that no state is loaded", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(svc.GetStats()["started"], ShouldBeFalse)
			})
		})

		Convey("When starting the service", func() {
			err := svc.Start(context.Background())

			Convey("Then it should load the state", func() {
				So(err, ShouldBeNil)
				stats := svc.GetStats()
				So(stats["started"], ShouldBeTrue)
				So(stats["records"], ShouldEqual, 4)
				So(stats["regions"], ShouldEqual, 2)
			})

			Convey("And starting twice should be a no-op", func() {
				So(svc.Start(context.Background()), ShouldBeNil)
			})

			Convey("And Stop should drop the state", func() {
				svc.Stop()
				_, err := svc.State()
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})

	Convey("Given a dataset that cannot be fetched", t, func() {
		svc := service.New(
			service.WithDataSource(fakeData{err: source.ErrDataUnavailable}),
			service.WithBoundarySource(fakeBoundaries{}),
		)

		Convey("Then Start should fail with the source error", func() {
			err := svc.Start(context.Background())
			So(errors.Is(err, source.ErrDataUnavailable), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldBeFalse)
		})
	})

	Convey("Given a boundary file that cannot be read", t, func() {
		svc := service.New(
			service.WithDataSource(fakeData{table: sampleTable()}),
			service.WithBoundarySource(fakeBoundaries{err: geo.ErrBoundaryUnavailable}),
		)

		Convey("Then Start should fail with the boundary error", func() {
			So(errors.Is(svc.Start(context.Background()), geo.ErrBoundaryUnavailable), ShouldBeTrue)
		})
	})

	Convey("Given a service without sources", t, func() {
		svc := service.New()

		Convey("Then Start should refuse to run", func() {
			So(errors.Is(svc.Start(context.Background()), service.ErrNotStarted), ShouldBeTrue)
		})
	})
}

func TestService_Render(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := newStarted()
		defer svc.Stop()
		ctx := context.Background()

		Convey("When rendering the default selection", func() {
			view, err := svc.Render(ctx, service.Selection{})

			Convey("Then every output should be computed", func() {
				So(err, ShouldBeNil)
				So(view.Status, ShouldEqual, service.StatusOK)
				So(view.Selection, ShouldResemble, service.DefaultSelection())
				So(view.Summary.Confirmed, ShouldEqual, "Confirmed Cases: 3")
				So(view.Summary.Probable, ShouldEqual, "Probable Cases: 1")
				So(view.Summary.Fatal, ShouldEqual, "Fatal Cases: 1")
				So(view.Summary.Resolved, ShouldEqual, "Resolved Cases: 2")
			})

			Convey("And the map should reference the boundary URL", func() {
				tr := view.Figures.Map.Data[0]
				So(tr.GeoJSON, ShouldEqual, "/api/boundaries")
				So(tr.Locations, ShouldResemble, []string{"M5V", "M4E"})
				So(tr.Z, ShouldResemble, []int{2, 1})
			})

			Convey("And the map should be framed on the boundary extent", func() {
				geo := view.Figures.Map.Layout.Geo
				So(geo.LonAxis.Range, ShouldResemble, [2]float64{-79.39, -79.29})
				So(geo.LatAxis.Range, ShouldResemble, [2]float64{43.64, 43.67})
			})

			Convey("And the time series should cover every day", func() {
				So(view.Figures.Timeseries.Data[0].Y, ShouldResemble, []int{1, 1, 2})
			})

			Convey("And the source bars should omit Pending and Unknown", func() {
				So(view.Figures.Sources.Data[0].X, ShouldResemble, []string{"Household Contact", "Outbreak"})
			})
		})

		Convey("When an age group matches nothing", func() {
			view, err := svc.Render(ctx, service.Selection{AgeGroup: "40 to 49 Years"})

			Convey("Then the source chart should be the placeholder, not an error", func() {
				So(err, ShouldBeNil)
				So(view.Status, ShouldEqual, service.StatusOK)
				So(view.Figures.Sources.IsEmpty(), ShouldBeTrue)
				So(view.Figures.Age.IsEmpty(), ShouldBeFalse)
			})
		})

		Convey("When the daily filter is FATAL", func() {
			view, err := svc.Render(ctx, service.Selection{DailyOutcome: cases.OutcomeFatal})

			Convey("Then the series should keep the full date range", func() {
				So(err, ShouldBeNil)
				So(view.Figures.Timeseries.Data[0].X, ShouldResemble, []string{"2021-01-01", "2021-01-02", "2021-01-03"})
				So(view.Figures.Timeseries.Data[0].Y, ShouldResemble, []int{1, 0, 0})
			})
		})

		Convey("When the map outcome is unknown", func() {
			_, err := svc.Render(ctx, service.Selection{MapOutcome: "DEAD"})

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, service.ErrInvalidSelection), ShouldBeTrue)
			})
		})

		Convey("When rendering a single figure", func() {
			fig, err := svc.Figure(ctx, service.FigureAge, service.Selection{})

			Convey("Then only that figure should be returned", func() {
				So(err, ShouldBeNil)
				So(len(fig.Data), ShouldEqual, 2)
			})

			Convey("And an unknown name should be rejected", func() {
				_, err := svc.Figure(ctx, "pie", service.Selection{})
				So(errors.Is(err, service.ErrUnknownFigure), ShouldBeTrue)
			})
		})

		Convey("When counting renders", func() {
			before := svc.GetStats()["renders"].(int64)
			_, _ = svc.Render(ctx, service.Selection{})

			Convey("Then the counter should advance", func() {
				So(svc.GetStats()["renders"], ShouldEqual, before+1)
			})
		})
	})

	Convey("Given a service without a boundary URL", t, func() {
		svc := newStarted(service.WithBoundaryURL(""))

		Convey("Then the map should carry the boundaries inline", func() {
			view, err := svc.Render(context.Background(), service.Selection{})
			So(err, ShouldBeNil)
			So(view.Figures.Map.Data[0].GeoJSON, ShouldNotHaveSameTypeAs, "")
		})
	})
}

func TestService_Options(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := newStarted()
		opts, err := svc.Options(context.Background())

		Convey("Then the controls should be derived from the data", func() {
			So(err, ShouldBeNil)
			So(opts.MapOutcomes, ShouldResemble, []string{cases.OutcomeFatal, cases.OutcomeActive, cases.OutcomeResolved, cases.Total})
			So(opts.DailyOutcomes, ShouldResemble, []string{cases.OutcomeResolved, cases.OutcomeFatal, cases.Total})
			So(opts.AgeGroups, ShouldResemble, []string{"20 to 29 Years", "90 and older", cases.All})
			So(opts.Defaults, ShouldResemble, service.DefaultSelection())
		})
	})
}

func TestService_Regions(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := newStarted()
		regions, err := svc.Regions(context.Background())

		Convey("Then every boundary feature should be summarised in file order", func() {
			So(err, ShouldBeNil)
			So(regions, ShouldHaveLength, 2)
			So(regions[0].FSA, ShouldEqual, "M5V")
			So(regions[0].Centroid, ShouldResemble, [2]float64{-79.39, 43.64})
			So(regions[1].FSA, ShouldEqual, "M4E")
		})

		Convey("And a stopped service should refuse", func() {
			svc.Stop()
			_, err := svc.Regions(context.Background())
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})
}

func TestService_WithFileSources(t *testing.T) {
	Convey("Given the real loaders over fixture files", t, func() {
		svc := service.New(
			service.WithLogger(logger.NewNop()),
			service.WithDataSource(source.New(source.WithURL("../adapters/source/testdata/cases.csv"))),
			service.WithBoundarySource(geo.NewFileSource("../adapters/geo/testdata/fsa.geojson")),
		)
		defer svc.Stop()

		Convey("Then the service should start and render", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			view, err := svc.Render(context.Background(), service.Selection{})
			So(err, ShouldBeNil)
			So(view.Status, ShouldEqual, service.StatusOK)
			So(view.Summary.Confirmed, ShouldEqual, "Confirmed Cases: 4")
		})
	})
}
