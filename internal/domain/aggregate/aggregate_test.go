package aggregate_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/okian/covidash/internal/domain/aggregate"
	"github.com/okian/covidash/internal/domain/cases"
	. "github.com/smartystreets/goconvey/convey"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// randomTable builds a deterministic pseudo-random table for property checks.
func randomTable(seed int64, n int) cases.Table {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic fixture
	fsas := []string{"M5V", "M4E", "M1B", ""}
	ages := []string{"19 and younger", "20 to 29 Years", "90 and older", ""}
	sources := []string{"Pending", "Household Contact", "N/A - Outbreak associated", "Unknown/Missing", "Travel"}
	classes := []string{cases.ClassificationConfirmed, cases.ClassificationProbable}
	start := day(2020, 3, 1)

	recs := make([]cases.Record, n)
	for i := range recs {
		recs[i] = cases.Record{
			ID:                i + 1,
			ReportedDate:      start.AddDate(0, 0, rng.Intn(40)),
			AgeGroup:          ages[rng.Intn(len(ages))],
			FSA:               fsas[rng.Intn(len(fsas))],
			Classification:    classes[rng.Intn(len(classes))],
			Outcome:           cases.Outcomes[rng.Intn(len(cases.Outcomes))],
			SourceOfInfection: sources[rng.Intn(len(sources))],
		}
	}
	return cases.NewTable(recs)
}

func TestCounts(t *testing.T) {
	Convey("Given a counts map", t, func() {
		c := aggregate.Counts{"ACTIVE": 2}

		Convey("Then Get should default missing keys to zero", func() {
			So(c.Get("ACTIVE"), ShouldEqual, 2)
			So(c.Get("FATAL"), ShouldEqual, 0)
		})
	})
}

func TestGlobal(t *testing.T) {
	Convey("Given a table with a single classification and outcome", t, func() {
		table := cases.NewTable([]cases.Record{
			{Classification: cases.ClassificationConfirmed, Outcome: cases.OutcomeResolved},
			{Classification: cases.ClassificationConfirmed, Outcome: cases.OutcomeResolved},
		})

		Convey("Then unobserved values should count as zero", func() {
			g := aggregate.Global(table)
			So(g, ShouldResemble, aggregate.GlobalCounts{Confirmed: 2, Resolved: 2})
		})
	})

	Convey("Given an empty table", t, func() {
		Convey("Then every count should be zero", func() {
			So(aggregate.Global(cases.NewTable(nil)), ShouldResemble, aggregate.GlobalCounts{})
		})
	})
}

func TestGeo(t *testing.T) {
	Convey("Given two regions with mixed outcomes", t, func() {
		table := cases.NewTable([]cases.Record{
			{FSA: "M5V", Outcome: cases.OutcomeFatal},
			{FSA: "M5V", Outcome: cases.OutcomeActive},
			{FSA: "M4E", Outcome: cases.OutcomeResolved},
		})

		Convey("Then rows should follow first appearance with zero defaults", func() {
			So(aggregate.Geo(table), ShouldResemble, []aggregate.GeoRow{
				{FSA: "M5V", Active: 1, Fatal: 1, Resolved: 0, Total: 2},
				{FSA: "M4E", Active: 0, Fatal: 0, Resolved: 1, Total: 1},
			})
		})

		Convey("And Value should select the requested column", func() {
			row := aggregate.Geo(table)[0]
			So(row.Value(cases.OutcomeFatal), ShouldEqual, 1)
			So(row.Value(cases.OutcomeResolved), ShouldEqual, 0)
			So(row.Value(cases.Total), ShouldEqual, 2)
		})
	})

	Convey("Given random tables", t, func() {
		for seed := int64(1); seed <= 5; seed++ {
			table := randomTable(seed, 300)
			rows := aggregate.Geo(table)

			Convey("Then parts should sum to the total for seed "+string(rune('0'+seed)), func() {
				keys := map[string]bool{}
				for _, r := range rows {
					So(r.Active+r.Fatal+r.Resolved, ShouldEqual, r.Total)
					keys[r.FSA] = true
				}

				want := map[string]bool{}
				table.Each(func(r cases.Record) {
					if r.HasFSA() {
						want[r.FSA] = true
					}
				})
				So(keys, ShouldResemble, want)
			})
		}
	})
}

func TestAge(t *testing.T) {
	Convey("Given age groups discovered out of order", t, func() {
		table := cases.NewTable([]cases.Record{
			{AgeGroup: "90 and older", Outcome: cases.OutcomeFatal},
			{AgeGroup: "20 to 29 Years", Outcome: cases.OutcomeResolved},
			{AgeGroup: "19 and younger", Outcome: cases.OutcomeActive},
			{AgeGroup: "20 to 29 Years", Outcome: cases.OutcomeFatal},
			{AgeGroup: "", Outcome: cases.OutcomeFatal},
		})

		Convey("Then rows should be youngest to oldest and skip missing groups", func() {
			rows := aggregate.Age(table)
			So(len(rows), ShouldEqual, 3)
			So(rows[0].AgeGroup, ShouldEqual, "19 and younger")
			So(rows[1].AgeGroup, ShouldEqual, "20 to 29 Years")
			So(rows[2].AgeGroup, ShouldEqual, "90 and older")
		})

		Convey("And the fatal percentage should be computed per bracket", func() {
			rows := aggregate.Age(table)
			So(rows[1].Total, ShouldEqual, 2)
			So(rows[1].FatalPercent, ShouldEqual, 50.0)
			So(rows[2].FatalPercent, ShouldEqual, 100.0)
		})
	})

	Convey("Given a bracket whose outcomes are all unrecognised", t, func() {
		table := cases.NewTable([]cases.Record{
			{AgeGroup: "30 to 39 Years", Outcome: "UNKNOWN"},
		})

		Convey("Then the fatal percentage should be zero, not NaN", func() {
			rows := aggregate.Age(table)
			So(len(rows), ShouldEqual, 1)
			So(rows[0].Total, ShouldEqual, 0)
			So(rows[0].FatalPercent, ShouldEqual, 0.0)
		})
	})
}

func TestDaily(t *testing.T) {
	Convey("Given records on the first and third day", t, func() {
		table := cases.NewTable([]cases.Record{
			{ReportedDate: day(2021, 1, 1), Outcome: cases.OutcomeFatal},
			{ReportedDate: day(2021, 1, 3), Outcome: cases.OutcomeActive},
		})

		Convey("When filtering on FATAL", func() {
			series := aggregate.Daily(table, cases.OutcomeFatal)

			Convey("Then the whole table's day range should be zero-filled", func() {
				So(series, ShouldResemble, []aggregate.DailyPoint{
					{Date: day(2021, 1, 1), Count: 1},
					{Date: day(2021, 1, 2), Count: 0},
					{Date: day(2021, 1, 3), Count: 0},
				})
			})
		})

		Convey("When not filtering", func() {
			series := aggregate.Daily(table, cases.Total)

			Convey("Then the gap day should be zero-filled", func() {
				So(series, ShouldResemble, []aggregate.DailyPoint{
					{Date: day(2021, 1, 1), Count: 1},
					{Date: day(2021, 1, 2), Count: 0},
					{Date: day(2021, 1, 3), Count: 1},
				})
			})
		})
	})

	Convey("Given a filter that matches nothing", t, func() {
		table := cases.NewTable([]cases.Record{{ReportedDate: day(2021, 1, 1), Outcome: cases.OutcomeActive}})

		Convey("Then the series should hold only zero counts", func() {
			So(aggregate.Daily(table, cases.OutcomeFatal), ShouldResemble, []aggregate.DailyPoint{
				{Date: day(2021, 1, 1), Count: 0},
			})
		})
	})

	Convey("Given dated and undated records", t, func() {
		table := cases.NewTable([]cases.Record{
			{ReportedDate: day(2021, 1, 1), Outcome: cases.OutcomeActive},
			{Outcome: cases.OutcomeActive},
		})

		Convey("Then only the dated record should be counted", func() {
			So(aggregate.Daily(table, cases.Total), ShouldResemble, []aggregate.DailyPoint{
				{Date: day(2021, 1, 1), Count: 1},
			})
		})
	})

	Convey("Given a table without reported dates", t, func() {
		table := cases.NewTable([]cases.Record{{Outcome: cases.OutcomeActive}})

		Convey("Then the series should be empty", func() {
			So(aggregate.Daily(table, cases.Total), ShouldBeEmpty)
		})
	})

	Convey("Given random tables", t, func() {
		table := randomTable(42, 500)
		series := aggregate.Daily(table, cases.Total)

		Convey("Then days should be contiguous and counts should add up", func() {
			sum := 0
			for i, p := range series {
				sum += p.Count
				if i > 0 {
					So(p.Date.Sub(series[i-1].Date), ShouldEqual, 24*time.Hour)
				}
			}
			So(sum, ShouldEqual, table.Len())
		})
	})
}

func TestSources(t *testing.T) {
	Convey("Given the special source labels", t, func() {
		table := cases.NewTable([]cases.Record{
			{SourceOfInfection: "Pending", AgeGroup: "20 to 29 Years"},
			{SourceOfInfection: "N/A - Outbreak associated", AgeGroup: "20 to 29 Years"},
			{SourceOfInfection: "Unknown/Missing", AgeGroup: "90 and older"},
			{SourceOfInfection: "Household", AgeGroup: "90 and older"},
		})

		Convey("Then Pending should be dropped and the others renamed", func() {
			So(aggregate.Sources(table, cases.All), ShouldResemble, []aggregate.SourceRow{
				{Source: "Household", Count: 1},
				{Source: "Outbreak", Count: 1},
				{Source: "Unknown", Count: 1},
			})
		})

		Convey("And an age filter should restrict the rows", func() {
			So(aggregate.Sources(table, "20 to 29 Years"), ShouldResemble, []aggregate.SourceRow{
				{Source: "Outbreak", Count: 1},
			})
		})

		Convey("And an age filter matching nothing should return no rows", func() {
			So(aggregate.Sources(table, "40 to 49 Years"), ShouldBeEmpty)
		})
	})

	Convey("Given a record with no source of infection", t, func() {
		table := cases.NewTable([]cases.Record{
			{SourceOfInfection: "Community"},
			{SourceOfInfection: ""},
			{SourceOfInfection: "Household Contact"},
		})

		Convey("Then it should not be counted under an empty label", func() {
			So(aggregate.Sources(table, cases.All), ShouldResemble, []aggregate.SourceRow{
				{Source: "Community", Count: 1},
				{Source: "Household Contact", Count: 1},
			})
			_, keep := aggregate.NormalizeSource("")
			So(keep, ShouldBeFalse)
		})
	})

	Convey("Given random tables", t, func() {
		rows := aggregate.Sources(randomTable(7, 400), cases.All)

		Convey("Then no row should be labelled Pending", func() {
			for _, r := range rows {
				So(r.Source, ShouldNotEqual, aggregate.SourcePending)
			}
		})
	})
}

func TestIdempotence(t *testing.T) {
	Convey("Given the same unmutated table", t, func() {
		table := randomTable(99, 250)

		Convey("Then every aggregate should be identical across calls", func() {
			So(aggregate.Global(table), ShouldResemble, aggregate.Global(table))
			So(aggregate.Geo(table), ShouldResemble, aggregate.Geo(table))
			So(aggregate.Age(table), ShouldResemble, aggregate.Age(table))
			So(aggregate.Daily(table, cases.OutcomeResolved), ShouldResemble, aggregate.Daily(table, cases.OutcomeResolved))
			So(aggregate.Sources(table, cases.All), ShouldResemble, aggregate.Sources(table, cases.All))
		})
	})
}

func TestOptionLists(t *testing.T) {
	Convey("Given records with and without age groups", t, func() {
		table := cases.NewTable([]cases.Record{
			{AgeGroup: "", Outcome: cases.OutcomeFatal},
			{AgeGroup: "90 and older", Outcome: cases.OutcomeResolved},
			{AgeGroup: "19 and younger", Outcome: cases.OutcomeActive},
			{AgeGroup: "90 and older", Outcome: cases.OutcomeResolved},
		})

		Convey("Then outcomes should come from age-present rows only", func() {
			So(aggregate.Outcomes(table), ShouldResemble, []string{cases.OutcomeResolved, cases.OutcomeActive})
		})

		Convey("And age groups should be distinct and ordered", func() {
			So(aggregate.AgeGroups(table), ShouldResemble, []string{"19 and younger", "90 and older"})
		})
	})
}
