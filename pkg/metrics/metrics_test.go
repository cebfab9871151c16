package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given a manager built with options", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(
			WithNamespace("test_ns"),
			WithSubsystem("test_sub"),
			WithMetricPrefix("pfx"),
			WithHistogramBuckets([]float64{1, 10, 100}),
			WithRefreshInterval(5*time.Second),
			WithCustomLabels(map[string]string{"env": "test"}),
			WithPrometheusRegistry(registry),
		)

		Convey("Then the options should be applied", func() {
			So(m.RefreshInterval(), ShouldEqual, 5*time.Second)
			So(m.Enabled(), ShouldBeTrue)
			So(m.histogramBuckets, ShouldResemble, []float64{1, 10, 100})
		})

		Convey("And metric names should carry namespace, subsystem and prefix", func() {
			m.datasetRecords.Set(3)
			families, err := registry.Gather()
			So(err, ShouldBeNil)

			names := map[string]bool{}
			for _, f := range families {
				names[f.GetName()] = true
			}
			So(names["test_ns_test_sub_pfx_dataset_records"], ShouldBeTrue)
		})

		Convey("And empty values should keep the defaults", func() {
			d := NewManager(
				WithNamespace(""),
				WithRefreshInterval(0),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)
			So(d.namespace, ShouldEqual, "covidash")
			So(d.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
		})
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given the global manager", t, func() {
		previous, previousRegistry := globalManager, customRegistry
		defer func() { globalManager, customRegistry = previous, previousRegistry }()

		Convey("When it is reconfigured", func() {
			Configure(
				WithMetricPrefix("toronto"),
				WithRefreshInterval(2*time.Second),
				WithCustomLabels(map[string]string{"env": "staging"}),
				WithHistogramBuckets([]float64{1, 10}),
			)
			UpdateDatasetRecords(7)

			Convey("Then the new registry should serve the renamed metrics", func() {
				So(GetRegistry(), ShouldNotEqual, previousRegistry)
				So(RefreshInterval(), ShouldEqual, 2*time.Second)
				So(Enabled(), ShouldBeTrue)
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				var found bool
				for _, f := range families {
					if f.GetName() == "covidash_dashboard_toronto_dataset_records" {
						found = true
						So(f.GetMetric()[0].GetGauge().GetValue(), ShouldEqual, 7)
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "staging")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When it is disabled", func() {
			Configure(WithMetricsEnabled(false))
			UpdateDatasetRecords(9)
			UpdateSystemGoroutineCount(3)

			Convey("Then nothing should be recorded", func() {
				So(Enabled(), ShouldBeFalse)
				So(testutil.ToFloat64(globalManager.datasetRecords), ShouldEqual, 0)
				So(testutil.ToFloat64(globalManager.systemGoroutineCount), ShouldEqual, 0)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When dataset gauges are updated", func() {
			UpdateDatasetRecords(1200)
			UpdateDatasetRegions(96)
			loaded := time.Unix(1_700_000_000, 0)
			UpdateDatasetLoadedAt(loaded)

			Convey("Then the gauges should hold the values", func() {
				So(testutil.ToFloat64(globalManager.datasetRecords), ShouldEqual, 1200)
				So(testutil.ToFloat64(globalManager.datasetRegions), ShouldEqual, 96)
				So(testutil.ToFloat64(globalManager.datasetLoadedUnix), ShouldEqual, 1_700_000_000)
			})
		})

		Convey("When renders are recorded", func() {
			before := testutil.ToFloat64(globalManager.renderTotal)
			failuresBefore := testutil.ToFloat64(globalManager.renderFailures)
			emptyBefore := testutil.ToFloat64(globalManager.renderEmpty.WithLabelValues("sources"))

			RecordRender(4.5)
			RecordRender(6.0)
			RecordRenderFailure()
			RecordEmptyFigure("sources")

			Convey("Then the counters should advance", func() {
				So(testutil.ToFloat64(globalManager.renderTotal), ShouldEqual, before+2)
				So(testutil.ToFloat64(globalManager.renderFailures), ShouldEqual, failuresBefore+1)
				So(testutil.ToFloat64(globalManager.renderEmpty.WithLabelValues("sources")), ShouldEqual, emptyBefore+1)
			})
		})

		Convey("When HTTP and system metrics are recorded", func() {
			Convey("Then nothing should panic", func() {
				So(func() {
					RecordDatasetLoad("cases", 120)
					RecordDatasetLoad("boundaries", 3)
					RecordHTTPRequest("/api/view", "GET", "200")
					RecordHTTPRequestDuration("/api/view", "GET", "200", 12.5)
					RecordErrorByEndpoint("/api/view", "GET", "invalid_selection")
					UpdateSystemMemoryUsage(1 << 20)
					UpdateSystemGoroutineCount(12)
					RecordSystemGCPauseTime(0.3)
				}, ShouldNotPanic)
			})
		})

		Convey("Then the custom registry should be exposed", func() {
			So(GetRegistry(), ShouldNotBeNil)
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
		})
	})
}
