package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/covidash/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":3000")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.LogFormat, convey.ShouldEqual, config.FormatText)
			convey.So(cfg.Debug, convey.ShouldBeFalse)
			convey.So(cfg.BoundaryPath, convey.ShouldEqual, "GeoJSON/Toronto_fsa.geojson")
			convey.So(cfg.FetchTimeout(), convey.ShouldEqual, time.Minute)
			convey.So(cfg.MetricsEnabled, convey.ShouldBeTrue)
			convey.So(cfg.MetricsRefresh(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one bad field", t, func() {
		cases := map[string]func(*config.Config){
			"data_url":             func(c *config.Config) { c.DataURL = "" },
			"boundary_path":        func(c *config.Config) { c.BoundaryPath = "" },
			"fetch_timeout_ms":     func(c *config.Config) { c.FetchTimeoutMS = 0 },
			"compression_min_size": func(c *config.Config) { c.CompressionMinSize = -1 },
			"log_format":           func(c *config.Config) { c.LogFormat = "xml" },
			"metrics_refresh_ms":   func(c *config.Config) { c.MetricsRefreshMS = 0 },
		}

		convey.Convey("Then each should fail validation naming the field", func() {
			for field, mutate := range cases {
				cfg := config.New(context.Background())
				mutate(cfg)
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, field)
			}
		})
	})
}
