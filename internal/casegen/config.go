// Package casegen writes synthetic dashboard fixtures and checks a running
// dashboard against the invariants its outputs must hold.
package casegen

import (
	"errors"
	"fmt"
	"time"

	"github.com/okian/covidash/pkg/logger"
)

// Defaults for both commands.
const (
	DefaultRecords = 5000
	DefaultRegions = 40
	DefaultDays    = 120
	DefaultBaseURL = "http://localhost:3000"
	DefaultTimeout = 30 * time.Second
	DefaultWorkers = 4
)

// File names written by Generate.
const (
	CasesFile      = "cases.csv"
	BoundariesFile = "boundaries.geojson"
)

// ErrInvalidConfig is returned when a command is configured with values it
// cannot run with.
var ErrInvalidConfig = errors.New("casegen: invalid config")

// GenerateConfig controls fixture generation.
type GenerateConfig struct {
	Records int       // number of case rows
	Regions int       // number of distinct FSAs, at most maxRegions
	Days    int       // reported dates are spread over this many days
	Start   time.Time // first reported date
	Seed    uint64    // same seed, same files
	OutDir  string    // created if missing
	Logger  logger.Logger
}

// DefaultGenerateConfig returns the generate defaults writing into dir.
func DefaultGenerateConfig(dir string) GenerateConfig {
	return GenerateConfig{
		Records: DefaultRecords,
		Regions: DefaultRegions,
		Days:    DefaultDays,
		Start:   time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC),
		Seed:    1,
		OutDir:  dir,
	}
}

func (c GenerateConfig) validate() error {
	switch {
	case c.Records < 0:
		return fmt.Errorf("%w: records must not be negative", ErrInvalidConfig)
	case c.Regions < 1 || c.Regions > maxRegions:
		return fmt.Errorf("%w: regions must be within 1..%d, got %d", ErrInvalidConfig, maxRegions, c.Regions)
	case c.Days < 1:
		return fmt.Errorf("%w: days must be positive", ErrInvalidConfig)
	case c.OutDir == "":
		return fmt.Errorf("%w: output directory is required", ErrInvalidConfig)
	}
	return nil
}

// VerifyConfig controls verification of a running dashboard.
type VerifyConfig struct {
	BaseURL string
	Timeout time.Duration // per request
	Workers int           // concurrent selections
	Logger  logger.Logger
}

func (c VerifyConfig) validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: url is required", ErrInvalidConfig)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	}
	return nil
}

func loggerOr(l logger.Logger) logger.Logger {
	if l == nil {
		return logger.NewNop()
	}
	return l
}
