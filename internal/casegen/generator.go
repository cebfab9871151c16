package casegen

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/okian/covidash/internal/adapters/geo"
	"github.com/okian/covidash/internal/domain/aggregate"
	"github.com/okian/covidash/internal/domain/cases"
	"github.com/okian/covidash/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// Boundary grid layout, in degrees, anchored near Toronto.
const (
	gridOriginX  = -79.60
	gridOriginY  = 43.58
	gridCell     = 0.02
	gridColumns  = 10
	dateLayout   = "2006-01-02"
	percentScale = 100
)

// Rates, in percent, of rows with a missing field.
const (
	missingFSAPct  = 2
	missingAgePct  = 1
	missingDatePct = 1
	probablePct    = 10
)

var (
	header = []string{"_id", "Reported Date", "Age Group", "FSA", "Source of Infection", "Classification", "Outcome"}

	ageGroups = []string{
		"19 and younger", "20 to 29 Years", "30 to 39 Years", "40 to 49 Years",
		"50 to 59 Years", "60 to 69 Years", "70 to 79 Years", "80 to 89 Years", "90 and older",
	}

	infectionSources = []string{
		"Close Contact", "Community", "Household Contact", "Travel", "Healthcare",
		aggregate.SourceOutbreakRaw, aggregate.SourceUnknownRaw, aggregate.SourcePending,
	}

	// Letters never used as the third character of a Canadian FSA.
	fsaLetters = []byte("ABCEGHJKLMNPRSTVWXYZ")
)

// maxRegions is the number of distinct M-prefixed FSA codes available.
var maxRegions = 9 * len(fsaLetters)

// GenerateReport describes one generate run.
type GenerateReport struct {
	RunID          string `json:"run_id"`
	Records        int    `json:"records"`
	Regions        int    `json:"regions"`
	CasesPath      string `json:"cases_path"`
	BoundariesPath string `json:"boundaries_path"`
}

// Generate writes a case CSV in the dataset's schema and a matching FSA
// boundary file into cfg.OutDir. Output depends only on cfg.
func Generate(ctx context.Context, cfg GenerateConfig) (GenerateReport, error) {
	if err := cfg.validate(); err != nil {
		return GenerateReport{}, err
	}
	if err := os.MkdirAll(cfg.OutDir, directoryPermission); err != nil {
		return GenerateReport{}, fmt.Errorf("failed to create directory: %w", err)
	}

	report := GenerateReport{
		RunID:          uuid.NewString(),
		Records:        cfg.Records,
		Regions:        cfg.Regions,
		CasesPath:      filepath.Join(cfg.OutDir, CasesFile),
		BoundariesPath: filepath.Join(cfg.OutDir, BoundariesFile),
	}
	log := loggerOr(cfg.Logger).With(logger.String("run_id", report.RunID))
	log.Info(ctx, "generating fixtures",
		logger.Int("records", cfg.Records),
		logger.Int("regions", cfg.Regions),
		logger.String("dir", cfg.OutDir),
	)

	codes := regionCodes(cfg.Regions)
	if err := writeBoundaries(report.BoundariesPath, codes); err != nil {
		return GenerateReport{}, err
	}
	if err := writeCases(ctx, report.CasesPath, cfg, codes); err != nil {
		return GenerateReport{}, err
	}

	log.Info(ctx, "fixtures written",
		logger.String("cases", report.CasesPath),
		logger.String("boundaries", report.BoundariesPath),
	)
	return report, nil
}

// regionCodes returns the first n FSA codes in M1A, M1B, ... order.
func regionCodes(n int) []string {
	codes := make([]string, 0, n)
	for digit := 1; digit <= 9 && len(codes) < n; digit++ {
		for _, letter := range fsaLetters {
			if len(codes) == n {
				break
			}
			codes = append(codes, "M"+strconv.Itoa(digit)+string(letter))
		}
	}
	return codes
}

// writeBoundaries lays the regions out as adjacent squares on a grid.
func writeBoundaries(path string, codes []string) error {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(codes))}
	for i, code := range codes {
		x0 := gridOriginX + float64(i%gridColumns)*gridCell
		y0 := gridOriginY + float64(i/gridColumns)*gridCell
		x1, y1 := x0+gridCell, y0+gridCell
		square := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
			{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}},
		})
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   square,
			Properties: map[string]interface{}{geo.KeyProperty: code},
		})
	}
	data, err := json.Marshal(&fc)
	if err != nil {
		return fmt.Errorf("failed to encode boundaries: %w", err)
	}
	if err := os.WriteFile(path, data, filePermission); err != nil {
		return fmt.Errorf("failed to write boundaries: %w", err)
	}
	return nil
}

func writeCases(ctx context.Context, path string, cfg GenerateConfig, codes []string) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i := 0; i < cfg.Records; i++ {
		if i%1000 == 0 && ctx.Err() != nil {
			return fmt.Errorf("generation cancelled: %w", ctx.Err())
		}
		if err := w.Write(randomRow(rng, i+1, cfg, codes)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush rows: %w", err)
	}
	return nil
}

func randomRow(rng *rand.Rand, id int, cfg GenerateConfig, codes []string) []string {
	age := rng.IntN(len(ageGroups))
	row := []string{
		strconv.Itoa(id),
		cfg.Start.AddDate(0, 0, rng.IntN(cfg.Days)).Format(dateLayout),
		ageGroups[age],
		codes[rng.IntN(len(codes))],
		infectionSources[rng.IntN(len(infectionSources))],
		cases.ClassificationConfirmed,
		randomOutcome(rng, age),
	}
	if rng.IntN(percentScale) < missingDatePct {
		row[1] = ""
	}
	if rng.IntN(percentScale) < missingAgePct {
		row[2] = ""
	}
	if rng.IntN(percentScale) < missingFSAPct {
		row[3] = ""
	}
	if rng.IntN(percentScale) < probablePct {
		row[5] = cases.ClassificationProbable
	}
	return row
}

// randomOutcome makes fatal outcomes more likely with age.
func randomOutcome(rng *rand.Rand, ageIndex int) string {
	p := rng.IntN(percentScale)
	switch {
	case p < 1+ageIndex:
		return cases.OutcomeFatal
	case p < 15+ageIndex:
		return cases.OutcomeActive
	default:
		return cases.OutcomeResolved
	}
}
