package casegen

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	service "github.com/okian/covidash/internal/app"
	"github.com/okian/covidash/internal/domain/aggregate"
	"github.com/okian/covidash/internal/domain/cases"
	"github.com/okian/covidash/internal/domain/chart"
	"github.com/okian/covidash/pkg/logger"
)

// ErrVerifyFailed is returned when at least one check found a violation.
var ErrVerifyFailed = errors.New("casegen: dashboard checks failed")

// Check names used in findings.
const (
	CheckStatus    = "status"
	CheckSelection = "selection"
	CheckDaily     = "daily_contiguous"
	CheckSources   = "sources_no_pending"
	CheckMapSums   = "map_totals"
)

// Finding is one violated check.
type Finding struct {
	Check     string            `json:"check"`
	Selection service.Selection `json:"selection"`
	Detail    string            `json:"detail"`
}

// VerifyReport summarizes a verify run.
type VerifyReport struct {
	Checked  int           `json:"checked"`
	Findings []Finding     `json:"findings"`
	Duration time.Duration `json:"duration"`
}

// Verify asks a running dashboard for every daily outcome and age group
// combination and checks each response, then checks that the per-outcome
// map values add up to the TOTAL map. Transport failures abort the run;
// check violations are collected and reported with ErrVerifyFailed.
func Verify(ctx context.Context, cfg VerifyConfig) (VerifyReport, error) {
	if err := cfg.validate(); err != nil {
		return VerifyReport{}, err
	}
	log := loggerOr(cfg.Logger)
	start := time.Now()
	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	var opts service.Options
	if err := client.getJSON(ctx, "/api/options", nil, &opts); err != nil {
		return VerifyReport{}, fmt.Errorf("failed to fetch options: %w", err)
	}

	var (
		mu     sync.Mutex
		report VerifyReport
	)
	record := func(found []Finding) {
		mu.Lock()
		defer mu.Unlock()
		report.Checked++
		report.Findings = append(report.Findings, found...)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, daily := range opts.DailyOutcomes {
		for _, age := range opts.AgeGroups {
			sel := service.Selection{MapOutcome: cases.Total, DailyOutcome: daily, AgeGroup: age}
			g.Go(func() error {
				var view service.View
				if err := client.getJSON(gctx, "/api/view", query(sel), &view); err != nil {
					return err
				}
				record(CheckView(sel, view))
				return nil
			})
		}
	}
	g.Go(func() error {
		found, err := verifyMapTotals(gctx, client)
		if err != nil {
			return err
		}
		record(found)
		return nil
	})
	if err := g.Wait(); err != nil {
		return VerifyReport{}, err
	}

	sort.SliceStable(report.Findings, func(i, j int) bool { return report.Findings[i].Check < report.Findings[j].Check })
	report.Duration = time.Since(start)

	log.Info(ctx, "verification finished",
		logger.Int("checked", report.Checked),
		logger.Int("findings", len(report.Findings)),
		logger.Duration("duration", report.Duration),
	)
	for _, f := range report.Findings {
		log.Warn(ctx, "check failed",
			logger.String("check", f.Check),
			logger.Any("selection", f.Selection),
			logger.String("detail", f.Detail),
		)
	}
	if len(report.Findings) > 0 {
		return report, fmt.Errorf("%w: %d findings", ErrVerifyFailed, len(report.Findings))
	}
	return report, nil
}

func query(sel service.Selection) url.Values {
	q := url.Values{}
	q.Set("map", sel.MapOutcome)
	q.Set("daily", sel.DailyOutcome)
	q.Set("age", sel.AgeGroup)
	return q
}

// CheckView checks one view returned for sel.
func CheckView(sel service.Selection, view service.View) []Finding {
	var found []Finding
	add := func(check, format string, args ...any) {
		found = append(found, Finding{Check: check, Selection: sel, Detail: fmt.Sprintf(format, args...)})
	}

	if view.Status != service.StatusOK {
		add(CheckStatus, "status %q: %s", view.Status, view.Message)
		return found
	}
	if view.Selection != sel {
		add(CheckSelection, "server echoed %+v", view.Selection)
	}
	if gap := dailyGap(view.Figures.Timeseries); gap != "" {
		add(CheckDaily, "%s", gap)
	}
	for _, tr := range view.Figures.Sources.Data {
		for _, label := range tr.X {
			if label == aggregate.SourcePending {
				add(CheckSources, "bar %q is shown", label)
			}
		}
	}
	return found
}

// dailyGap describes the first break in the day-by-day index, or "".
func dailyGap(fig chart.Figure) string {
	if len(fig.Data) == 0 {
		return ""
	}
	tr := fig.Data[0]
	if len(tr.X) != len(tr.Y) {
		return fmt.Sprintf("%d dates but %d counts", len(tr.X), len(tr.Y))
	}
	var prev time.Time
	for i, x := range tr.X {
		d, err := time.Parse(dateLayout, x)
		if err != nil {
			return fmt.Sprintf("bad date %q", x)
		}
		if i > 0 && !d.Equal(prev.AddDate(0, 0, 1)) {
			return fmt.Sprintf("%s follows %s", x, prev.Format(dateLayout))
		}
		if tr.Y[i] < 0 {
			return fmt.Sprintf("negative count on %s", x)
		}
		prev = d
	}
	return ""
}

// verifyMapTotals fetches the map for every outcome, not only the ones the
// options list, since options skip outcomes seen only on rows without an age.
func verifyMapTotals(ctx context.Context, client *httpClient) ([]Finding, error) {
	outcomes := append(slices.Clone(cases.Outcomes), cases.Total)
	figures := make(map[string]chart.Figure, len(outcomes))
	for _, outcome := range outcomes {
		var fig chart.Figure
		sel := service.Selection{MapOutcome: outcome, DailyOutcome: cases.Total, AgeGroup: cases.All}
		if err := client.getJSON(ctx, "/api/figures/"+service.FigureMap, query(sel), &fig); err != nil {
			return nil, err
		}
		figures[outcome] = fig
	}
	return CheckMapTotals(figures), nil
}

// CheckMapTotals checks that for every FSA the TOTAL map value equals the
// sum of the per-outcome values. figures is keyed by map outcome.
func CheckMapTotals(figures map[string]chart.Figure) []Finding {
	total, ok := figures[cases.Total]
	if !ok || len(total.Data) == 0 {
		return nil
	}
	sums := make(map[string]int)
	for _, outcome := range cases.Outcomes {
		fig, ok := figures[outcome]
		if !ok || len(fig.Data) == 0 {
			continue
		}
		tr := fig.Data[0]
		for i, fsa := range tr.Locations {
			if i < len(tr.Z) {
				sums[fsa] += tr.Z[i]
			}
		}
	}

	var found []Finding
	tr := total.Data[0]
	for i, fsa := range tr.Locations {
		if i >= len(tr.Z) {
			break
		}
		if sums[fsa] != tr.Z[i] {
			found = append(found, Finding{
				Check:     CheckMapSums,
				Selection: service.Selection{MapOutcome: cases.Total},
				Detail:    fmt.Sprintf("%s: total %d, outcomes sum to %d", fsa, tr.Z[i], sums[fsa]),
			})
		}
	}
	return found
}
