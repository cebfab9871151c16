// Package aggregate derives the dashboard summary tables from the raw case
// table. Every function is pure: it reads the table, never mutates it, and
// returns an empty result rather than failing when a filter matches nothing.
package aggregate

import (
	"sort"
	"time"

	"github.com/okian/covidash/internal/domain/cases"
)

// Source labels rewritten or dropped before counting.
const (
	SourcePending        = "Pending"
	SourceOutbreakRaw    = "N/A - Outbreak associated"
	SourceUnknownRaw     = "Unknown/Missing"
	SourceOutbreak       = "Outbreak"
	SourceUnknown        = "Unknown"
	maxPercent           = 100
	hoursPerDay          = 24
	defaultCountCapacity = 8
)

var sourceRenames = map[string]string{
	SourceOutbreakRaw: SourceOutbreak,
	SourceUnknownRaw:  SourceUnknown,
}

// Counts is a label -> count map with a zero default.
type Counts map[string]int

// Get returns the count for key, or 0 if it was never observed.
func (c Counts) Get(key string) int {
	return c[key]
}

// GlobalCounts holds the headline totals shown in the summary cards.
type GlobalCounts struct {
	Confirmed int `json:"confirmed"`
	Probable  int `json:"probable"`
	Active    int `json:"active"`
	Fatal     int `json:"fatal"`
	Resolved  int `json:"resolved"`
}

// Global counts records per classification and per outcome.
func Global(t cases.Table) GlobalCounts {
	byClass := make(Counts, defaultCountCapacity)
	byOutcome := make(Counts, defaultCountCapacity)
	t.Each(func(r cases.Record) {
		byClass[r.Classification]++
		byOutcome[r.Outcome]++
	})
	return GlobalCounts{
		Confirmed: byClass.Get(cases.ClassificationConfirmed),
		Probable:  byClass.Get(cases.ClassificationProbable),
		Active:    byOutcome.Get(cases.OutcomeActive),
		Fatal:     byOutcome.Get(cases.OutcomeFatal),
		Resolved:  byOutcome.Get(cases.OutcomeResolved),
	}
}

// outcomeGroups counts records per (key, outcome) preserving the first
// appearance order of keys.
type outcomeGroups struct {
	order  []string
	counts map[string]Counts
}

func groupByOutcome(t cases.Table, key func(cases.Record) string) outcomeGroups {
	g := outcomeGroups{counts: make(map[string]Counts)}
	t.Each(func(r cases.Record) {
		k := key(r)
		if k == "" {
			return
		}
		c, ok := g.counts[k]
		if !ok {
			c = make(Counts, len(cases.Outcomes))
			g.counts[k] = c
			g.order = append(g.order, k)
		}
		c[r.Outcome]++
	})
	return g
}

// GeoRow is the per-FSA outcome breakdown.
type GeoRow struct {
	FSA      string `json:"fsa"`
	Active   int    `json:"active"`
	Fatal    int    `json:"fatal"`
	Resolved int    `json:"resolved"`
	Total    int    `json:"total"`
}

// Value returns the column selected by an outcome or TOTAL.
func (r GeoRow) Value(outcome string) int {
	switch outcome {
	case cases.OutcomeActive:
		return r.Active
	case cases.OutcomeFatal:
		return r.Fatal
	case cases.OutcomeResolved:
		return r.Resolved
	default:
		return r.Total
	}
}

// Geo groups records with an FSA by (FSA, Outcome). Rows follow the order in
// which each FSA first appears in the table.
func Geo(t cases.Table) []GeoRow {
	g := groupByOutcome(t, func(r cases.Record) string { return r.FSA })
	rows := make([]GeoRow, 0, len(g.order))
	for _, fsa := range g.order {
		c := g.counts[fsa]
		row := GeoRow{
			FSA:      fsa,
			Active:   c.Get(cases.OutcomeActive),
			Fatal:    c.Get(cases.OutcomeFatal),
			Resolved: c.Get(cases.OutcomeResolved),
		}
		row.Total = row.Active + row.Fatal + row.Resolved
		rows = append(rows, row)
	}
	return rows
}

// AgeRow is the per-age-group outcome breakdown.
type AgeRow struct {
	AgeGroup     string  `json:"age_group"`
	Resolved     int     `json:"resolved"`
	Fatal        int     `json:"fatal"`
	Active       int     `json:"active"`
	Total        int     `json:"total"`
	FatalPercent float64 `json:"fatal_percent"`
}

// Age groups records with an age group by (AgeGroup, Outcome) and returns the
// rows in canonical bracket order.
func Age(t cases.Table) []AgeRow {
	g := groupByOutcome(t, func(r cases.Record) string { return r.AgeGroup })
	rows := make([]AgeRow, 0, len(g.order))
	for _, group := range SortAgeGroups(g.order) {
		c := g.counts[group]
		row := AgeRow{
			AgeGroup: group,
			Resolved: c.Get(cases.OutcomeResolved),
			Fatal:    c.Get(cases.OutcomeFatal),
			Active:   c.Get(cases.OutcomeActive),
		}
		row.Total = row.Resolved + row.Fatal + row.Active
		row.FatalPercent = percent(row.Fatal, row.Total)
		rows = append(rows, row)
	}
	return rows
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return maxPercent * float64(part) / float64(whole)
}

// DailyPoint is one day of the reported-case time series.
type DailyPoint struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// Daily buckets records by reported day, optionally keeping only one outcome
// (TOTAL keeps all). The index spans every day from the first to the last
// reported date in the whole table, so a filtered series shares its x-range
// with the unfiltered one; days without matching records count zero.
// Records without a reported date are not counted on any day.
func Daily(t cases.Table, outcome string) []DailyPoint {
	dated := t.Filter(cases.Record.HasDate)
	var first, last time.Time
	dated.Each(func(r cases.Record) {
		d := cases.Day(r.ReportedDate)
		if first.IsZero() || d.Before(first) {
			first = d
		}
		if last.IsZero() || d.After(last) {
			last = d
		}
	})
	if outcome != cases.Total {
		dated = dated.Filter(func(r cases.Record) bool { return r.Outcome == outcome })
	}
	perDay := make(map[time.Time]int)
	dated.Each(func(r cases.Record) {
		perDay[cases.Day(r.ReportedDate)]++
	})
	if first.IsZero() {
		return []DailyPoint{}
	}

	days := int(last.Sub(first).Hours()/hoursPerDay) + 1
	series := make([]DailyPoint, 0, days)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		series = append(series, DailyPoint{Date: d, Count: perDay[d]})
	}
	return series
}

// SourceRow is the number of records per source of infection.
type SourceRow struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// NormalizeSource maps raw source labels to their display label. The second
// return value is false for labels that are dropped from the aggregate:
// Pending and a missing (empty) source.
func NormalizeSource(label string) (string, bool) {
	if label == "" || label == SourcePending {
		return "", false
	}
	if renamed, ok := sourceRenames[label]; ok {
		return renamed, true
	}
	return label, true
}

// Sources counts records per source of infection, optionally keeping only one
// age group (ALL keeps every record). Rows are sorted by label.
func Sources(t cases.Table, ageGroup string) []SourceRow {
	if ageGroup != cases.All {
		t = t.Filter(func(r cases.Record) bool { return r.AgeGroup == ageGroup })
	}
	counts := make(Counts, defaultCountCapacity)
	t.Each(func(r cases.Record) {
		label, keep := NormalizeSource(r.SourceOfInfection)
		if !keep {
			return
		}
		counts[label]++
	})

	rows := make([]SourceRow, 0, len(counts))
	for label, n := range counts {
		rows = append(rows, SourceRow{Source: label, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Source < rows[j].Source })
	return rows
}

// Outcomes returns the distinct outcomes among records with an age group, in
// first-appearance order. Used to build the map outcome selector.
func Outcomes(t cases.Table) []string {
	seen := make(map[string]struct{})
	var out []string
	t.Each(func(r cases.Record) {
		if !r.HasAgeGroup() || r.Outcome == "" {
			return
		}
		if _, ok := seen[r.Outcome]; ok {
			return
		}
		seen[r.Outcome] = struct{}{}
		out = append(out, r.Outcome)
	})
	return out
}

// AgeGroups returns the distinct age groups in canonical order.
func AgeGroups(t cases.Table) []string {
	seen := make(map[string]struct{})
	var groups []string
	t.Each(func(r cases.Record) {
		if !r.HasAgeGroup() {
			return
		}
		if _, ok := seen[r.AgeGroup]; ok {
			return
		}
		seen[r.AgeGroup] = struct{}{}
		groups = append(groups, r.AgeGroup)
	})
	return SortAgeGroups(groups)
}
