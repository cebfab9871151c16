// Package cases contains the case record model shared by the loader, the
// aggregator and the presentation layer.
package cases

import "time"

// Outcome values as published in the dataset.
const (
	OutcomeActive   = "ACTIVE"
	OutcomeFatal    = "FATAL"
	OutcomeResolved = "RESOLVED"
)

// Classification values as published in the dataset.
const (
	ClassificationConfirmed = "CONFIRMED"
	ClassificationProbable  = "PROBABLE"
)

// Selector sentinels used by the dashboard controls.
const (
	Total = "TOTAL" // all outcomes
	All   = "ALL"   // all age groups
)

// Outcomes lists the known outcomes in display order.
var Outcomes = []string{OutcomeActive, OutcomeFatal, OutcomeResolved}

// IsOutcomeSelector reports whether v is a known outcome or TOTAL.
func IsOutcomeSelector(v string) bool {
	if v == Total {
		return true
	}
	for _, o := range Outcomes {
		if o == v {
			return true
		}
	}
	return false
}

// Record is one reported case. Empty strings mean the cell was missing.
type Record struct {
	ID                int
	ReportedDate      time.Time // calendar day, UTC midnight; zero when missing
	AgeGroup          string
	FSA               string
	Classification    string
	Outcome           string
	SourceOfInfection string
}

// HasAgeGroup reports whether the record takes part in age aggregates.
func (r Record) HasAgeGroup() bool { return r.AgeGroup != "" }

// HasFSA reports whether the record takes part in geography aggregates.
func (r Record) HasFSA() bool { return r.FSA != "" }

// HasDate reports whether the record has a reported date.
func (r Record) HasDate() bool { return !r.ReportedDate.IsZero() }

// Table is an immutable, ordered collection of records.
type Table struct {
	records []Record
}

// NewTable copies records into a new Table.
func NewTable(records []Record) Table {
	cp := make([]Record, len(records))
	copy(cp, records)
	return Table{records: cp}
}

// Len returns the number of records.
func (t Table) Len() int { return len(t.records) }

// Each calls fn for every record in order.
func (t Table) Each(fn func(Record)) {
	for _, r := range t.records {
		fn(r)
	}
}

// Filter returns a new table holding the records for which keep returns true.
func (t Table) Filter(keep func(Record) bool) Table {
	out := make([]Record, 0, len(t.records))
	for _, r := range t.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return Table{records: out}
}

// Day truncates t to its calendar day in UTC, dropping any time of day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
