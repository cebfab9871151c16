package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/okian/covidash/internal/domain/cases"
)

// Column headers as published by the open-data portal.
const (
	colID             = "_id"
	colReportedDate   = "Reported Date"
	colAgeGroup       = "Age Group"
	colFSA            = "FSA"
	colSource         = "Source of Infection"
	colClassification = "Classification"
	colOutcome        = "Outcome"
)

var requiredColumns = []string{
	colReportedDate,
	colAgeGroup,
	colFSA,
	colSource,
	colClassification,
	colOutcome,
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

const utf8BOM = "\ufeff"

// Parse decodes a case CSV. Header matching ignores case, surrounding space
// and a leading byte order mark; unknown columns are ignored. An empty date
// cell yields a record without a date, a malformed one fails the parse.
func Parse(r io.Reader) (cases.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return cases.Table{}, fmt.Errorf("%w: empty file", ErrMissingColumn)
		}
		return cases.Table{}, fmt.Errorf("read header: %w", err)
	}
	idx, err := indexColumns(header)
	if err != nil {
		return cases.Table{}, err
	}

	var records []cases.Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return cases.Table{}, fmt.Errorf("%w: line %d: %w", ErrBadRow, line, err)
		}
		rec, err := idx.record(row, line)
		if err != nil {
			return cases.Table{}, err
		}
		records = append(records, rec)
	}
	return cases.NewTable(records), nil
}

type columns map[string]int

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, utf8BOM)))
}

func indexColumns(header []string) (columns, error) {
	idx := make(columns, len(header))
	for i, h := range header {
		idx[normalizeHeader(h)] = i
	}
	for _, c := range requiredColumns {
		if _, ok := idx[normalizeHeader(c)]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, c)
		}
	}
	return idx, nil
}

func (c columns) cell(row []string, name string) string {
	i, ok := c[normalizeHeader(name)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (c columns) record(row []string, line int) (cases.Record, error) {
	rec := cases.Record{
		AgeGroup:          c.cell(row, colAgeGroup),
		FSA:               c.cell(row, colFSA),
		Classification:    c.cell(row, colClassification),
		Outcome:           c.cell(row, colOutcome),
		SourceOfInfection: c.cell(row, colSource),
	}

	if raw := c.cell(row, colID); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return cases.Record{}, fmt.Errorf("%w: line %d: id %q", ErrBadRow, line, raw)
		}
		rec.ID = id
	}

	if raw := c.cell(row, colReportedDate); raw != "" {
		d, err := parseDate(raw)
		if err != nil {
			return cases.Record{}, fmt.Errorf("%w: line %d: %w", ErrBadRow, line, err)
		}
		rec.ReportedDate = d
	}
	return rec, nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return cases.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("reported date %q", raw)
}
