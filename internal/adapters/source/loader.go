// Package source loads the case dataset, once, from a remote CSV export or a
// local copy of it.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/okian/covidash/internal/domain/cases"
	"github.com/okian/covidash/pkg/logger"
	"github.com/okian/covidash/pkg/metrics"
)

const defaultTimeout = 60 * time.Second

// Loader fetches and parses the dataset.
type Loader struct {
	url     string
	client  *http.Client
	timeout time.Duration
	log     logger.Logger
}

// New builds a Loader. Without WithURL, Load fails.
func New(opts ...Option) *Loader {
	l := &Loader{
		client:  &http.Client{},
		timeout: defaultTimeout,
		log:     logger.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.Named("source")
	return l
}

// Load reads the whole dataset. Every failure wraps ErrDataUnavailable; no
// retry is attempted.
func (l *Loader) Load(ctx context.Context) (cases.Table, error) {
	start := time.Now()
	if l.url == "" {
		return cases.Table{}, fmt.Errorf("%w: no dataset location configured", ErrDataUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	body, err := l.open(ctx)
	if err != nil {
		l.log.Error(ctx, "dataset fetch failed", logger.String("url", l.url), logger.Error(err))
		return cases.Table{}, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	defer body.Close() //nolint:errcheck // read-only body

	table, err := Parse(body)
	if err != nil {
		l.log.Error(ctx, "dataset parse failed", logger.String("url", l.url), logger.Error(err))
		return cases.Table{}, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}

	elapsed := time.Since(start)
	metrics.RecordDatasetLoad("cases", float64(elapsed.Milliseconds()))
	metrics.UpdateDatasetRecords(table.Len())
	l.log.Info(ctx, "dataset loaded",
		logger.String("url", l.url),
		logger.Int("records", table.Len()),
		logger.Duration("elapsed", elapsed),
	)
	return table, nil
}

func (l *Loader) open(ctx context.Context) (io.ReadCloser, error) {
	if isLocalFile(l.url) {
		f, err := os.Open(l.url)
		if err != nil {
			return nil, fmt.Errorf("open local dataset: %w", err)
		}
		return f, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", l.url, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		resp.Body.Close() //nolint:errcheck,gosec // discarding the failed response
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, l.url)
	}
	return resp.Body, nil
}

func isLocalFile(location string) bool {
	return !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://")
}
