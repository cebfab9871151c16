// Package service owns the dashboard state and recomputes every output for
// each user interaction. It is the only dependency of the HTTP API.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/covidash/internal/adapters/geo"
	"github.com/okian/covidash/internal/domain/aggregate"
	"github.com/okian/covidash/internal/domain/cases"
	"github.com/okian/covidash/pkg/logger"
	"github.com/okian/covidash/pkg/metrics"
)

// DataSource loads the case table.
type DataSource interface {
	Load(ctx context.Context) (cases.Table, error)
}

// BoundarySource loads the FSA boundaries.
type BoundarySource interface {
	Load(ctx context.Context) (*geo.Boundaries, error)
}

// State is the process-wide data loaded at startup. Nothing mutates it after
// Start returns.
type State struct {
	Table      cases.Table
	Boundaries *geo.Boundaries
	LoadedAt   time.Time
}

// Service implements the API dependencies for the dashboard.
type Service struct {
	mu sync.RWMutex

	data        DataSource
	boundaries  BoundarySource
	boundaryURL string

	state   *State
	started bool
	renders int64
	failed  int64

	// compute is swapped in tests to exercise the recovery path.
	compute func(*State, Selection, any) View

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDataSource sets where the case table comes from.
func WithDataSource(d DataSource) Option {
	return func(s *Service) {
		if d != nil {
			s.data = d
		}
	}
}

// WithBoundarySource sets where the boundaries come from.
func WithBoundarySource(b BoundarySource) Option {
	return func(s *Service) {
		if b != nil {
			s.boundaries = b
		}
	}
}

// WithBoundaryURL makes the map trace reference the boundaries by URL
// instead of embedding them in every response.
func WithBoundaryURL(url string) Option {
	return func(s *Service) {
		s.boundaryURL = url
	}
}

// New constructs a new Service. Start must be called before any query.
func New(opts ...Option) *Service {
	s := &Service{
		logger:  logger.NewNop(),
		compute: buildView,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("service")
	return s
}

// Start loads the dataset and the boundaries concurrently. Either failure
// aborts startup; the returned error wraps the source's sentinel.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.data == nil || s.boundaries == nil {
		return fmt.Errorf("%w: data and boundary sources are required", ErrNotStarted)
	}

	s.logger.Info(ctx, "loading dashboard state...")

	var (
		table      cases.Table
		boundaries *geo.Boundaries
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.data.Load(gctx)
		if err != nil {
			return fmt.Errorf("load cases: %w", err)
		}
		table = t
		return nil
	})
	g.Go(func() error {
		b, err := s.boundaries.Load(gctx)
		if err != nil {
			return fmt.Errorf("load boundaries: %w", err)
		}
		boundaries = b
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	s.state = &State{Table: table, Boundaries: boundaries, LoadedAt: time.Now().UTC()}
	s.started = true
	metrics.UpdateDatasetLoadedAt(s.state.LoadedAt)

	regions := aggregate.Geo(table)
	codes := make([]string, len(regions))
	for i, r := range regions {
		codes[i] = r.FSA
	}
	if missing := boundaries.Missing(codes); len(missing) > 0 {
		s.logger.Warn(ctx, "FSA codes without a boundary are not drawn on the map",
			logger.Int("count", len(missing)),
			logger.Any("fsa", missing),
		)
	}

	s.logger.Info(ctx, "dashboard state loaded",
		logger.Int("records", table.Len()),
		logger.Int("regions", boundaries.Len()),
	)
	return nil
}

// Stop releases the state. Queries afterwards fail with ErrNotStarted.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.state = nil
	s.started = false
	s.logger.Info(context.Background(), "dashboard service stopped")
}

// State returns the loaded state.
func (s *Service) State() (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.state, nil
}

// Boundaries returns the raw boundary file for the map trace to fetch.
func (s *Service) Boundaries(_ context.Context) ([]byte, error) {
	st, err := s.State()
	if err != nil {
		return nil, err
	}
	return st.Boundaries.Raw(), nil
}

// Regions returns the boundary summaries in file order.
func (s *Service) Regions(_ context.Context) ([]geo.Region, error) {
	st, err := s.State()
	if err != nil {
		return nil, err
	}
	return st.Boundaries.Regions(), nil
}

// geojson is what the map trace carries: a URL when one is configured,
// otherwise the boundary file inline.
func (s *Service) geojson(st *State) any {
	if s.boundaryURL != "" {
		return s.boundaryURL
	}
	return json.RawMessage(st.Boundaries.Raw())
}

func (s *Service) countRender(failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renders++
	if failed {
		s.failed++
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":        s.started,
		"renders":        s.renders,
		"renderFailures": s.failed,
	}
	if s.started {
		stats["records"] = s.state.Table.Len()
		stats["regions"] = s.state.Boundaries.Len()
		stats["loadedAt"] = s.state.LoadedAt.Format(time.RFC3339)
	}
	return stats
}
