// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/klauspost/compress/gzhttp"

	"github.com/okian/covidash/internal/adapters/geo"
	service "github.com/okian/covidash/internal/app"
	"github.com/okian/covidash/internal/domain/chart"
	"github.com/okian/covidash/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	// Render recomputes the summaries and all figures for one selection.
	Render(ctx context.Context, sel service.Selection) (service.View, error)
	// Figure recomputes a single named figure.
	Figure(ctx context.Context, name string, sel service.Selection) (chart.Figure, error)
	// Options lists the values each dashboard control accepts.
	Options(ctx context.Context) (service.Options, error)
	// Boundaries returns the raw FSA GeoJSON referenced by the map.
	Boundaries(ctx context.Context) ([]byte, error)
	// Regions summarises each boundary feature.
	Regions(ctx context.Context) ([]geo.Region, error)
}

// Server wires HTTP routes for the dashboard API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	viewHandler   *ViewHandler
	debugHandler  *DebugHandler

	debug       bool
	compressMin int
	logger      logger.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithDebug exposes /debug/state.
func WithDebug(on bool) ServerOption {
	return func(s *Server) { s.debug = on }
}

// WithCompressionMinSize sets the smallest body that is gzipped.
func WithCompressionMinSize(n int) ServerOption {
	return func(s *Server) {
		if n >= 0 {
			s.compressMin = n
		}
	}
}

// WithLogger sets the access and error logger.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		compressMin: gzhttp.DefaultMinSize,
		logger:      logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("api")
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.viewHandler = NewViewHandler(deps, s.logger)
	s.debugHandler = NewDebugHandler(deps, statsProvider)
	return s
}

// Register attaches all HTTP routes to mux. Everything under /api/ is served
// by an httprouter tree behind request IDs, access logging and gzip.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	router := httprouter.New()
	router.HandlerFunc(http.MethodGet, "/api/view", MetricsMiddleware(s.viewHandler.HandleView, "view"))
	router.HandlerFunc(http.MethodGet, "/api/figures/:name", MetricsMiddleware(s.viewHandler.HandleFigure, "figures"))
	router.HandlerFunc(http.MethodGet, "/api/options", MetricsMiddleware(s.viewHandler.HandleOptions, "options"))
	router.HandlerFunc(http.MethodGet, "/api/boundaries", MetricsMiddleware(s.viewHandler.HandleBoundaries, "boundaries"))
	router.HandlerFunc(http.MethodGet, "/api/regions", MetricsMiddleware(s.viewHandler.HandleRegions, "regions"))
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", nil)
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		s.logger.Error(r.Context(), "handler panic", logger.Any("panic", v), logger.String("path", r.URL.Path))
		writeError(w, http.StatusInternalServerError, "internal_error", nil)
	}

	var handler http.Handler = router
	gzip, err := gzhttp.NewWrapper(gzhttp.MinSize(s.compressMin))
	if err != nil {
		s.logger.Warn(ctx, "compression disabled", logger.Error(err))
	} else {
		handler = gzip(handler)
	}
	mux.Handle("/api/", RequestID(AccessLog(s.logger, handler)))

	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	if s.debug {
		mux.HandleFunc("/debug/state", s.debugHandler.HandleState)
		s.logger.Info(ctx, "debug endpoint enabled", logger.String("path", "/debug/state"))
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// statusOf translates service errors to an HTTP status and error code.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidSelection):
		return http.StatusBadRequest, "invalid_selection"
	case errors.Is(err, service.ErrUnknownFigure):
		return http.StatusNotFound, "unknown_figure"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "not_ready"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
