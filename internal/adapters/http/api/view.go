package api

import (
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"

	service "github.com/okian/covidash/internal/app"
	"github.com/okian/covidash/pkg/logger"
)

// Query parameters carrying the three dashboard controls.
const (
	paramMap   = "map"
	paramDaily = "daily"
	paramAge   = "age"
)

// ViewHandler serves the interactive dashboard outputs.
type ViewHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewViewHandler creates a new view handler.
func NewViewHandler(deps Dependencies, l logger.Logger) *ViewHandler {
	if l == nil {
		l = logger.NewNop()
	}
	return &ViewHandler{deps: deps, logger: l}
}

// selectionFrom reads the controls from the query. Each control takes a
// single value.
func selectionFrom(r *http.Request) (service.Selection, error) {
	q := r.URL.Query()
	for _, p := range []string{paramMap, paramDaily, paramAge} {
		if len(q[p]) > 1 {
			return service.Selection{}, fmt.Errorf("%w: %s given %d times", ErrBadRequest, p, len(q[p]))
		}
	}
	return service.Selection{
		MapOutcome:   q.Get(paramMap),
		DailyOutcome: q.Get(paramDaily),
		AgeGroup:     q.Get(paramAge),
	}, nil
}

// HandleView handles GET /api/view?map=&daily=&age= requests.
func (h *ViewHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	sel, err := selectionFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	view, err := h.deps.Render(r.Context(), sel)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleFigure handles GET /api/figures/:name requests.
func (h *ViewHandler) HandleFigure(w http.ResponseWriter, r *http.Request) {
	name := httprouter.ParamsFromContext(r.Context()).ByName("name")
	sel, err := selectionFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	fig, err := h.deps.Figure(r.Context(), name, sel)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fig)
}

// HandleOptions handles GET /api/options requests.
func (h *ViewHandler) HandleOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.deps.Options(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

// HandleBoundaries handles GET /api/boundaries requests. The body is the
// GeoJSON file as loaded, so the browser can cache it across interactions.
func (h *ViewHandler) HandleBoundaries(w http.ResponseWriter, r *http.Request) {
	raw, err := h.deps.Boundaries(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// HandleRegions handles GET /api/regions requests: code, bounds, centroid
// and area of every boundary feature.
func (h *ViewHandler) HandleRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.deps.Regions(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, regions)
}

func (h *ViewHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", RequestIDFrom(r.Context())),
			logger.Error(err),
		)
	}
	writeError(w, status, code, err)
}
