package api

import (
	"net/http"

	"github.com/davecgh/go-spew/spew"
)

var dumper = spew.ConfigState{
	Indent:                  "  ",
	SortKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// DebugHandler dumps the loaded state for local troubleshooting.
type DebugHandler struct {
	deps  Dependencies
	stats StatsProvider
}

// NewDebugHandler creates a new debug handler.
func NewDebugHandler(deps Dependencies, stats StatsProvider) *DebugHandler {
	return &DebugHandler{deps: deps, stats: stats}
}

// HandleState handles GET /debug/state requests with a plain text dump of
// the service statistics and the control values.
func (h *DebugHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if h.stats != nil {
		dumper.Fdump(w, h.stats.GetStats())
	}
	opts, err := h.deps.Options(r.Context())
	if err != nil {
		dumper.Fdump(w, err.Error())
		return
	}
	dumper.Fdump(w, opts)
}
