package kernel

import (
	"errors"
	"net/http"

	"github.com/manthysbr/vita/internal/core/domain"
	"github.com/oapi-codegen/runtime"
)

// handleListTraces returns recent trace summaries.
// GET /v1/traces?limit=50
// The in-memory collector answers first; after a restart it is empty and the
// persisted traces are served instead.
func (s *Server) handleListTraces(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 50)

	traces := s.tracer.ListTraces(limit)
	if len(traces) == 0 && s.store != nil {
		stored, err := s.store.ListTraces(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		traces = stored
	}
	if traces == nil {
		traces = []domain.TraceSummary{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"traces": traces,
		"count":  len(traces),
	})
}

// handleGetTrace returns a single trace with all spans.
// GET /v1/traces/{traceId}
func (s *Server) handleGetTrace(w http.ResponseWriter, r *http.Request) {
	var traceID domain.TraceID
	err := runtime.BindStyledParameterWithOptions("simple", "traceId", r.PathValue("traceId"), &traceID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid traceId: "+err.Error())
		return
	}

	trace, err := s.tracer.GetTrace(traceID)
	if errors.Is(err, domain.ErrTraceNotFound) && s.store != nil {
		trace, err = s.store.GetTrace(r.Context(), traceID)
	}
	if err != nil {
		if errors.Is(err, domain.ErrTraceNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, trace)
}
