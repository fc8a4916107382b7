package kernel

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/manthysbr/vita/internal/core/domain"
	"github.com/oapi-codegen/runtime"
)

type coachRequest struct {
	Prompt string `json:"prompt"`
}

type coachResponse struct {
	RunID      domain.RunID        `json:"run_id"`
	TraceID    domain.TraceID      `json:"trace_id,omitempty"`
	Status     domain.RunStatus    `json:"status"`
	Iterations int                 `json:"iterations"`
	Response   string              `json:"response"`
	Steps      []domain.StepRecord `json:"steps"`
}

// handleCoach runs the Head Coach once on the submitted prompt.
// POST /v1/coach
func (s *Server) handleCoach(w http.ResponseWriter, r *http.Request) {
	var req coachRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	record, err := s.coach.Ask(r.Context(), prompt)
	if err != nil {
		body := map[string]string{"error": err.Error()}
		if record != nil {
			body["run_id"] = string(record.ID)
		}
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrGeneration) {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, body)
		return
	}

	steps := record.Steps
	if steps == nil {
		steps = []domain.StepRecord{}
	}
	writeJSON(w, http.StatusOK, coachResponse{
		RunID:      record.ID,
		TraceID:    record.TraceID,
		Status:     record.Status,
		Iterations: record.Iterations,
		Response:   record.Response,
		Steps:      steps,
	})
}

// handleListRuns returns recent run summaries, newest first.
// GET /v1/runs?limit=50
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.coach.ListRuns(r.Context(), queryLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// handleGetRun returns the full audit record of one run.
// GET /v1/runs/{runId}
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	var runID domain.RunID
	err := runtime.BindStyledParameterWithOptions("simple", "runId", r.PathValue("runId"), &runID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid runId: "+err.Error())
		return
	}

	run, err := s.coach.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}
