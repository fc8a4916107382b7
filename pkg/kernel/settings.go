package kernel

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/manthysbr/vita/internal/core/domain"
)

// handleGetSettings returns the current config with the API key masked.
// GET /v1/settings
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.GetMaskedConfig())
}

// handleUpdateSettings replaces the config. A masked or empty api_key keeps the
// stored key; registered callbacks hot-reload the provider and model pins.
// PUT /v1/settings
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var update domain.AppConfig
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := s.settings.UpdateConfig(r.Context(), &update); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, s.settings.GetMaskedConfig())
}

// handleListModels lists the models the configured backend can serve, for
// choosing orchestrator and specialist pins.
// GET /v1/models
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	models, err := s.discovery.Discover(ctx, s.settings.GetConfig())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models": models,
		"count":  len(models),
	})
}
