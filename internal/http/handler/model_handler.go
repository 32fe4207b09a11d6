package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/your-org/chi-traffic-accidents/internal/datastore"
)

// ModelHandler serves the record of the latest training run.
type ModelHandler struct {
	runs   datastore.RunRepository
	logger *zap.Logger
}

// NewModelHandler creates a ModelHandler. runs may be nil when the server
// runs without a database.
func NewModelHandler(runs datastore.RunRepository, logger *zap.Logger) *ModelHandler {
	return &ModelHandler{runs: runs, logger: logger}
}

// RegisterRoutes registers the model routes on r.
func (h *ModelHandler) RegisterRoutes(r chi.Router) {
	r.Get("/model", h.GetLatestRun)
}

// GetLatestRun writes the latest run as JSON.
func (h *ModelHandler) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		http.Error(w, "Training history is not available", http.StatusServiceUnavailable)
		return
	}
	run, err := h.runs.LatestRun(r.Context())
	if errors.Is(err, datastore.ErrNoRuns) {
		http.Error(w, "No model has been trained yet", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to fetch latest run", zap.Error(err))
		http.Error(w, "Failed to fetch latest run", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(run); err != nil {
		h.logger.Error("failed to encode run", zap.Error(err))
	}
}
