// Package handlers implements the HTTP handlers for the GridSight decision
// plane.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gridsight/control-plane/internal/intent"
	"github.com/gridsight/control-plane/internal/logstore"
	"github.com/gridsight/control-plane/internal/metricsource"
	"github.com/gridsight/control-plane/internal/orchestrator"
	"github.com/gridsight/control-plane/internal/risk"
	"github.com/gridsight/control-plane/internal/scenario"
	"github.com/gridsight/control-plane/pkg/contracts"
	"github.com/gridsight/control-plane/pkg/models"
)

// maxBodyBytes caps request bodies; questions and metric overrides are small.
const maxBodyBytes = 1 << 20

// Handlers holds all handler dependencies.
type Handlers struct {
	Orchestrator *orchestrator.Orchestrator
	Logs         *logstore.Logs
	Provider     contracts.MetricsProvider
	Classifier   *intent.Classifier
}

// New creates a new Handlers instance. A nil classifier gets the default
// keyword table.
func New(orch *orchestrator.Orchestrator, logs *logstore.Logs, provider contracts.MetricsProvider, classifier *intent.Classifier) *Handlers {
	if classifier == nil {
		classifier = intent.NewClassifier(nil)
	}
	return &Handlers{
		Orchestrator: orch,
		Logs:         logs,
		Provider:     provider,
		Classifier:   classifier,
	}
}

// ══════════════════════════════════════════════════════════════
// ── Orchestration ────────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

// OrchestrateRequest is the body of POST /api/v1/orchestrate.
type OrchestrateRequest struct {
	PlantID  int                     `json:"plant_id"`
	Question string                  `json:"question"`
	Metrics  *models.MetricsSnapshot `json:"metrics,omitempty"`
}

func (h *Handlers) Orchestrate(w http.ResponseWriter, r *http.Request) {
	var req OrchestrateRequest
	if !decode(w, r, &req) {
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	if req.Metrics != nil {
		if err := metricsource.Validate(*req.Metrics); err != nil {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	decision := h.Orchestrator.Run(r.Context(), req.PlantID, req.Question, req.Metrics)
	respondJSON(w, http.StatusOK, decision)
}

// ScenarioRequest is the body of POST /api/v1/scenario and /api/v1/intent.
type ScenarioRequest struct {
	Question string                  `json:"question"`
	Metrics  *models.MetricsSnapshot `json:"metrics,omitempty"`
}

// ScenarioResponse previews a hypothetical without running the agents.
type ScenarioResponse struct {
	models.ScenarioRequest
	RealMetrics      *models.MetricsSnapshot `json:"real_metrics,omitempty"`
	SimulatedMetrics *models.MetricsSnapshot `json:"simulated_metrics,omitempty"`
	Risk             *models.RiskAssessment  `json:"risk,omitempty"`
	Warning          string                  `json:"warning,omitempty"`
}

// PreviewScenario parses overrides from a question and, when it is a
// simulation, shows the overridden snapshot and recalculated risk.
func (h *Handlers) PreviewScenario(w http.ResponseWriter, r *http.Request) {
	var req ScenarioRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		respondError(w, http.StatusBadRequest, "question is required")
		return
	}

	resp := ScenarioResponse{ScenarioRequest: scenario.Detect(req.Question)}
	if !resp.IsSimulation {
		respondJSON(w, http.StatusOK, resp)
		return
	}

	var base models.MetricsSnapshot
	switch {
	case req.Metrics != nil:
		base = req.Metrics.Clone()
	case h.Provider != nil:
		snap, err := h.Provider.LatestMetrics(r.Context())
		if err != nil {
			log.Warn().Err(err).Msg("Scenario preview using default metrics")
			resp.Warning = "metrics unavailable: " + err.Error()
		} else {
			base = snap
		}
	}

	simulated := scenario.ApplyOverrides(base, resp.Overrides)
	assessment := risk.Recalculate(simulated)
	resp.RealMetrics = &base
	resp.SimulatedMetrics = &simulated
	resp.Risk = &assessment
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handlers) ClassifyIntent(w http.ResponseWriter, r *http.Request) {
	var req ScenarioRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	respondJSON(w, http.StatusOK, h.Classifier.Classify(req.Question))
}

// ══════════════════════════════════════════════════════════════
// ── Audit Logs ───────────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

func (h *Handlers) ListAlerts(w http.ResponseWriter, r *http.Request) {
	listRecent(w, r, h.Logs.Alerts)
}

func (h *Handlers) ListSimulations(w http.ResponseWriter, r *http.Request) {
	listRecent(w, r, h.Logs.Simulations)
}

func (h *Handlers) ListMemory(w http.ResponseWriter, r *http.Request) {
	listRecent(w, r, h.Logs.Memory)
}

func listRecent[T any](w http.ResponseWriter, r *http.Request, l logstore.Log[T]) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := l.Recent(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []T{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"entries":  entries,
		"count":    len(entries),
		"capacity": l.Capacity(),
	})
}

// ══════════════════════════════════════════════════════════════
// ── Metrics ──────────────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

func (h *Handlers) LatestMetrics(w http.ResponseWriter, r *http.Request) {
	if h.Provider == nil {
		respondError(w, http.StatusServiceUnavailable, "metrics provider not configured")
		return
	}
	snap, err := h.Provider.LatestMetrics(r.Context())
	if err != nil {
		respondProviderError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (h *Handlers) DriftStatus(w http.ResponseWriter, r *http.Request) {
	if h.Provider == nil {
		respondError(w, http.StatusServiceUnavailable, "metrics provider not configured")
		return
	}
	ds, err := h.Provider.DriftStatus(r.Context())
	if err != nil {
		respondProviderError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ds)
}

func respondProviderError(w http.ResponseWriter, err error) {
	if errors.Is(err, metricsource.ErrMetricsNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondError(w, http.StatusBadGateway, err.Error())
}

// ── Helpers ──────────────────────────────────────────────────

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
