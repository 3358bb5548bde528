package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/crestline/bidwise/internal/decision"
	"github.com/crestline/bidwise/internal/events"
	"github.com/crestline/bidwise/internal/metrics"
	"github.com/crestline/bidwise/internal/store"
)

type ComparisonsHandler struct {
	store  store.Store
	events events.Client
	engine *decision.Engine
}

func NewComparisonsHandler(s store.Store, ev events.Client, engine *decision.Engine) *ComparisonsHandler {
	return &ComparisonsHandler{store: s, events: ev, engine: engine}
}

type CreateComparisonRequest struct {
	ScenarioIDs []string `json:"scenario_ids"`
}

func (h *ComparisonsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateComparisonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.ScenarioIDs) < 2 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "at least 2 scenario_ids required"})
		return
	}

	var analyzed []decision.AnalyzedScenario
	frameworks := map[uuid.UUID]*decision.Framework{}
	for _, raw := range req.ScenarioIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid scenario id " + raw})
			return
		}
		sc, err := h.store.GetScenario(r.Context(), id)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if sc == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "scenario not found: " + raw})
			return
		}

		fw := frameworks[sc.FrameworkID]
		if fw == nil && sc.FrameworkID != uuid.Nil {
			fw, err = h.store.GetFramework(r.Context(), sc.FrameworkID)
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			frameworks[sc.FrameworkID] = fw
		}
		if fw == nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "scenario has no framework: " + raw})
			return
		}
		analyzed = append(analyzed, decision.AnalyzedScenario{Scenario: sc, Framework: fw})
	}

	comparison, err := h.engine.Compare(analyzed)
	if err != nil {
		if errors.Is(err, decision.ErrNoComparableScenarios) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	comparison.ID = uuid.New()
	comparison.CreatedAt = time.Now().UTC()

	if err := h.store.CreateComparison(r.Context(), comparison); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	metrics.CountComparison()

	if h.events != nil {
		ids := make([]string, len(comparison.ScenarioIDs))
		for i, id := range comparison.ScenarioIDs {
			ids[i] = id.String()
		}
		evt := events.ComparisonCreatedEvent{
			ComparisonID: comparison.ID.String(),
			ScenarioIDs:  ids,
			CreatedAt:    comparison.CreatedAt,
		}
		if len(comparison.Matrix.Rankings) > 0 {
			evt.TopScenario = comparison.Matrix.Rankings[0].ScenarioID.String()
		}
		_ = h.events.Publish(events.SubjectComparisonCreated(comparison.ID.String()), evt)
	}

	writeJSON(w, http.StatusCreated, comparison)
}

func (h *ComparisonsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid comparison id"})
		return
	}

	c, err := h.store.GetComparison(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if c == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "comparison not found"})
		return
	}
	writeJSON(w, http.StatusOK, c)
}
