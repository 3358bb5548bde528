package api

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/crestline/bidwise/internal/decision"
	"github.com/crestline/bidwise/internal/events"
	"github.com/crestline/bidwise/internal/metrics"
	"github.com/crestline/bidwise/internal/store"
)

type ScenariosHandler struct {
	store  store.Store
	events events.Client
	engine *decision.Engine
}

func NewScenariosHandler(s store.Store, ev events.Client, engine *decision.Engine) *ScenariosHandler {
	return &ScenariosHandler{store: s, events: ev, engine: engine}
}

type CreateScenarioRequest struct {
	Name           string                 `json:"name"`
	Description    string                 `json:"description,omitempty"`
	ProjectID      string                 `json:"project_id"`
	TenderID       string                 `json:"tender_id,omitempty"`
	FrameworkID    string                 `json:"framework_id,omitempty"`
	CriteriaValues map[string]interface{} `json:"criteria_values,omitempty"`
}

func (h *ScenariosHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" || req.ProjectID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and project_id required"})
		return
	}

	sc := &decision.Scenario{
		Name:           req.Name,
		Description:    req.Description,
		ProjectID:      req.ProjectID,
		TenderID:       req.TenderID,
		Status:         decision.ScenarioDraft,
		CriteriaValues: req.CriteriaValues,
		CreatedBy:      r.Header.Get("X-User-ID"),
	}
	if sc.CriteriaValues == nil {
		sc.CriteriaValues = map[string]interface{}{}
	}
	if req.FrameworkID != "" {
		fid, err := uuid.Parse(req.FrameworkID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid framework_id"})
			return
		}
		sc.FrameworkID = fid
	}

	if err := h.store.CreateScenario(r.Context(), sc); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if h.events != nil {
		_ = h.events.Publish(events.SubjectScenarioCreated(sc.ID.String()), sc)
	}

	writeJSON(w, http.StatusCreated, sc)
}

func (h *ScenariosHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ScenarioFilter{
		ProjectID: q.Get("project_id"),
		CreatedBy: q.Get("created_by"),
		Search:    q.Get("search"),
	}
	if s := q.Get("status"); s != "" {
		status := decision.ScenarioStatus(s)
		filter.Status = &status
	}
	if rec := q.Get("recommendation"); rec != "" {
		recommendation := decision.Recommendation(rec)
		filter.Recommendation = &recommendation
	}
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.From = &t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.To = &t
		}
	}
	if v := q.Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &filter.Limit)
	}
	if v := q.Get("offset"); v != "" {
		fmt.Sscanf(v, "%d", &filter.Offset)
	}

	scenarios, err := h.store.ListScenarios(r.Context(), filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if scenarios == nil {
		scenarios = []*decision.Scenario{}
	}
	writeJSON(w, http.StatusOK, scenarios)
}

func (h *ScenariosHandler) Get(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.loadScenario(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

type UpdateScenarioRequest struct {
	Name           string                 `json:"name,omitempty"`
	Description    string                 `json:"description,omitempty"`
	FrameworkID    string                 `json:"framework_id,omitempty"`
	CriteriaValues map[string]interface{} `json:"criteria_values,omitempty"`
	Version        int                    `json:"version"`
}

func (h *ScenariosHandler) Update(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.loadScenario(w, r)
	if !ok {
		return
	}

	var req UpdateScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name != "" {
		sc.Name = req.Name
	}
	if req.Description != "" {
		sc.Description = req.Description
	}
	if req.FrameworkID != "" {
		fid, err := uuid.Parse(req.FrameworkID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid framework_id"})
			return
		}
		sc.FrameworkID = fid
	}
	if req.CriteriaValues != nil {
		sc.CriteriaValues = req.CriteriaValues
		// Edited inputs invalidate the stored analysis.
		sc.Analysis = nil
		sc.Status = decision.ScenarioDraft
	}
	if req.Version != 0 {
		sc.Version = req.Version
	}

	if err := h.store.UpdateScenario(r.Context(), sc); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "scenario was modified by another writer"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (h *ScenariosHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid scenario id"})
		return
	}
	if err := h.store.DeleteScenario(r.Context(), id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if h.events != nil {
		_ = h.events.Publish(events.SubjectScenarioDeleted(id.String()), map[string]string{"scenario_id": id.String()})
	}
	w.WriteHeader(http.StatusNoContent)
}

type AnalyzeRequest struct {
	FrameworkID string `json:"framework_id,omitempty"`
}

func (h *ScenariosHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.loadScenario(w, r)
	if !ok {
		return
	}

	var req AnalyzeRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.FrameworkID != "" {
		fid, err := uuid.Parse(req.FrameworkID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid framework_id"})
			return
		}
		sc.FrameworkID = fid
	}
	if sc.FrameworkID == uuid.Nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "scenario has no framework"})
		return
	}

	fw, err := h.store.GetFramework(r.Context(), sc.FrameworkID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if fw == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "framework not found"})
		return
	}

	if result := decision.ValidateFramework(fw); !result.Valid {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":      "framework failed validation",
			"validation": result,
		})
		return
	}

	start := time.Now()
	analysis, err := h.engine.Score(sc, fw)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	ruled := h.engine.ApplyRules(analysis, fw, sc)
	if ruled.Recommendation != analysis.Recommendation {
		metrics.CountRuleOverride(string(ruled.Recommendation))
	}
	analysis = ruled

	now := time.Now().UTC()
	sc.Analysis = analysis
	sc.Confidence = decision.Confidence(sc, fw)
	sc.Status = decision.ScenarioCompleted
	sc.LastAnalyzed = &now

	if err := h.store.UpdateScenario(r.Context(), sc); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "scenario was modified by another writer"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	metrics.ObserveAnalysis(time.Since(start), string(analysis.Recommendation))

	if h.events != nil {
		_ = h.events.Publish(events.SubjectScenarioAnalyzed(sc.ID.String()), events.ScenarioAnalyzedEvent{
			ScenarioID:     sc.ID.String(),
			FrameworkID:    fw.ID.String(),
			OverallScore:   analysis.OverallScore,
			Recommendation: analysis.Recommendation,
			RiskLevel:      analysis.RiskLevel,
			Confidence:     sc.Confidence,
			AnalyzedAt:     now,
		})
	}

	writeJSON(w, http.StatusOK, sc)
}

func (h *ScenariosHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.loadScenario(w, r)
	if !ok {
		return
	}

	recs, err := decision.GenerateRecommendations(sc)
	if err != nil {
		if errors.Is(err, decision.ErrNotAnalyzed) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "scenario has not been analyzed"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

type ApplyTemplateRequest struct {
	TemplateID string `json:"template_id"`
}

func (h *ScenariosHandler) ApplyTemplate(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.loadScenario(w, r)
	if !ok {
		return
	}

	var req ApplyTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TemplateID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "template_id required"})
		return
	}
	tid, err := uuid.Parse(req.TemplateID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid template_id"})
		return
	}

	tpl, err := h.store.GetTemplate(r.Context(), tid)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if tpl == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "template not found"})
		return
	}

	updated, used := decision.ApplyTemplate(tpl, sc)
	if err := h.store.UpdateScenario(r.Context(), updated); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "scenario was modified by another writer"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if err := h.store.UpdateTemplate(r.Context(), used); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *ScenariosHandler) Export(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.loadScenario(w, r)
	if !ok {
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" || format == "json" {
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="scenario-%s.json"`, sc.ID))
		writeJSON(w, http.StatusOK, sc)
		return
	}
	if format != "csv" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "format must be json or csv"})
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="scenario-%s.csv"`, sc.ID))
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"field", "value"})
	_ = cw.Write([]string{"id", sc.ID.String()})
	_ = cw.Write([]string{"name", sc.Name})
	_ = cw.Write([]string{"project_id", sc.ProjectID})
	_ = cw.Write([]string{"status", string(sc.Status)})
	for _, id := range sortedValueKeys(sc.CriteriaValues) {
		_ = cw.Write([]string{"value:" + id, fmt.Sprintf("%v", sc.CriteriaValues[id])})
	}
	if sc.Analysis != nil {
		_ = cw.Write([]string{"overall_score", fmt.Sprintf("%.1f", sc.Analysis.OverallScore)})
		_ = cw.Write([]string{"recommendation", string(sc.Analysis.Recommendation)})
		_ = cw.Write([]string{"risk_level", string(sc.Analysis.RiskLevel)})
		for _, cat := range decision.Categories() {
			_ = cw.Write([]string{"score:" + string(cat), fmt.Sprintf("%.1f", sc.Analysis.CategoryScores.Score(cat))})
		}
	}
	cw.Flush()
}

func (h *ScenariosHandler) loadScenario(w http.ResponseWriter, r *http.Request) (*decision.Scenario, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid scenario id"})
		return nil, false
	}
	sc, err := h.store.GetScenario(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return nil, false
	}
	if sc == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "scenario not found"})
		return nil, false
	}
	return sc, true
}

func sortedValueKeys(values map[string]interface{}) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
