package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/crestline/bidwise/internal/decision"
	"github.com/crestline/bidwise/internal/events"
	"github.com/crestline/bidwise/internal/store"
)

type FrameworksHandler struct {
	store  store.Store
	events events.Client
}

func NewFrameworksHandler(s store.Store, ev events.Client) *FrameworksHandler {
	return &FrameworksHandler{store: s, events: ev}
}

type FrameworkRequest struct {
	Name        string                      `json:"name"`
	Description string                      `json:"description,omitempty"`
	Version     string                      `json:"version,omitempty"`
	Active      *bool                       `json:"active,omitempty"`
	Criteria    []decision.Criterion        `json:"criteria"`
	Weights     decision.WeightingScheme    `json:"weights"`
	Thresholds  decision.DecisionThresholds `json:"thresholds"`
	Rules       []decision.DecisionRule     `json:"rules,omitempty"`
}

func (h *FrameworksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req FrameworkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required"})
		return
	}

	f := &decision.Framework{
		Name:        req.Name,
		Description: req.Description,
		Version:     req.Version,
		Active:      true,
		Criteria:    req.Criteria,
		Weights:     req.Weights,
		Thresholds:  req.Thresholds,
		Rules:       req.Rules,
		CreatedBy:   r.Header.Get("X-User-ID"),
	}
	if f.Version == "" {
		f.Version = "1.0"
	}
	if req.Active != nil {
		f.Active = *req.Active
	}

	result := decision.ValidateFramework(f)
	if !result.Valid {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":      "framework failed validation",
			"validation": result,
		})
		return
	}

	if err := h.store.CreateFramework(r.Context(), f); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if h.events != nil {
		_ = h.events.Publish(events.SubjectFrameworkCreated(f.ID.String()), events.FrameworkChangedEvent{
			FrameworkID: f.ID.String(),
			Name:        f.Name,
			Version:     f.Version,
			Active:      f.Active,
		})
	}

	writeJSON(w, http.StatusCreated, f)
}

func (h *FrameworksHandler) List(w http.ResponseWriter, r *http.Request) {
	frameworks, err := h.store.ListFrameworks(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if frameworks == nil {
		frameworks = []*decision.Framework{}
	}
	writeJSON(w, http.StatusOK, frameworks)
}

func (h *FrameworksHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid framework id"})
		return
	}

	f, err := h.store.GetFramework(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if f == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "framework not found"})
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *FrameworksHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid framework id"})
		return
	}

	f, err := h.store.GetFramework(r.Context(), id)
	if err != nil || f == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "framework not found"})
		return
	}

	var req FrameworkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name != "" {
		f.Name = req.Name
	}
	if req.Description != "" {
		f.Description = req.Description
	}
	if req.Version != "" {
		f.Version = req.Version
	}
	if req.Active != nil {
		f.Active = *req.Active
	}
	if req.Criteria != nil {
		f.Criteria = req.Criteria
	}
	if req.Weights != (decision.WeightingScheme{}) {
		f.Weights = req.Weights
	}
	if req.Thresholds != (decision.DecisionThresholds{}) {
		f.Thresholds = req.Thresholds
	}
	if req.Rules != nil {
		f.Rules = req.Rules
	}

	result := decision.ValidateFramework(f)
	if !result.Valid {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":      "framework failed validation",
			"validation": result,
		})
		return
	}

	if err := h.store.UpdateFramework(r.Context(), f); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if h.events != nil {
		_ = h.events.Publish(events.SubjectFrameworkUpdated(f.ID.String()), events.FrameworkChangedEvent{
			FrameworkID: f.ID.String(),
			Name:        f.Name,
			Version:     f.Version,
			Active:      f.Active,
		})
	}

	writeJSON(w, http.StatusOK, f)
}

func (h *FrameworksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid framework id"})
		return
	}

	if err := h.store.DeleteFramework(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrFrameworkInUse) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "framework is referenced by analyzed scenarios"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Validate runs the framework validator without persisting anything, so
// clients can check drafts before saving.
func (h *FrameworksHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req FrameworkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	f := &decision.Framework{
		Name:       req.Name,
		Criteria:   req.Criteria,
		Weights:    req.Weights,
		Thresholds: req.Thresholds,
		Rules:      req.Rules,
	}
	writeJSON(w, http.StatusOK, decision.ValidateFramework(f))
}
