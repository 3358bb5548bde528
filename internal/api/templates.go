package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/crestline/bidwise/internal/decision"
	"github.com/crestline/bidwise/internal/store"
)

type TemplatesHandler struct {
	store store.Store
}

func NewTemplatesHandler(s store.Store) *TemplatesHandler {
	return &TemplatesHandler{store: s}
}

type CreateTemplateRequest struct {
	Name          string                 `json:"name"`
	Description   string                 `json:"description,omitempty"`
	Category      string                 `json:"category,omitempty"`
	DefaultValues map[string]interface{} `json:"default_values"`
}

func (h *TemplatesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required"})
		return
	}

	t := &decision.ScenarioTemplate{
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		DefaultValues: req.DefaultValues,
	}
	if t.DefaultValues == nil {
		t.DefaultValues = map[string]interface{}{}
	}

	if err := h.store.CreateTemplate(r.Context(), t); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *TemplatesHandler) List(w http.ResponseWriter, r *http.Request) {
	templates, err := h.store.ListTemplates(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if templates == nil {
		templates = []*decision.ScenarioTemplate{}
	}
	writeJSON(w, http.StatusOK, templates)
}

func (h *TemplatesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid template id"})
		return
	}

	t, err := h.store.GetTemplate(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if t == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "template not found"})
		return
	}
	writeJSON(w, http.StatusOK, t)
}
