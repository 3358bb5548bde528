package api

import (
	"net/http"

	"github.com/crestline/bidwise/internal/decision"
	"github.com/crestline/bidwise/internal/store"
)

type AdminHandler struct {
	store store.Store
}

func NewAdminHandler(s store.Store) *AdminHandler {
	return &AdminHandler{store: s}
}

type StatsResponse struct {
	Frameworks         int `json:"frameworks"`
	Scenarios          int `json:"scenarios"`
	AnalyzedScenarios  int `json:"analyzed_scenarios"`
	DecisionsRecorded  int `json:"decisions_recorded"`
	UnresolvedOutcomes int `json:"unresolved_outcomes"`
	Templates          int `json:"templates"`
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := StatsResponse{}

	frameworks, err := h.store.ListFrameworks(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	stats.Frameworks = len(frameworks)

	scenarios, err := h.store.ListScenarios(r.Context(), store.ScenarioFilter{Limit: 10000})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	stats.Scenarios = len(scenarios)
	for _, sc := range scenarios {
		if sc.Status == decision.ScenarioCompleted {
			stats.AnalyzedScenarios++
		}
	}

	records, err := h.store.ListHistory(r.Context(), store.HistoryFilter{})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	stats.DecisionsRecorded = len(records)
	for _, rec := range records {
		if !rec.Outcome.Resolved() {
			stats.UnresolvedOutcomes++
		}
	}

	templates, err := h.store.ListTemplates(r.Context(), "")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	stats.Templates = len(templates)

	writeJSON(w, http.StatusOK, stats)
}
