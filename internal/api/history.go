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

type HistoryHandler struct {
	store              store.Store
	events             events.Client
	engine             *decision.Engine
	defaultGranularity decision.Granularity
}

func NewHistoryHandler(s store.Store, ev events.Client, engine *decision.Engine, defaultGranularity string) *HistoryHandler {
	return &HistoryHandler{
		store:              s,
		events:             ev,
		engine:             engine,
		defaultGranularity: decision.Granularity(defaultGranularity),
	}
}

type RecordDecisionRequest struct {
	ScenarioID string                  `json:"scenario_id"`
	Decision   decision.Recommendation `json:"decision"`
	Notes      string                  `json:"notes,omitempty"`
}

// Record appends the real-world bid decision for an analyzed scenario.
// Scores are snapshotted at decision time so later re-analysis cannot
// disturb analytics.
func (h *HistoryHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req RecordDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	id, err := uuid.Parse(req.ScenarioID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid scenario_id"})
		return
	}
	switch req.Decision {
	case decision.RecommendBid, decision.RecommendNoBid, decision.RecommendConditional:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "decision must be bid, no_bid or conditional_bid"})
		return
	}

	sc, err := h.store.GetScenario(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if sc == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "scenario not found"})
		return
	}
	if sc.Analysis == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "scenario has not been analyzed"})
		return
	}

	record := &decision.DecisionHistory{
		ScenarioID:     sc.ID,
		FrameworkID:    sc.FrameworkID,
		Decision:       req.Decision,
		DecisionDate:   time.Now().UTC(),
		DecidedBy:      r.Header.Get("X-User-ID"),
		Outcome:        decision.OutcomePending,
		OverallScore:   sc.Analysis.OverallScore,
		CategoryScores: sc.Analysis.CategoryScores,
		Notes:          req.Notes,
	}

	if err := h.store.AppendHistory(r.Context(), record); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	metrics.CountDecision(string(record.Decision))

	if h.events != nil {
		_ = h.events.Publish(events.SubjectDecisionRecorded(record.ID.String()), events.DecisionRecordedEvent{
			HistoryID:    record.ID.String(),
			ScenarioID:   record.ScenarioID.String(),
			Decision:     record.Decision,
			DecidedBy:    record.DecidedBy,
			OverallScore: record.OverallScore,
			DecisionDate: record.DecisionDate,
		})
	}

	writeJSON(w, http.StatusCreated, record)
}

func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.HistoryFilter{}
	if v := q.Get("scenario_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid scenario_id"})
			return
		}
		filter.ScenarioID = &id
	}
	if v := q.Get("decision"); v != "" {
		filter.Decisions = []decision.Recommendation{decision.Recommendation(v)}
	}
	if v := q.Get("outcome"); v != "" {
		filter.Outcomes = []decision.Outcome{decision.Outcome(v)}
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

	records, err := h.store.ListHistory(r.Context(), filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if records == nil {
		records = []*decision.DecisionHistory{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid history id"})
		return
	}

	record, err := h.store.GetHistory(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if record == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "decision record not found"})
		return
	}
	writeJSON(w, http.StatusOK, record)
}

type RecordOutcomeRequest struct {
	Outcome decision.Outcome `json:"outcome"`
}

func (h *HistoryHandler) RecordOutcome(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid history id"})
		return
	}

	var req RecordOutcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !req.Outcome.Resolved() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "outcome must be won, lost or cancelled"})
		return
	}

	record, err := h.store.GetHistory(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if record == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "decision record not found"})
		return
	}

	accuracy, _ := decision.RecordAccuracy(record.Decision, req.Outcome)
	now := time.Now().UTC()
	if err := h.store.SetHistoryOutcome(r.Context(), id, req.Outcome, now, &accuracy); err != nil {
		if errors.Is(err, store.ErrOutcomeAlreadySet) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "outcome has already been recorded"})
			return
		}
		if errors.Is(err, store.ErrHistoryNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "decision record not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	record.Outcome = req.Outcome
	record.OutcomeDate = &now
	record.Accuracy = &accuracy

	if h.events != nil {
		_ = h.events.Publish(events.SubjectOutcomeRecorded(id.String()), events.OutcomeRecordedEvent{
			HistoryID:   id.String(),
			ScenarioID:  record.ScenarioID.String(),
			Outcome:     req.Outcome,
			Accuracy:    &accuracy,
			OutcomeDate: now,
		})
	}

	writeJSON(w, http.StatusOK, record)
}

func (h *HistoryHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	granularity := h.defaultGranularity
	if v := r.URL.Query().Get("granularity"); v != "" {
		granularity = decision.Granularity(v)
	}

	records, err := h.store.ListHistory(r.Context(), store.HistoryFilter{})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	history := make([]decision.DecisionHistory, len(records))
	for i, rec := range records {
		history[i] = *rec
	}
	writeJSON(w, http.StatusOK, decision.Aggregate(history, granularity))
}
