package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crestline/bidwise/internal/decision"
)

func analyzedScenario(t *testing.T, router http.Handler) decision.Scenario {
	t.Helper()
	f := createFramework(t, router)
	sc := createScenario(t, router, f.ID.String(), strongValues())
	rec := doRequest(t, router, http.MethodPost, "/api/v1/scenarios/"+sc.ID.String()+"/analyze", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var analyzed decision.Scenario
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analyzed))
	return analyzed
}

func TestRecordDecision(t *testing.T) {
	router, _, ev := setupTestRouter()
	sc := analyzedScenario(t, router)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/history", RecordDecisionRequest{
		ScenarioID: sc.ID.String(),
		Decision:   decision.RecommendBid,
		Notes:      "board approved",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var record decision.DecisionHistory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	require.Equal(t, decision.RecommendBid, record.Decision)
	require.Equal(t, decision.OutcomePending, record.Outcome)
	require.Equal(t, sc.Analysis.OverallScore, record.OverallScore)
	require.Equal(t, "estimator-1", record.DecidedBy)

	require.Contains(t, ev.published(), "tender.decision."+record.ID.String()+".recorded")
}

func TestRecordDecisionRequiresAnalysis(t *testing.T) {
	router, _, _ := setupTestRouter()

	f := createFramework(t, router)
	sc := createScenario(t, router, f.ID.String(), strongValues())

	rec := doRequest(t, router, http.MethodPost, "/api/v1/history", RecordDecisionRequest{
		ScenarioID: sc.ID.String(),
		Decision:   decision.RecommendBid,
	})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestRecordDecisionRejectsUnknownDecision(t *testing.T) {
	router, _, _ := setupTestRouter()
	sc := analyzedScenario(t, router)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/history", RecordDecisionRequest{
		ScenarioID: sc.ID.String(),
		Decision:   "maybe",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordOutcomeOnce(t *testing.T) {
	router, _, ev := setupTestRouter()
	sc := analyzedScenario(t, router)

	created := doRequest(t, router, http.MethodPost, "/api/v1/history", RecordDecisionRequest{
		ScenarioID: sc.ID.String(),
		Decision:   decision.RecommendBid,
	})
	require.Equal(t, http.StatusCreated, created.Code)
	var record decision.DecisionHistory
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &record))

	rec := doRequest(t, router, http.MethodPost, "/api/v1/history/"+record.ID.String()+"/outcome", RecordOutcomeRequest{
		Outcome: decision.OutcomeWon,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated decision.DecisionHistory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Equal(t, decision.OutcomeWon, updated.Outcome)
	require.NotNil(t, updated.Accuracy)
	require.Equal(t, 1.0, *updated.Accuracy)

	again := doRequest(t, router, http.MethodPost, "/api/v1/history/"+record.ID.String()+"/outcome", RecordOutcomeRequest{
		Outcome: decision.OutcomeLost,
	})
	require.Equal(t, http.StatusConflict, again.Code)

	require.Contains(t, ev.published(), "tender.decision."+record.ID.String()+".outcome")
}

func TestRecordOutcomeRejectsPending(t *testing.T) {
	router, _, _ := setupTestRouter()
	sc := analyzedScenario(t, router)

	created := doRequest(t, router, http.MethodPost, "/api/v1/history", RecordDecisionRequest{
		ScenarioID: sc.ID.String(),
		Decision:   decision.RecommendBid,
	})
	var record decision.DecisionHistory
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &record))

	rec := doRequest(t, router, http.MethodPost, "/api/v1/history/"+record.ID.String()+"/outcome", RecordOutcomeRequest{
		Outcome: decision.OutcomePending,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyticsEndpoint(t *testing.T) {
	router, _, _ := setupTestRouter()
	sc := analyzedScenario(t, router)

	created := doRequest(t, router, http.MethodPost, "/api/v1/history", RecordDecisionRequest{
		ScenarioID: sc.ID.String(),
		Decision:   decision.RecommendBid,
	})
	var record decision.DecisionHistory
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &record))

	outcome := doRequest(t, router, http.MethodPost, "/api/v1/history/"+record.ID.String()+"/outcome", RecordOutcomeRequest{
		Outcome: decision.OutcomeWon,
	})
	require.Equal(t, http.StatusOK, outcome.Code)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/analytics?granularity=month", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var analytics decision.DecisionAnalytics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analytics))
	require.Equal(t, 1, analytics.TotalDecisions)
	require.Equal(t, 1, analytics.BidDecisions)
	require.Equal(t, 100.0, analytics.WinRate)
	require.Len(t, analytics.Trends, 1)
}

func TestApplyTemplateEndpoint(t *testing.T) {
	router, ms, _ := setupTestRouter()

	f := createFramework(t, router)
	sc := createScenario(t, router, f.ID.String(), map[string]interface{}{"margin": 5.0})

	tplRec := doRequest(t, router, http.MethodPost, "/api/v1/templates", CreateTemplateRequest{
		Name:     "Design and build",
		Category: "commercial",
		DefaultValues: map[string]interface{}{
			"margin":   12.0,
			"capacity": true,
		},
	})
	require.Equal(t, http.StatusCreated, tplRec.Code)
	var tpl decision.ScenarioTemplate
	require.NoError(t, json.Unmarshal(tplRec.Body.Bytes(), &tpl))

	rec := doRequest(t, router, http.MethodPost, "/api/v1/scenarios/"+sc.ID.String()+"/template", ApplyTemplateRequest{
		TemplateID: tpl.ID.String(),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated decision.Scenario
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Equal(t, 12.0, updated.CriteriaValues["margin"])
	require.Equal(t, true, updated.CriteriaValues["capacity"])

	stored, err := ms.GetTemplate(context.Background(), tpl.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.UsageCount)
}

func TestRecommendationsEndpoint(t *testing.T) {
	router, _, _ := setupTestRouter()
	sc := analyzedScenario(t, router)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/scenarios/"+sc.ID.String()+"/recommendations", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var recs []decision.DecisionRecommendation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recs))
	require.NotEmpty(t, recs)
	require.Equal(t, decision.RecommendationPrimary, recs[0].Type)
}

func TestRecommendationsRequireAnalysis(t *testing.T) {
	router, _, _ := setupTestRouter()

	f := createFramework(t, router)
	sc := createScenario(t, router, f.ID.String(), strongValues())

	rec := doRequest(t, router, http.MethodGet, "/api/v1/scenarios/"+sc.ID.String()+"/recommendations", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}
