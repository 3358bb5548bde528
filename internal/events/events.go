package events

import (
	"time"

	"github.com/crestline/bidwise/internal/decision"
)

type ScenarioAnalyzedEvent struct {
	ScenarioID     string                  `json:"scenario_id"`
	FrameworkID    string                  `json:"framework_id"`
	OverallScore   float64                 `json:"overall_score"`
	Recommendation decision.Recommendation `json:"recommendation"`
	RiskLevel      decision.RiskLevel      `json:"risk_level"`
	Confidence     float64                 `json:"confidence_score"`
	AnalyzedAt     time.Time               `json:"analyzed_at"`
}

type DecisionRecordedEvent struct {
	HistoryID    string                  `json:"history_id"`
	ScenarioID   string                  `json:"scenario_id"`
	Decision     decision.Recommendation `json:"decision"`
	DecidedBy    string                  `json:"decided_by"`
	OverallScore float64                 `json:"overall_score"`
	DecisionDate time.Time               `json:"decision_date"`
}

type OutcomeRecordedEvent struct {
	HistoryID   string           `json:"history_id"`
	ScenarioID  string           `json:"scenario_id"`
	Outcome     decision.Outcome `json:"outcome"`
	Accuracy    *float64         `json:"accuracy,omitempty"`
	OutcomeDate time.Time        `json:"outcome_date"`
}

type ComparisonCreatedEvent struct {
	ComparisonID string    `json:"comparison_id"`
	ScenarioIDs  []string  `json:"scenario_ids"`
	TopScenario  string    `json:"top_scenario,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type FrameworkChangedEvent struct {
	FrameworkID string `json:"framework_id"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Active      bool   `json:"active"`
}
