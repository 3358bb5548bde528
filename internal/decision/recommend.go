package decision

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotAnalyzed is returned when follow-on recommendations are
// requested for a scenario that has not been scored.
var ErrNotAnalyzed = errors.New("scenario has no completed analysis")

// GenerateRecommendations derives follow-on action records from a
// completed analysis: a primary record always, plus an alternative
// when the verdict is conditional. Records are ordered by priority.
func GenerateRecommendations(scenario *Scenario) ([]DecisionRecommendation, error) {
	a := scenario.Analysis
	if a == nil {
		return nil, ErrNotAnalyzed
	}

	recs := []DecisionRecommendation{{
		ID:              "rec_" + uuid.NewString(),
		Type:            RecommendationPrimary,
		Action:          primaryAction(a.Recommendation),
		Rationale:       fmt.Sprintf("overall score %.1f with %s risk level", a.OverallScore, a.RiskLevel),
		Priority:        1,
		Timeline:        actionTimeline(a.Recommendation),
		ExpectedOutcome: expectedOutcome(a.OverallScore),
		Resources:       requiredResources(a),
		RiskMitigation:  riskMitigation(a),
		SuccessMetrics: []string{
			"target margins achieved",
			"schedule adherence",
			"client satisfaction",
			"execution quality",
		},
		Conditions: conditions(a),
	}}

	if a.Recommendation == RecommendConditional {
		recs = append(recs, DecisionRecommendation{
			ID:              "rec_" + uuid.NewString(),
			Type:            RecommendationAlternative,
			Action:          "run additional analysis before the final decision",
			Rationale:       "score falls in the conditional band and needs further review",
			Priority:        2,
			Timeline:        "one week",
			ExpectedOutcome: "a clearer, higher-confidence verdict",
			Resources:       []string{"analysis team", "additional data"},
			RiskMitigation:  []string{"review assumptions", "sensitivity analysis"},
			SuccessMetrics:  []string{"decision clarity", "higher confidence in the result"},
			Conditions:      []string{"required data is available", "enough time before the submission deadline"},
		})
	}

	return recs, nil
}

func primaryAction(r Recommendation) string {
	switch r {
	case RecommendBid:
		return "pursue the tender"
	case RecommendNoBid:
		return "decline the tender"
	default:
		return "pursue the tender subject to conditions"
	}
}

func actionTimeline(r Recommendation) string {
	switch r {
	case RecommendBid:
		return "immediate: start bid preparation"
	case RecommendNoBid:
		return "immediate: notify no-bid"
	default:
		return "one week: review conditions"
	}
}

func expectedOutcome(score float64) string {
	switch {
	case score > 80:
		return "high likelihood of success and profitability"
	case score > 60:
		return "moderate likelihood of success with risk monitoring"
	default:
		return "low likelihood of success, further analysis required"
	}
}

func requiredResources(a *ScenarioAnalysis) []string {
	resources := []string{"bid preparation team", "financial data"}
	if a.RiskLevel == RiskHigh || a.RiskLevel == RiskCritical {
		resources = append(resources, "risk management specialist")
	}
	if a.CategoryScores.Operational < 70 {
		resources = append(resources, "operations consultant")
	}
	return resources
}

func riskMitigation(a *ScenarioAnalysis) []string {
	var mitigation []string
	if a.RiskLevel == RiskHigh || a.RiskLevel == RiskCritical {
		mitigation = append(mitigation, "prepare a comprehensive risk management plan")
	}
	if a.CategoryScores.Financial < 60 {
		mitigation = append(mitigation, "review cost estimates and margins")
	}
	mitigation = append(mitigation, "continuous monitoring of key indicators")
	return mitigation
}

func conditions(a *ScenarioAnalysis) []string {
	conds := []string{"senior management approval"}
	if a.Recommendation == RecommendConditional {
		conds = append(conds, "contractual terms reviewed", "resource availability confirmed")
	}
	return conds
}
