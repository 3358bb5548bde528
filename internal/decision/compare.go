package decision

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// AnalyzedScenario bundles a scenario with the framework it was scored
// under. Comparison callers resolve the records; the engine only
// computes.
type AnalyzedScenario struct {
	Scenario  *Scenario
	Framework *Framework
}

// Compare builds a weighted comparison matrix and ranking across
// multiple scenarios. Scenarios without a completed analysis are
// excluded with a warning rather than failing the whole batch; the
// comparison fails only when fewer than two scenarios remain.
//
// Criteria differing across frameworks are handled conservatively:
// only criteria present in every involved framework enter the matrix,
// so scenarios scored under different frameworks remain comparable.
func (e *Engine) Compare(scenarios []AnalyzedScenario) (*ScenarioComparison, error) {
	cmp := &ScenarioComparison{
		ID:              uuid.New(),
		Insights:        []ComparisonInsight{},
		Recommendations: []string{},
		CreatedAt:       time.Now().UTC(),
	}

	var usable []AnalyzedScenario
	for _, s := range scenarios {
		if s.Scenario.Analysis == nil || s.Scenario.Status != ScenarioCompleted {
			cmp.Warnings = append(cmp.Warnings, fmt.Sprintf("scenario %q excluded: not yet analyzed", s.Scenario.Name))
			continue
		}
		usable = append(usable, s)
	}
	if len(usable) < 2 {
		return nil, ErrNoComparableScenarios
	}

	criteriaIDs := sharedCriteria(usable)
	if len(criteriaIDs) == 0 {
		cmp.Warnings = append(cmp.Warnings, "no criteria shared by all frameworks: matrix is empty")
	}

	matrix := ComparisonMatrix{
		CriteriaIDs:    criteriaIDs,
		ScenarioIDs:    make([]uuid.UUID, len(usable)),
		WeightedScores: make([][]float64, len(usable)),
	}

	type rowResult struct {
		id         uuid.UUID
		overall    float64
		confidence float64
		createdAt  time.Time
	}
	rows := make([]rowResult, len(usable))

	for i, s := range usable {
		matrix.ScenarioIDs[i] = s.Scenario.ID
		row := make([]float64, len(criteriaIDs))
		var sum float64
		for j, cid := range criteriaIDs {
			c, _ := s.Framework.CriterionByID(cid)
			raw := s.Scenario.CriteriaValues[cid]
			ns := 50.0
			if raw != nil {
				ns = normalize(raw, c)
			}
			weight := c.Weight * float64(s.Framework.Weights.Weight(c.Category)) / 100
			row[j] = ns * weight
			sum += row[j]
		}
		matrix.WeightedScores[i] = row

		overall := 0.0
		if len(criteriaIDs) > 0 {
			overall = sum / float64(len(criteriaIDs))
		}
		rows[i] = rowResult{
			id:         s.Scenario.ID,
			overall:    overall,
			confidence: s.Scenario.Confidence,
			createdAt:  s.Scenario.CreatedAt,
		}
		cmp.ScenarioIDs = append(cmp.ScenarioIDs, s.Scenario.ID)
	}

	// Descending by score; ties break by higher confidence, then by
	// earlier creation, so repeated runs rank identically.
	ranked := make([]rowResult, len(rows))
	copy(ranked, rows)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].overall != ranked[j].overall {
			return ranked[i].overall > ranked[j].overall
		}
		if ranked[i].confidence != ranked[j].confidence {
			return ranked[i].confidence > ranked[j].confidence
		}
		return ranked[i].createdAt.Before(ranked[j].createdAt)
	})
	for rank, r := range ranked {
		matrix.Rankings = append(matrix.Rankings, ComparisonRanking{
			ScenarioID: r.id,
			Rank:       rank + 1,
			Score:      r.overall,
		})
	}
	cmp.Matrix = matrix

	cmp.Insights = e.comparisonInsights(usable, matrix)
	cmp.Recommendations = comparisonRecommendations(usable, matrix)

	return cmp, nil
}

// sharedCriteria returns the ids present in every involved framework,
// sorted for determinism.
func sharedCriteria(scenarios []AnalyzedScenario) []string {
	counts := make(map[string]int)
	seen := make(map[uuid.UUID]bool)
	frameworks := 0
	for _, s := range scenarios {
		if seen[s.Framework.ID] {
			continue
		}
		seen[s.Framework.ID] = true
		frameworks++
		for _, c := range s.Framework.Criteria {
			counts[c.ID]++
		}
	}

	shared := make(map[string]bool)
	for id, n := range counts {
		if n == frameworks {
			shared[id] = true
		}
	}
	return sortedCriteriaIDs(shared)
}

// comparisonInsights surfaces the overall leader plus a leader and
// trailer insight for every category whose spread across scenarios
// exceeds the significance threshold.
func (e *Engine) comparisonInsights(scenarios []AnalyzedScenario, matrix ComparisonMatrix) []ComparisonInsight {
	insights := []ComparisonInsight{}

	if len(matrix.Rankings) > 0 {
		best := matrix.Rankings[0]
		insights = append(insights, ComparisonInsight{
			Type:        InsightStrength,
			Category:    "overall",
			Description: fmt.Sprintf("top ranked scenario with weighted score %.1f", best.Score),
			Impact:      "high",
			Scenarios:   []uuid.UUID{best.ScenarioID},
		})
	}

	for _, cat := range Categories() {
		minScore, maxScore := 0.0, 0.0
		var minID, maxID uuid.UUID
		for i, s := range scenarios {
			score := s.Scenario.Analysis.CategoryScores.Score(cat)
			if i == 0 || score < minScore {
				minScore, minID = score, s.Scenario.ID
			}
			if i == 0 || score > maxScore {
				maxScore, maxID = score, s.Scenario.ID
			}
		}
		if maxScore-minScore <= e.significance {
			continue
		}
		insights = append(insights, ComparisonInsight{
			Type:        InsightStrength,
			Category:    string(cat),
			Description: fmt.Sprintf("leads the field on %s with %.1f", cat, maxScore),
			Impact:      bandImpact(maxScore >= 70),
			Scenarios:   []uuid.UUID{maxID},
		})
		insights = append(insights, ComparisonInsight{
			Type:        InsightWeakness,
			Category:    string(cat),
			Description: fmt.Sprintf("trails the field on %s with %.1f", cat, minScore),
			Impact:      bandImpact(minScore <= 30),
			Scenarios:   []uuid.UUID{minID},
		})
	}

	return insights
}

func bandImpact(pronounced bool) string {
	if pronounced {
		return "high"
	}
	return "medium"
}

func comparisonRecommendations(scenarios []AnalyzedScenario, matrix ComparisonMatrix) []string {
	recs := []string{}
	if len(matrix.Rankings) > 0 {
		recs = append(recs, fmt.Sprintf("focus on the top ranked scenario (rank %d)", matrix.Rankings[0].Rank))
	}
	if len(matrix.Rankings) > 2 {
		recs = append(recs, "review the lower ranked scenarios for improvement opportunities")
	}
	recs = append(recs, "run a sensitivity analysis on the critical factors of the shortlisted scenarios")
	return recs
}
