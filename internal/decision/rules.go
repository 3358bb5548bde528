package decision

import (
	"fmt"
	"sort"
)

// ApplyRules evaluates a framework's override rules against a scored
// analysis and returns a new analysis; the input is never mutated.
//
// Rules run in ascending priority order with insertion order breaking
// ties. Force actions overwrite the recommendation and evaluation
// continues, so with multiple forces the last one wins. Weight
// adjustments act on a future analysis: they trigger at most one
// re-score with the adjusted weighting, after which force and flag
// rules run again against the new scores.
func (e *Engine) ApplyRules(analysis *ScenarioAnalysis, framework *Framework, scenario *Scenario) *ScenarioAnalysis {
	if len(framework.Rules) == 0 {
		return cloneAnalysis(analysis)
	}

	ordered := orderedRules(framework.Rules)

	result, adjusted := e.rulePass(cloneAnalysis(analysis), ordered, framework, scenario, true)
	if adjusted != nil {
		// Single bounded re-score with the adjusted weighting; weight
		// rules are inert on the second pass to avoid oscillation.
		rescored := e.scoreWith(scenario, framework, adjusted)
		result, _ = e.rulePass(rescored, ordered, framework, scenario, false)
	}
	return result
}

func orderedRules(rules []DecisionRule) []DecisionRule {
	ordered := make([]DecisionRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})
	return ordered
}

// rulePass applies every active rule once. When allowWeights is set and
// any weight adjustment fires, the adjusted weight vector is returned
// and the caller re-scores.
func (e *Engine) rulePass(a *ScenarioAnalysis, rules []DecisionRule, framework *Framework, scenario *Scenario, allowWeights bool) (*ScenarioAnalysis, weightVector) {
	var adjusted weightVector

	for _, rule := range rules {
		if !rule.Active {
			continue
		}
		if !guardHolds(rule.Guard, a, scenario) {
			continue
		}

		switch rule.Action {
		case ActionForceBid:
			a.Recommendation = RecommendBid
		case ActionForceNoBid:
			a.Recommendation = RecommendNoBid
		case ActionFlagReview:
			a.CriticalIssues = append(a.CriticalIssues, fmt.Sprintf("flagged for review by rule %q", rule.Name))
		case ActionIncreaseWeight, ActionDecreaseWeight:
			if !allowWeights {
				continue
			}
			if adjusted == nil {
				adjusted = effectiveWeights(framework.Weights)
			}
			delta := float64(rule.WeightDelta)
			if rule.Action == ActionDecreaseWeight {
				delta = -delta
			}
			adjusted = adjustWeights(adjusted, rule.TargetCategory, delta)
		}
	}

	return a, adjusted
}

// guardHolds evaluates a typed rule guard against the scored analysis
// and the scenario's raw criteria values.
func guardHolds(g RuleGuard, a *ScenarioAnalysis, scenario *Scenario) bool {
	switch g.Kind {
	case GuardOverallScore:
		return compare(a.overallExact(), g.Operator, g.Value)
	case GuardCategoryScore:
		return compare(a.CategoryScores.Score(g.Category), g.Operator, g.Value)
	case GuardMissingValue:
		v, ok := scenario.CriteriaValues[g.CriterionID]
		return !ok || v == nil
	}
	return false
}

func compare(actual float64, op Comparison, value float64) bool {
	switch op {
	case CompareLT:
		return actual < value
	case CompareLTE:
		return actual <= value
	case CompareGT:
		return actual > value
	case CompareGTE:
		return actual >= value
	}
	return false
}

// adjustWeights applies a delta to one category's weight, clamps it at
// zero, then proportionally rescales the whole vector back to a sum of
// exactly 100.
func adjustWeights(w weightVector, target Category, delta float64) weightVector {
	out := make(weightVector, len(w))
	for c, v := range w {
		out[c] = v
	}
	out[target] = out[target] + delta
	if out[target] < 0 {
		out[target] = 0
	}

	var sum float64
	for _, v := range out {
		sum += v
	}
	if sum == 0 {
		return effectiveWeights(WeightingScheme{Financial: 20, Strategic: 20, Operational: 20, Risk: 20, Market: 20})
	}
	for c := range out {
		out[c] = out[c] / sum * 100
	}
	return out
}

// overallExact returns the unrounded score when this analysis came
// straight from the engine, falling back to the stored rounded score
// for analyses rehydrated from persistence.
func (a *ScenarioAnalysis) overallExact() float64 {
	if a.exactScore != 0 {
		return a.exactScore
	}
	return a.OverallScore
}

func cloneAnalysis(a *ScenarioAnalysis) *ScenarioAnalysis {
	out := *a
	out.KeyFactors = KeyFactors{
		Positive: append([]string{}, a.KeyFactors.Positive...),
		Negative: append([]string{}, a.KeyFactors.Negative...),
		Neutral:  append([]string{}, a.KeyFactors.Neutral...),
	}
	out.CriticalIssues = append([]string{}, a.CriticalIssues...)
	out.Opportunities = append([]string{}, a.Opportunities...)
	out.Threats = append([]string{}, a.Threats...)
	out.Assumptions = append([]string{}, a.Assumptions...)
	return &out
}
