package decision

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Engine evaluates scenarios against frameworks. It holds no state
// beyond its configuration and is safe for concurrent use.
type Engine struct {
	// significance is the category spread above which a comparison
	// insight is generated.
	significance float64
}

// NewEngine creates an Engine. significance <= 0 falls back to the
// default spread threshold of 20 points.
func NewEngine(significance float64) *Engine {
	if significance <= 0 {
		significance = 20
	}
	return &Engine{significance: significance}
}

// Score evaluates one scenario's criteria values against a framework.
// It refuses to score an empty or mis-weighted framework; everything
// else degrades into issues recorded on the analysis itself.
func (e *Engine) Score(scenario *Scenario, framework *Framework) (*ScenarioAnalysis, error) {
	if len(framework.Criteria) == 0 {
		return nil, ErrEmptyFramework
	}
	if framework.Weights.Sum() != 100 {
		return nil, fmt.Errorf("%w: sum is %d", ErrInvalidWeighting, framework.Weights.Sum())
	}
	return e.scoreWith(scenario, framework, effectiveWeights(framework.Weights)), nil
}

// weightVector is the floating-point weighting used internally so that
// rule-driven weight adjustments can be rescaled without integer loss.
type weightVector map[Category]float64

func effectiveWeights(w WeightingScheme) weightVector {
	return weightVector{
		CategoryFinancial:   float64(w.Financial),
		CategoryStrategic:   float64(w.Strategic),
		CategoryOperational: float64(w.Operational),
		CategoryRisk:        float64(w.Risk),
		CategoryMarket:      float64(w.Market),
	}
}

func (e *Engine) scoreWith(scenario *Scenario, framework *Framework, weights weightVector) *ScenarioAnalysis {
	a := &ScenarioAnalysis{
		CriticalIssues: []string{},
		Opportunities:  []string{},
		Threats:        []string{},
		KeyFactors: KeyFactors{
			Positive: []string{},
			Negative: []string{},
			Neutral:  []string{},
		},
		Assumptions: []string{
			"stable economic conditions over the bid period",
			"required resources are available when needed",
			"no major changes to project requirements",
		},
	}

	for _, cat := range Categories() {
		score, issues := categoryScore(scenario, framework, cat)
		a.CategoryScores.set(cat, score)
		a.CriticalIssues = append(a.CriticalIssues, issues...)
	}

	var overall float64
	for _, cat := range Categories() {
		overall += a.CategoryScores.Score(cat) * weights[cat]
	}
	overall /= 100

	a.exactScore = overall
	a.OverallScore = math.Round(overall*10) / 10
	a.Recommendation = recommend(overall, framework.Thresholds)
	a.RiskLevel = riskLevel(a.CategoryScores.Risk)

	e.bucketFactors(a, scenario, framework)
	appendScoreInsights(a)

	return a
}

// recommend maps an unrounded overall score onto the threshold bands.
// Both thresholds are inclusive toward their own side, so the
// conditional band is the open interval strictly between them.
func recommend(overall float64, t DecisionThresholds) Recommendation {
	switch {
	case overall >= t.BidThreshold:
		return RecommendBid
	case overall <= t.NoBidThreshold:
		return RecommendNoBid
	default:
		return RecommendConditional
	}
}

// riskLevel inverts the risk category score: a low risk score means
// conditions are bad, so the risk level is high.
func riskLevel(riskScore float64) RiskLevel {
	switch {
	case riskScore >= 75:
		return RiskLow
	case riskScore >= 50:
		return RiskMedium
	case riskScore >= 25:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// categoryScore computes the weighted average of a category's
// normalized criterion scores. Missing values normalize to the neutral
// 50; a missing required value is also surfaced as a critical issue.
func categoryScore(scenario *Scenario, framework *Framework, cat Category) (float64, []string) {
	var issues []string
	var weighted, totalWeight, unweighted float64
	n := 0

	for _, c := range framework.Criteria {
		if c.Category != cat {
			continue
		}
		raw, ok := scenario.CriteriaValues[c.ID]
		var ns float64
		if !ok || raw == nil {
			ns = 50
			if c.Required {
				issues = append(issues, fmt.Sprintf("missing value for required criterion %q", c.Name))
			}
		} else {
			ns = normalize(raw, c)
		}
		weighted += ns * c.Weight
		totalWeight += c.Weight
		unweighted += ns
		n++
	}

	if n == 0 {
		return 0, issues
	}
	if totalWeight == 0 {
		return unweighted / float64(n), issues
	}
	return weighted / totalWeight, issues
}

// normalize maps a raw criterion value onto the 0-100 scale.
func normalize(raw interface{}, c Criterion) float64 {
	switch c.Kind {
	case KindBoolean:
		if b, ok := raw.(bool); ok && b {
			return 100
		}
		return 0
	case KindNumeric:
		v, ok := toFloat(raw)
		if !ok {
			return 50
		}
		if c.MinValue != nil && c.MaxValue != nil && *c.MaxValue > *c.MinValue {
			return clamp((v-*c.MinValue)/(*c.MaxValue-*c.MinValue)*100, 0, 100)
		}
		return clamp(v, 0, 100)
	case KindCategorical:
		s, ok := raw.(string)
		if !ok || len(c.AllowedValues) < 2 {
			return 50
		}
		for i, allowed := range c.AllowedValues {
			if allowed == s {
				return float64(i) / float64(len(c.AllowedValues)-1) * 100
			}
		}
		return 50
	default:
		return 50
	}
}

func toFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// bucketFactors renders each criterion into the positive, negative or
// neutral factor list based on its normalized score.
func (e *Engine) bucketFactors(a *ScenarioAnalysis, scenario *Scenario, framework *Framework) {
	for _, c := range framework.Criteria {
		raw, ok := scenario.CriteriaValues[c.ID]
		ns := 50.0
		display := "(no value)"
		if ok && raw != nil {
			ns = normalize(raw, c)
			display = fmt.Sprintf("%v", raw)
		}
		entry := fmt.Sprintf("%s: %s", c.Name, display)
		catWeight := framework.Weights.Weight(c.Category)
		switch {
		case ns >= 70 && catWeight > 0:
			a.KeyFactors.Positive = append(a.KeyFactors.Positive, entry)
		case ns <= 30:
			a.KeyFactors.Negative = append(a.KeyFactors.Negative, entry)
		default:
			a.KeyFactors.Neutral = append(a.KeyFactors.Neutral, entry)
		}
	}
}

// appendScoreInsights derives the critical issue, opportunity and
// threat lists from the category scores.
func appendScoreInsights(a *ScenarioAnalysis) {
	cs := a.CategoryScores

	if cs.Financial < 40 {
		a.CriticalIssues = append(a.CriticalIssues, "significant financial concerns requiring review")
	}
	if cs.Risk < 30 {
		a.CriticalIssues = append(a.CriticalIssues, "high risk level requiring a mitigation strategy")
	}
	if cs.Operational < 35 {
		a.CriticalIssues = append(a.CriticalIssues, "operational challenges may impact execution")
	}

	if cs.Market > 70 {
		a.Opportunities = append(a.Opportunities, "strong market opportunity for growth")
	}
	if cs.Strategic > 75 {
		a.Opportunities = append(a.Opportunities, "strong strategic alignment with company goals")
	}
	if cs.Financial > 80 {
		a.Opportunities = append(a.Opportunities, "attractive financial returns expected")
	}

	if cs.Market < 40 {
		a.Threats = append(a.Threats, "unfavorable market conditions")
	}
	if cs.Risk < 35 {
		a.Threats = append(a.Threats, "high risks may impact success")
	}
}

// Confidence reports how much of the framework the scenario actually
// filled in: explicit values over required criteria, capped at 100.
// Frameworks with no required criteria fall back to the full criteria
// count so the figure stays meaningful.
func Confidence(scenario *Scenario, framework *Framework) float64 {
	required := 0
	explicit := 0
	for _, c := range framework.Criteria {
		if c.Required {
			required++
		}
		if v, ok := scenario.CriteriaValues[c.ID]; ok && v != nil {
			explicit++
		}
	}
	denom := required
	if denom == 0 {
		denom = len(framework.Criteria)
	}
	if denom == 0 {
		return 0
	}
	return clamp(float64(explicit)/float64(denom)*100, 0, 100)
}

// sortedCriteriaIDs returns criterion ids in a stable order.
func sortedCriteriaIDs(set map[string]bool) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
