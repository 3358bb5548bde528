package decision

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Category is one of the five scored dimensions of a tender decision.
type Category string

const (
	CategoryFinancial   Category = "financial"
	CategoryStrategic   Category = "strategic"
	CategoryOperational Category = "operational"
	CategoryRisk        Category = "risk"
	CategoryMarket      Category = "market"
)

// Categories lists every category in scoring order.
func Categories() []Category {
	return []Category{CategoryFinancial, CategoryStrategic, CategoryOperational, CategoryRisk, CategoryMarket}
}

type DataKind string

const (
	KindBoolean     DataKind = "boolean"
	KindNumeric     DataKind = "numeric"
	KindCategorical DataKind = "categorical"
	KindText        DataKind = "text"
)

type Recommendation string

const (
	RecommendBid         Recommendation = "bid"
	RecommendNoBid       Recommendation = "no_bid"
	RecommendConditional Recommendation = "conditional_bid"
)

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

type RiskTolerance string

const (
	ToleranceConservative RiskTolerance = "conservative"
	ToleranceModerate     RiskTolerance = "moderate"
	ToleranceAggressive   RiskTolerance = "aggressive"
)

// Criterion is a single scored dimension inside a framework. Once a
// framework version is active the criterion is immutable; changes go
// through a new framework version.
type Criterion struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Category       Category  `json:"category"`
	Kind           DataKind  `json:"kind"`
	MinValue       *float64  `json:"min_value,omitempty"`
	MaxValue       *float64  `json:"max_value,omitempty"`
	AllowedValues  []string  `json:"allowed_values,omitempty"`
	Weight         float64   `json:"weight"`
	Required       bool      `json:"required"`
}

// WeightingScheme holds one weight per category. The five weights must
// sum to exactly 100; the sum is integer, no tolerance.
type WeightingScheme struct {
	Financial   int `json:"financial"`
	Strategic   int `json:"strategic"`
	Operational int `json:"operational"`
	Risk        int `json:"risk"`
	Market      int `json:"market"`
}

// Sum returns the total of the five weights.
func (w WeightingScheme) Sum() int {
	return w.Financial + w.Strategic + w.Operational + w.Risk + w.Market
}

// Weight returns the weight for a category.
func (w WeightingScheme) Weight(c Category) int {
	switch c {
	case CategoryFinancial:
		return w.Financial
	case CategoryStrategic:
		return w.Strategic
	case CategoryOperational:
		return w.Operational
	case CategoryRisk:
		return w.Risk
	case CategoryMarket:
		return w.Market
	}
	return 0
}

type ConditionalRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type DecisionThresholds struct {
	BidThreshold     float64          `json:"bid_threshold"`
	NoBidThreshold   float64          `json:"no_bid_threshold"`
	ConditionalRange ConditionalRange `json:"conditional_range"`
	RiskTolerance    RiskTolerance    `json:"risk_tolerance"`
}

type RuleAction string

const (
	ActionForceBid       RuleAction = "force_bid"
	ActionForceNoBid     RuleAction = "force_no_bid"
	ActionIncreaseWeight RuleAction = "increase_weight"
	ActionDecreaseWeight RuleAction = "decrease_weight"
	ActionFlagReview     RuleAction = "flag_review"
)

type GuardKind string

const (
	GuardOverallScore  GuardKind = "overall_score"
	GuardCategoryScore GuardKind = "category_score"
	GuardMissingValue  GuardKind = "missing_value"
)

type Comparison string

const (
	CompareLT  Comparison = "lt"
	CompareLTE Comparison = "lte"
	CompareGT  Comparison = "gt"
	CompareGTE Comparison = "gte"
)

// RuleGuard is the closed condition set rules may test. Guards see the
// scored analysis and the scenario's raw values, never normalization
// internals.
type RuleGuard struct {
	Kind        GuardKind  `json:"kind"`
	Category    Category   `json:"category,omitempty"`
	Operator    Comparison `json:"operator,omitempty"`
	Value       float64    `json:"value,omitempty"`
	CriterionID string     `json:"criterion_id,omitempty"`
}

// DecisionRule is a guarded override applied after raw scoring. Lower
// priority evaluates first; equal priorities keep insertion order.
type DecisionRule struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Guard          RuleGuard  `json:"guard"`
	Action         RuleAction `json:"action"`
	TargetCategory Category   `json:"target_category,omitempty"`
	WeightDelta    int        `json:"weight_delta,omitempty"`
	Priority       int        `json:"priority"`
	Active         bool       `json:"active"`
}

// Framework is the reusable rule set used to score scenarios.
type Framework struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Version     string             `json:"version"`
	Active      bool               `json:"active"`
	Criteria    []Criterion        `json:"criteria"`
	Weights     WeightingScheme    `json:"weights"`
	Thresholds  DecisionThresholds `json:"thresholds"`
	Rules       []DecisionRule     `json:"rules,omitempty"`
	CreatedBy   string             `json:"created_by"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// CriterionByID looks up a criterion by id.
func (f *Framework) CriterionByID(id string) (Criterion, bool) {
	for _, c := range f.Criteria {
		if c.ID == id {
			return c, true
		}
	}
	return Criterion{}, false
}

type ScenarioStatus string

const (
	ScenarioDraft     ScenarioStatus = "draft"
	ScenarioCompleted ScenarioStatus = "completed"
)

// Scenario is one concrete bid/no-bid situation under evaluation.
// Raw inputs and the derived analysis are kept apart: Analysis is only
// ever written by the engine, never hand-edited.
type Scenario struct {
	ID             uuid.UUID              `json:"id"`
	Name           string                 `json:"name"`
	Description    string                 `json:"description,omitempty"`
	ProjectID      string                 `json:"project_id"`
	TenderID       string                 `json:"tender_id,omitempty"`
	FrameworkID    uuid.UUID              `json:"framework_id,omitempty"`
	Status         ScenarioStatus         `json:"status"`
	CriteriaValues map[string]interface{} `json:"criteria_values"`
	Analysis       *ScenarioAnalysis      `json:"analysis,omitempty"`
	Confidence     float64                `json:"confidence_score"`
	CreatedBy      string                 `json:"created_by"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
	LastAnalyzed   *time.Time             `json:"last_analyzed,omitempty"`

	// Version is bumped by the store on every update; stale writers
	// are rejected rather than silently overwriting a newer analysis.
	Version int `json:"version"`
}

// CategoryScores holds the five per-category scores on a 0-100 scale.
type CategoryScores struct {
	Financial   float64 `json:"financial"`
	Strategic   float64 `json:"strategic"`
	Operational float64 `json:"operational"`
	Risk        float64 `json:"risk"`
	Market      float64 `json:"market"`
}

// Score returns the score for a category.
func (cs CategoryScores) Score(c Category) float64 {
	switch c {
	case CategoryFinancial:
		return cs.Financial
	case CategoryStrategic:
		return cs.Strategic
	case CategoryOperational:
		return cs.Operational
	case CategoryRisk:
		return cs.Risk
	case CategoryMarket:
		return cs.Market
	}
	return 0
}

func (cs *CategoryScores) set(c Category, v float64) {
	switch c {
	case CategoryFinancial:
		cs.Financial = v
	case CategoryStrategic:
		cs.Strategic = v
	case CategoryOperational:
		cs.Operational = v
	case CategoryRisk:
		cs.Risk = v
	case CategoryMarket:
		cs.Market = v
	}
}

// KeyFactors buckets criteria by how strongly they pull the decision.
type KeyFactors struct {
	Positive []string `json:"positive"`
	Negative []string `json:"negative"`
	Neutral  []string `json:"neutral"`
}

// ScenarioAnalysis is the scoring engine's output. It is derived data:
// the engine (plus the rule evaluator) is its only writer.
type ScenarioAnalysis struct {
	OverallScore   float64        `json:"overall_score"`
	Recommendation Recommendation `json:"recommendation"`
	RiskLevel      RiskLevel      `json:"risk_level"`
	CategoryScores CategoryScores `json:"category_scores"`
	KeyFactors     KeyFactors     `json:"key_factors"`
	CriticalIssues []string       `json:"critical_issues"`
	Opportunities  []string       `json:"opportunities"`
	Threats        []string       `json:"threats"`
	Assumptions    []string       `json:"assumptions"`

	// exactScore is the unrounded overall score; thresholds compare
	// against this to avoid boundary flapping after rounding.
	exactScore float64
}

type RecommendationType string

const (
	RecommendationPrimary     RecommendationType = "primary"
	RecommendationAlternative RecommendationType = "alternative"
	RecommendationContingency RecommendationType = "contingency"
)

// DecisionRecommendation is a follow-on action record generated from a
// completed analysis.
type DecisionRecommendation struct {
	ID              string             `json:"id"`
	Type            RecommendationType `json:"type"`
	Action          string             `json:"action"`
	Rationale       string             `json:"rationale"`
	Priority        int                `json:"priority"`
	Timeline        string             `json:"timeline"`
	ExpectedOutcome string             `json:"expected_outcome"`
	Resources       []string           `json:"resources,omitempty"`
	RiskMitigation  []string           `json:"risk_mitigation,omitempty"`
	SuccessMetrics  []string           `json:"success_metrics,omitempty"`
	Conditions      []string           `json:"conditions,omitempty"`
}

// ScenarioTemplate is a reusable default-value mapping.
type ScenarioTemplate struct {
	ID            uuid.UUID              `json:"id"`
	Name          string                 `json:"name"`
	Description   string                 `json:"description,omitempty"`
	Category      string                 `json:"category,omitempty"`
	DefaultValues map[string]interface{} `json:"default_values"`
	UsageCount    int                    `json:"usage_count"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

type InsightType string

const (
	InsightStrength    InsightType = "strength"
	InsightWeakness    InsightType = "weakness"
	InsightOpportunity InsightType = "opportunity"
	InsightThreat      InsightType = "threat"
)

type ComparisonInsight struct {
	Type        InsightType `json:"type"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Impact      string      `json:"impact"`
	Scenarios   []uuid.UUID `json:"affected_scenarios"`
}

type ComparisonRanking struct {
	ScenarioID uuid.UUID `json:"scenario_id"`
	Rank       int       `json:"rank"`
	Score      float64   `json:"score"`
}

// ComparisonMatrix is the cross-scenario table of weighted
// per-criterion scores used for ranking.
type ComparisonMatrix struct {
	CriteriaIDs    []string            `json:"criteria_ids"`
	ScenarioIDs    []uuid.UUID         `json:"scenario_ids"`
	WeightedScores [][]float64         `json:"weighted_scores"`
	Rankings       []ComparisonRanking `json:"rankings"`
}

// ScenarioComparison ranks multiple analyzed scenarios against the
// shared portion of their criteria sets. Recomputed whole on demand.
type ScenarioComparison struct {
	ID              uuid.UUID           `json:"id"`
	ScenarioIDs     []uuid.UUID         `json:"scenario_ids"`
	Matrix          ComparisonMatrix    `json:"matrix"`
	Insights        []ComparisonInsight `json:"insights"`
	Recommendations []string            `json:"recommendations"`
	Warnings        []string            `json:"warnings,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

type Outcome string

const (
	OutcomeWon       Outcome = "won"
	OutcomeLost      Outcome = "lost"
	OutcomeCancelled Outcome = "cancelled"
	OutcomePending   Outcome = "pending"
)

// Resolved reports whether the real-world result is known.
func (o Outcome) Resolved() bool {
	return o == OutcomeWon || o == OutcomeLost || o == OutcomeCancelled
}

// DecisionHistory is one append-only record per real-world bid/no-bid
// decision, linking a scenario to its eventual outcome. Score snapshots
// are taken at decision time so later re-analysis cannot rewrite the
// record analytics are built on.
type DecisionHistory struct {
	ID             uuid.UUID      `json:"id"`
	ScenarioID     uuid.UUID      `json:"scenario_id"`
	FrameworkID    uuid.UUID      `json:"framework_id"`
	Decision       Recommendation `json:"decision"`
	DecisionDate   time.Time      `json:"decision_date"`
	DecidedBy      string         `json:"decided_by"`
	Outcome        Outcome        `json:"outcome"`
	OutcomeDate    *time.Time     `json:"outcome_date,omitempty"`
	Accuracy       *float64       `json:"accuracy,omitempty"`
	OverallScore   float64        `json:"overall_score"`
	CategoryScores CategoryScores `json:"category_scores"`
	Notes          string         `json:"notes,omitempty"`
}

type TrendBucket struct {
	Period    string  `json:"period"`
	Decisions int     `json:"decisions"`
	WinRate   float64 `json:"win_rate"`
	Accuracy  float64 `json:"accuracy"`
}

// DecisionAnalytics is a pure aggregate view over decision history. It
// has no identity or lifecycle; every request recomputes it.
type DecisionAnalytics struct {
	TotalDecisions       int                  `json:"total_decisions"`
	BidDecisions         int                  `json:"bid_decisions"`
	NoBidDecisions       int                  `json:"no_bid_decisions"`
	ConditionalDecisions int                  `json:"conditional_decisions"`
	WinRate              float64              `json:"win_rate"`
	AverageAccuracy      float64              `json:"average_accuracy"`
	CategoryPerformance  map[Category]float64 `json:"category_performance"`
	Trends               []TrendBucket        `json:"trends"`
	ImprovementAreas     []string             `json:"improvement_areas"`
}

// ValidationResult is the framework validator's verdict.
type ValidationResult struct {
	Valid       bool     `json:"is_valid"`
	Errors      []string `json:"errors"`
	Warnings    []string `json:"warnings"`
	Suggestions []string `json:"suggestions"`
}

var (
	// ErrEmptyFramework is returned when scoring is attempted against a
	// framework with no criteria.
	ErrEmptyFramework = errors.New("framework has no criteria")

	// ErrInvalidWeighting is returned when the weighting scheme does
	// not sum to 100.
	ErrInvalidWeighting = errors.New("weighting scheme does not sum to 100")

	// ErrNoComparableScenarios is returned when a comparison is left
	// with fewer than two analyzed scenarios.
	ErrNoComparableScenarios = errors.New("at least 2 analyzed scenarios are required for comparison")
)
