package decision

import (
	"fmt"
	"sort"
	"time"
)

// Granularity selects the trend bucket size for analytics.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// Aggregate computes decision analytics over a history log in a single
// linear pass. It is pure and recomputed on every call; nothing is
// cached in the records themselves.
func Aggregate(history []DecisionHistory, granularity Granularity) DecisionAnalytics {
	switch granularity {
	case GranularityDay, GranularityWeek, GranularityMonth:
	default:
		granularity = GranularityMonth
	}

	analytics := DecisionAnalytics{
		TotalDecisions:      len(history),
		CategoryPerformance: map[Category]float64{},
		Trends:              []TrendBucket{},
		ImprovementAreas:    []string{},
	}

	var won, lost int
	var accuracySum float64
	resolved := 0
	catSums := map[Category]float64{}

	type bucketAcc struct {
		decisions   int
		won, lost   int
		accuracySum float64
		resolved    int
	}
	buckets := map[string]*bucketAcc{}

	for i := range history {
		h := &history[i]
		switch h.Decision {
		case RecommendBid:
			analytics.BidDecisions++
		case RecommendNoBid:
			analytics.NoBidDecisions++
		case RecommendConditional:
			analytics.ConditionalDecisions++
		}

		key := bucketKey(h.DecisionDate, granularity)
		b := buckets[key]
		if b == nil {
			b = &bucketAcc{}
			buckets[key] = b
		}
		b.decisions++

		if !h.Outcome.Resolved() {
			continue
		}
		resolved++
		acc := recordAccuracy(h.Decision, h.Outcome)
		accuracySum += acc
		b.resolved++
		b.accuracySum += acc

		switch h.Outcome {
		case OutcomeWon:
			won++
			b.won++
		case OutcomeLost:
			lost++
			b.lost++
		}

		for _, cat := range Categories() {
			catSums[cat] += h.CategoryScores.Score(cat)
		}
	}

	if won+lost > 0 {
		analytics.WinRate = float64(won) / float64(won+lost) * 100
	}
	if resolved > 0 {
		analytics.AverageAccuracy = accuracySum / float64(resolved)
		for _, cat := range Categories() {
			analytics.CategoryPerformance[cat] = catSums[cat] / float64(resolved)
		}
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b := buckets[k]
		t := TrendBucket{Period: k, Decisions: b.decisions}
		if b.won+b.lost > 0 {
			t.WinRate = float64(b.won) / float64(b.won+b.lost) * 100
		}
		if b.resolved > 0 {
			t.Accuracy = b.accuracySum / float64(b.resolved)
		}
		analytics.Trends = append(analytics.Trends, t)
	}

	for _, cat := range Categories() {
		if perf, ok := analytics.CategoryPerformance[cat]; ok && perf < 60 {
			analytics.ImprovementAreas = append(analytics.ImprovementAreas,
				fmt.Sprintf("improve %s assessment: average score %.1f is below target", cat, perf))
		}
	}

	return analytics
}

// RecordAccuracy computes the accuracy figure for a history record once
// its outcome is known: 1 when the decision matched reality, 0 when it
// did not. Unresolved outcomes have no accuracy.
func RecordAccuracy(decision Recommendation, outcome Outcome) (float64, bool) {
	if !outcome.Resolved() {
		return 0, false
	}
	return recordAccuracy(decision, outcome), true
}

func recordAccuracy(decision Recommendation, outcome Outcome) float64 {
	pursued := decision == RecommendBid || decision == RecommendConditional
	if pursued && outcome == OutcomeWon {
		return 1
	}
	if decision == RecommendNoBid && (outcome == OutcomeLost || outcome == OutcomeCancelled) {
		return 1
	}
	return 0
}

// bucketKey renders a decision date into its trend bucket. Keys sort
// lexicographically in chronological order.
func bucketKey(t time.Time, g Granularity) string {
	t = t.UTC()
	switch g {
	case GranularityDay:
		return t.Format("2006-01-02")
	case GranularityWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	default:
		return t.Format("2006-01")
	}
}
