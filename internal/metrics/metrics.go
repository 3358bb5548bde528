package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bidwise",
			Name:      "analyses_total",
			Help:      "Total number of scenario analyses, partitioned by recommendation.",
		},
		[]string{"recommendation"},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bidwise",
			Name:      "analysis_seconds",
			Help:      "Scenario analysis latency in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	ruleOverridesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bidwise",
			Name:      "rule_overrides_total",
			Help:      "Analyses whose recommendation was changed by decision rules, partitioned by the resulting recommendation.",
		},
		[]string{"recommendation"},
	)

	comparisonsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bidwise",
			Name:      "comparisons_total",
			Help:      "Total number of scenario comparisons computed.",
		},
	)

	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bidwise",
			Name:      "decisions_total",
			Help:      "Recorded bid decisions, partitioned by decision.",
		},
		[]string{"decision"},
	)
)

// Register attaches the bidwise collectors to the supplied registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		analysesTotal,
		analysisDurationSeconds,
		ruleOverridesTotal,
		comparisonsTotal,
		decisionsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveAnalysis records one completed analysis.
func ObserveAnalysis(duration time.Duration, recommendation string) {
	analysesTotal.WithLabelValues(recommendation).Inc()
	if duration < 0 {
		duration = 0
	}
	analysisDurationSeconds.Observe(duration.Seconds())
}

// CountRuleOverride records an analysis whose recommendation was
// changed by decision rules.
func CountRuleOverride(recommendation string) {
	ruleOverridesTotal.WithLabelValues(recommendation).Inc()
}

// CountComparison records one computed comparison.
func CountComparison() {
	comparisonsTotal.Inc()
}

// CountDecision records one appended decision history record.
func CountDecision(decision string) {
	decisionsTotal.WithLabelValues(decision).Inc()
}
