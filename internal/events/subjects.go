package events

const (
	StreamName   = "DECISION_EVENTS"
	StreamMaxAge = "2160h" // 90 days, tender post-mortems look back a quarter
)

func SubjectScenarioCreated(scenarioID string) string  { return "tender.scenario." + scenarioID + ".created" }
func SubjectScenarioAnalyzed(scenarioID string) string { return "tender.scenario." + scenarioID + ".analyzed" }
func SubjectScenarioDeleted(scenarioID string) string  { return "tender.scenario." + scenarioID + ".deleted" }

func SubjectDecisionRecorded(historyID string) string { return "tender.decision." + historyID + ".recorded" }
func SubjectOutcomeRecorded(historyID string) string  { return "tender.decision." + historyID + ".outcome" }

func SubjectComparisonCreated(comparisonID string) string {
	return "tender.comparison." + comparisonID + ".created"
}

func SubjectFrameworkCreated(frameworkID string) string { return "tender.framework." + frameworkID + ".created" }
func SubjectFrameworkUpdated(frameworkID string) string { return "tender.framework." + frameworkID + ".updated" }
