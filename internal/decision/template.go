package decision

// ApplyTemplate copies a template's default values onto a scenario.
// Keys present in the template overwrite the scenario's values; all
// other keys are left untouched. Both inputs are returned as updated
// copies, with the template's usage counter incremented, and the caller
// decides whether to persist them.
func ApplyTemplate(template *ScenarioTemplate, scenario *Scenario) (*Scenario, *ScenarioTemplate) {
	outScenario := *scenario
	merged := make(map[string]interface{}, len(scenario.CriteriaValues)+len(template.DefaultValues))
	for k, v := range scenario.CriteriaValues {
		merged[k] = v
	}
	for k, v := range template.DefaultValues {
		merged[k] = v
	}
	outScenario.CriteriaValues = merged

	outTemplate := *template
	outTemplate.UsageCount++

	return &outScenario, &outTemplate
}
