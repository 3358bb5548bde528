package decision

import "fmt"

// ValidateFramework checks a framework's weighting scheme and threshold
// consistency. It is pure and is run both before activation and before
// persisting an update.
func ValidateFramework(f *Framework) ValidationResult {
	r := ValidationResult{
		Errors:      []string{},
		Warnings:    []string{},
		Suggestions: []string{},
	}

	if sum := f.Weights.Sum(); sum != 100 {
		r.Errors = append(r.Errors, fmt.Sprintf("weight sum mismatch: weights sum to %d, must sum to 100", sum))
	}

	if f.Thresholds.BidThreshold < f.Thresholds.NoBidThreshold {
		r.Errors = append(r.Errors, "bid threshold must exceed no-bid threshold")
	}

	if f.Thresholds.ConditionalRange.Min > f.Thresholds.ConditionalRange.Max {
		r.Errors = append(r.Errors, fmt.Sprintf("conditional range min %.1f exceeds max %.1f",
			f.Thresholds.ConditionalRange.Min, f.Thresholds.ConditionalRange.Max))
	} else if cr := f.Thresholds.ConditionalRange; cr.Min != 0 || cr.Max != 0 {
		// the engine derives the conditional band from the thresholds
		// alone; a declared range is advisory
		if cr.Min < f.Thresholds.NoBidThreshold || cr.Max > f.Thresholds.BidThreshold {
			r.Warnings = append(r.Warnings, fmt.Sprintf("conditional range %.1f-%.1f extends beyond the thresholds %.1f-%.1f",
				cr.Min, cr.Max, f.Thresholds.NoBidThreshold, f.Thresholds.BidThreshold))
		}
	}

	if len(f.Criteria) == 0 {
		r.Errors = append(r.Errors, "framework has no criteria")
	}

	for _, c := range f.Criteria {
		if c.Required && c.Weight <= 0 {
			r.Warnings = append(r.Warnings, fmt.Sprintf("required criterion %q has non-positive weight", c.Name))
		}
	}

	if f.Thresholds.BidThreshold == f.Thresholds.NoBidThreshold {
		r.Warnings = append(r.Warnings, "bid and no-bid thresholds are equal: conditional band is empty")
	}

	if n := len(f.Criteria); n > 0 && n < 5 {
		r.Warnings = append(r.Warnings, "fewer than 5 criteria: consider adding more for a comprehensive assessment")
	}

	hasRisk := false
	for _, c := range f.Criteria {
		if c.Category == CategoryRisk {
			hasRisk = true
			break
		}
	}
	if !hasRisk {
		r.Suggestions = append(r.Suggestions, "add risk assessment criteria")
	}

	r.Valid = len(r.Errors) == 0
	return r
}
