package domain

import "strings"

// ValidateFeature checks a FeatureRequest before it enters the pipeline.
// A rejected feature is reported per-item; it never aborts the batch.
func ValidateFeature(f FeatureRequest) error {
	if strings.TrimSpace(f.FeatureName) == "" {
		return NewValidationError("feature_name", f.FeatureName, ErrMissingName)
	}
	if strings.TrimSpace(f.Description) == "" {
		return NewValidationError("description", f.Description, ErrMissingDescription)
	}
	return nil
}

// NormalizeRiskLevel maps a free-form risk string to a RiskLevel. Unknown or
// malformed values map to medium; callers flag those for manual review.
func NormalizeRiskLevel(s string) (RiskLevel, bool) {
	level := RiskLevel(strings.ToLower(strings.TrimSpace(s)))
	if ValidRiskLevels[level] {
		return level, true
	}
	return RiskMedium, false
}

// NormalizeAction maps a free-form action string to an Action. Returns false
// when the value is not one of the recognised actions.
func NormalizeAction(s string) (Action, bool) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	if ValidActions[a] {
		return a, true
	}
	return "", false
}

// NormalizeSeverity maps a free-form severity string to a Severity,
// defaulting to medium.
func NormalizeSeverity(s string) Severity {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if ValidSeverities[sev] {
		return sev
	}
	return SeverityMedium
}
