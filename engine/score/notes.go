package score

import (
	"fmt"
	"strings"

	"github.com/geoflag/geoflag/engine/domain"
)

// notePatterns map feature-text keywords to the remediation guidance
// they call for.
var notePatterns = []struct {
	keywords []string
	notes    []string
}{
	{
		keywords: []string{"collect", "store", "save", "data", "information"},
		notes: []string{
			"Data Collection: Implement data minimization and purpose limitation",
			"Security: Ensure encryption for stored personal data",
		},
	},
	{
		keywords: []string{"user", "profile", "account", "login", "register"},
		notes: []string{
			"User Rights: Implement data access and deletion capabilities",
			"Consent: Ensure clear privacy policy and consent mechanisms",
		},
	},
	{
		keywords: []string{"location", "gps", "track", "geo", "position"},
		notes: []string{
			"Location Data: Require explicit opt-in consent for location tracking",
			"Precision: Consider data accuracy requirements vs privacy",
		},
	},
	{
		keywords: []string{"message", "chat", "communication", "contact"},
		notes: []string{
			"Communication: Implement content moderation and reporting mechanisms",
			"Privacy: Ensure end-to-end encryption for sensitive communications",
		},
	},
	{
		keywords: []string{"age", "child", "minor", "young", "kid"},
		notes: []string{
			"COPPA Compliance: Implement parental consent mechanisms",
			"Child Safety: Enhanced content filtering and safety measures required",
		},
	},
	{
		keywords: []string{"algorithm", "model", "predict", "recommend"},
		notes: []string{
			"Algorithmic Transparency: Document decision-making processes",
			"Bias Prevention: Implement fairness testing and monitoring",
		},
	},
}

// ImplementationNotes derives actionable guidance for a feature from
// its text and risk band. The first note always states the risk
// posture; pattern notes follow in fixed order.
func ImplementationNotes(featureName, description string, level domain.RiskLevel) []string {
	var notes []string
	switch level {
	case domain.RiskHigh:
		notes = append(notes, fmt.Sprintf("HIGH RISK: Feature '%s' requires immediate compliance attention", featureName))
	case domain.RiskMedium:
		notes = append(notes, fmt.Sprintf("MEDIUM RISK: Feature '%s' needs compliance review", featureName))
	default:
		notes = append(notes, fmt.Sprintf("LOW RISK: Feature '%s' appears compliant but monitor for changes", featureName))
	}

	text := strings.ToLower(featureName + " " + description)
	for _, p := range notePatterns {
		for _, kw := range p.keywords {
			if matchKeyword(text, kw) {
				notes = append(notes, p.notes...)
				break
			}
		}
	}

	if len(notes) <= 1 {
		notes = append(notes,
			"General: Review feature against applicable privacy regulations",
			"Assessment: Consider data flow and user impact analysis",
		)
	}
	return notes
}
