// Package parse turns the LLM's JSON-shaped completion text into typed
// analysis fields. Provider output is treated as untrusted: prose
// wrapping, code fences, and malformed enums are tolerated; structural
// absence of the contract is an error the orchestrator recovers from.
package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/geoflag/geoflag/engine/domain"
)

var (
	// ErrNoJSON means no balanced JSON object could be extracted.
	ErrNoJSON = errors.New("parse: no JSON object in response")
	// ErrMissingFields means the JSON lacked required analysis fields.
	ErrMissingFields = errors.New("parse: required fields missing")
	// ErrLowContent means the response was a mock or placeholder with
	// no distinguishing analysis content.
	ErrLowContent = errors.New("parse: low-content response rejected")
)

// manualReviewNote is attached whenever the provider's risk_level had
// to be coerced.
const manualReviewNote = "Risk level could not be read from the analysis; defaulted to medium, manual review recommended"

// mockIndicators identify templated placeholder completions that carry
// no real analysis.
var mockIndicators = []string{
	"mock analysis",
	"mock llm response",
	"error processing",
	"key considerations include user age verification, data protection, and geographical restrictions",
}

// meaningfulIndicators must appear at least once for a completion to
// count as substantive.
var meaningfulIndicators = []string{
	"requires", "must", "shall", "compliance", "violation",
	"penalty", "fine", "liability", "obligation", "prohibited",
	"regulation", "applies",
}

type wire struct {
	NeedsComplianceLogic  *bool                      `json:"needs_compliance_logic"`
	Confidence            *float64                   `json:"confidence"`
	RiskLevel             *string                    `json:"risk_level"`
	ActionRequired        string                     `json:"action_required"`
	ApplicableRegulations []domain.RegulationFinding `json:"applicable_regulations"`
	ImplementationNotes   []string                   `json:"implementation_notes"`
	CodeIssues            []domain.CodeIssue         `json:"code_issues"`
}

// Response parses completion text into the analysis fields it carries.
// Identity fields (feature id, mode, timestamp) are the orchestrator's
// to fill.
func Response(raw string) (domain.AnalysisResult, error) {
	var out domain.AnalysisResult

	if err := checkContent(raw); err != nil {
		return out, err
	}

	obj, ok := extractJSON(stripFences(raw))
	if !ok {
		return out, ErrNoJSON
	}

	var w wire
	if err := json.Unmarshal([]byte(obj), &w); err != nil {
		return out, fmt.Errorf("%w: %v", ErrNoJSON, err)
	}

	var missing []string
	if w.NeedsComplianceLogic == nil {
		missing = append(missing, "needs_compliance_logic")
	}
	if w.Confidence == nil {
		missing = append(missing, "confidence")
	}
	if w.RiskLevel == nil {
		missing = append(missing, "risk_level")
	}
	if len(missing) > 0 {
		return out, fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))
	}

	out.NeedsComplianceLogic = *w.NeedsComplianceLogic
	out.Confidence = clamp01(*w.Confidence)

	level, known := domain.NormalizeRiskLevel(*w.RiskLevel)
	out.RiskLevel = level
	if !known {
		out.HumanReviewNeeded = true
		out.ImplementationNotes = append(out.ImplementationNotes, manualReviewNote)
	}

	if action, ok := domain.NormalizeAction(w.ActionRequired); ok {
		out.ActionRequired = action
	}

	out.ApplicableRegulations = w.ApplicableRegulations
	out.ImplementationNotes = append(out.ImplementationNotes, dedupe(w.ImplementationNotes)...)
	for i := range w.CodeIssues {
		w.CodeIssues[i].Severity = domain.NormalizeSeverity(string(w.CodeIssues[i].Severity))
	}
	out.CodeIssues = w.CodeIssues

	return out, nil
}

func checkContent(raw string) error {
	lower := strings.ToLower(raw)
	if strings.TrimSpace(lower) == "" {
		return ErrLowContent
	}
	for _, ind := range mockIndicators {
		if strings.Contains(lower, ind) {
			return ErrLowContent
		}
	}
	for _, ind := range meaningfulIndicators {
		if strings.Contains(lower, ind) {
			return nil
		}
	}
	return ErrLowContent
}

// stripFences removes markdown code fences around the payload.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// extractJSON returns the first balanced top-level JSON object in s.
// Braces inside string literals are ignored.
func extractJSON(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func dedupe(notes []string) []string {
	seen := make(map[string]bool, len(notes))
	out := notes[:0]
	for _, n := range notes {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
