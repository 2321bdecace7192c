// Package domain defines core domain types, constants, and validation for the
// geoflag compliance engine. It acts as the validation gate at pipeline entry
// points.
package domain

import "time"

// DocumentChunk is a normalized piece of legal/statutory text held in the
// embedding index. Chunks are immutable once indexed; a re-index replaces them.
type DocumentChunk struct {
	ID            string    `json:"id"`
	Text          string    `json:"text"`
	Regulation    string    `json:"regulation_name"`
	Jurisdictions []string  `json:"jurisdictions"`
	ContentType   string    `json:"content_type"`
	Embedding     []float32 `json:"embedding,omitempty"`
}

// FeatureRequest is one feature description submitted for analysis. Ephemeral:
// created by the caller, consumed by a single analysis run.
type FeatureRequest struct {
	ID          string   `json:"id"`
	FeatureName string   `json:"feature_name"`
	Description string   `json:"description"`
	Code        string   `json:"code,omitempty"`
	GeoHints    []string `json:"geographic_hints,omitempty"`
}

// RiskLevel classifies compliance risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ValidRiskLevels is the set of recognised risk levels.
var ValidRiskLevels = map[RiskLevel]bool{
	RiskLow: true, RiskMedium: true, RiskHigh: true,
}

// Action is the recommended next step for a feature.
type Action string

const (
	ActionNone        Action = "NO_ACTION"
	ActionImplement   Action = "COMPLIANCE_IMPLEMENTATION"
	ActionUrgent      Action = "URGENT_COMPLIANCE"
	ActionMonitor     Action = "MONITOR_COMPLIANCE"
	ActionHumanReview Action = "HUMAN_REVIEW"
)

// ValidActions is the set of recognised actions.
var ValidActions = map[Action]bool{
	ActionNone: true, ActionImplement: true, ActionUrgent: true,
	ActionMonitor: true, ActionHumanReview: true,
}

// Severity classifies code issue severity.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ValidSeverities is the set of recognised severities.
var ValidSeverities = map[Severity]bool{
	SeverityLow: true, SeverityMedium: true, SeverityHigh: true,
	SeverityCritical: true,
}

// RegulationFinding records whether a specific regulation applies to a feature.
type RegulationFinding struct {
	Name    string `json:"name"`
	Applies bool   `json:"applies"`
	Reason  string `json:"reason"`
}

// CodeIssue is a specific compliance problem found in a submitted code snippet.
// Only produced when the caller supplied code.
type CodeIssue struct {
	LineReference        string   `json:"line_reference"`
	ProblematicCode      string   `json:"problematic_code"`
	ViolationType        string   `json:"violation_type"`
	Severity             Severity `json:"severity"`
	RegulationViolated   string   `json:"regulation_violated"`
	FixDescription       string   `json:"fix_description"`
	SuggestedReplacement string   `json:"suggested_replacement"`
	TestingRequirements  string   `json:"testing_requirements"`
}

// Analysis modes recorded on results.
const (
	ModeLLMRAG  = "llm_rag"  // LLM synthesis grounded in retrieved context
	ModePureRAG = "pure_rag" // degraded: retrieval signals only
	ModeError   = "error"    // per-item input rejection or pipeline failure
)

// AnalysisResult is the outcome of analysing one feature. Immutable once
// created.
type AnalysisResult struct {
	FeatureID             string              `json:"feature_id"`
	FeatureName           string              `json:"feature_name"`
	NeedsComplianceLogic  bool                `json:"needs_compliance_logic"`
	Confidence            float64             `json:"confidence"`
	RiskLevel             RiskLevel           `json:"risk_level"`
	ActionRequired        Action              `json:"action_required"`
	ApplicableRegulations []RegulationFinding `json:"applicable_regulations"`
	ImplementationNotes   []string            `json:"implementation_notes"`
	CodeIssues            []CodeIssue         `json:"code_issues,omitempty"`
	HumanReviewNeeded     bool                `json:"human_review_needed"`
	AnalysisMode          string              `json:"analysis_mode"`
	Error                 string              `json:"error,omitempty"`
	Timestamp             time.Time           `json:"timestamp"`
}

// Summary aggregates counts over a batch of results.
type Summary struct {
	TotalFeatures              int `json:"total_features"`
	FeaturesRequiringCompliance int `json:"features_requiring_compliance"`
	HighRiskFeatures           int `json:"high_risk_features"`
	HumanReviewNeeded          int `json:"human_review_needed"`
}

// AnalysisReport is the top-level artifact for a batch run: per-feature
// results in input order, aggregate summary, and prioritized recommendations.
type AnalysisReport struct {
	Summary         Summary          `json:"summary"`
	Results         []AnalysisResult `json:"analysis_results"`
	Recommendations []string         `json:"recommendations"`
	GeneratedAt     time.Time        `json:"generated_at"`
}
