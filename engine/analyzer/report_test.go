package analyzer

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/geoflag/geoflag/engine/domain"
)

func sampleReport() domain.AnalysisReport {
	results := []domain.AnalysisResult{
		{
			FeatureName:          "Curfew login blocker",
			NeedsComplianceLogic: true,
			Confidence:           0.88,
			RiskLevel:            domain.RiskHigh,
			ActionRequired:       domain.ActionUrgent,
			HumanReviewNeeded:    true,
			AnalysisMode:         domain.ModeLLMRAG,
			ApplicableRegulations: []domain.RegulationFinding{
				{Name: "Utah Social Media Regulation Act", Applies: true, Reason: "curfew"},
			},
		},
		{
			FeatureName:    "Dark mode toggle",
			Confidence:     0.95,
			RiskLevel:      domain.RiskLow,
			ActionRequired: domain.ActionNone,
			AnalysisMode:   domain.ModeLLMRAG,
		},
		{
			FeatureName:       "Feed ranking tweak",
			Confidence:        0.44,
			RiskLevel:         domain.RiskMedium,
			ActionRequired:    domain.ActionMonitor,
			HumanReviewNeeded: true,
			AnalysisMode:      domain.ModePureRAG,
		},
	}
	return buildReport(results, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
}

func TestBuildReportSummary(t *testing.T) {
	report := sampleReport()
	s := report.Summary
	if s.TotalFeatures != 3 {
		t.Errorf("total = %d", s.TotalFeatures)
	}
	if s.FeaturesRequiringCompliance != 1 {
		t.Errorf("requiring compliance = %d", s.FeaturesRequiringCompliance)
	}
	if s.HighRiskFeatures != 1 {
		t.Errorf("high risk = %d", s.HighRiskFeatures)
	}
	if s.HumanReviewNeeded != 2 {
		t.Errorf("review needed = %d", s.HumanReviewNeeded)
	}
	if !report.GeneratedAt.Equal(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("generated at = %v", report.GeneratedAt)
	}
}

func TestRecommendationsPriorityAndDedup(t *testing.T) {
	report := sampleReport()
	recs := report.Recommendations
	if len(recs) != 3 {
		t.Fatalf("recommendations = %v", recs)
	}
	if !strings.HasPrefix(recs[0], "HIGH PRIORITY: 'Curfew login blocker'") {
		t.Errorf("first recommendation = %q", recs[0])
	}
	if !strings.Contains(recs[1], "Review needed: 'Feed ranking tweak'") {
		t.Errorf("second recommendation = %q", recs[1])
	}
	if !strings.Contains(recs[2], "checklist for Utah Social Media Regulation Act") {
		t.Errorf("third recommendation = %q", recs[2])
	}

	seen := make(map[string]bool)
	for _, r := range recs {
		if seen[r] {
			t.Errorf("duplicate recommendation %q", r)
		}
		seen[r] = true
	}
}

func TestRecommendationsEmptyBatchFallback(t *testing.T) {
	report := buildReport(nil, time.Now())
	if len(report.Recommendations) != 1 || !strings.Contains(report.Recommendations[0], "No compliance action required") {
		t.Errorf("recommendations = %v", report.Recommendations)
	}
}

func TestWriteJSONRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleReport()); err != nil {
		t.Fatal(err)
	}

	var decoded domain.AnalysisReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Summary.TotalFeatures != 3 || len(decoded.Results) != 3 {
		t.Errorf("decoded = %+v", decoded.Summary)
	}
	if decoded.Results[2].AnalysisMode != domain.ModePureRAG {
		t.Errorf("mode = %s", decoded.Results[2].AnalysisMode)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleReport()); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d:\n%s", len(lines), buf.String())
	}
	if lines[0] != "feature_name,risk_level,confidence,action_required" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "Curfew login blocker,high,0.88,URGENT_COMPLIANCE" {
		t.Errorf("row = %q", lines[1])
	}
	if lines[3] != "Feed ranking tweak,medium,0.44,MONITOR_COMPLIANCE" {
		t.Errorf("row = %q", lines[3])
	}
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummary(&buf, sampleReport()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"Features analyzed:       3",
		"High risk:               1",
		"- Curfew login blocker: risk high",
		"(degraded analysis)",
		"HIGH PRIORITY: 'Curfew login blocker'",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Dark mode toggle: risk low, confidence 0.95, action NO_ACTION (degraded") {
		t.Error("non-degraded result flagged as degraded")
	}
}
