package analyzer

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/geoflag/geoflag/engine/domain"
)

// buildReport assembles the batch report: per-feature results in input
// order, aggregate counts, and prioritized recommendations.
func buildReport(results []domain.AnalysisResult, generatedAt time.Time) domain.AnalysisReport {
	var sum domain.Summary
	sum.TotalFeatures = len(results)
	for _, r := range results {
		if r.NeedsComplianceLogic {
			sum.FeaturesRequiringCompliance++
		}
		if r.RiskLevel == domain.RiskHigh {
			sum.HighRiskFeatures++
		}
		if r.HumanReviewNeeded {
			sum.HumanReviewNeeded++
		}
	}

	return domain.AnalysisReport{
		Summary:         sum,
		Results:         results,
		Recommendations: recommendations(results),
		GeneratedAt:     generatedAt.UTC(),
	}
}

// recommendations synthesizes batch-level guidance: high-risk features
// first, then review flags, then regulation coverage. Deduplicated,
// stable order.
func recommendations(results []domain.AnalysisResult) []string {
	var recs []string
	seen := make(map[string]bool)
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			recs = append(recs, s)
		}
	}

	for _, r := range results {
		if r.RiskLevel == domain.RiskHigh {
			add(fmt.Sprintf("HIGH PRIORITY: '%s' requires compliance implementation before launch", r.FeatureName))
		}
	}
	for _, r := range results {
		if r.HumanReviewNeeded && r.RiskLevel != domain.RiskHigh {
			add(fmt.Sprintf("Review needed: '%s' could not be fully analyzed automatically", r.FeatureName))
		}
	}

	regs := make(map[string]bool)
	for _, r := range results {
		for _, f := range r.ApplicableRegulations {
			if f.Applies && !regs[f.Name] {
				regs[f.Name] = true
				add(fmt.Sprintf("Establish a compliance checklist for %s", f.Name))
			}
		}
	}

	if len(recs) == 0 {
		add("No compliance action required for this batch; monitor for regulatory changes")
	}
	return recs
}

// WriteJSON writes the full-fidelity report.
func WriteJSON(w io.Writer, report domain.AnalysisReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// WriteCSV writes the tabular projection, one row per feature.
func WriteCSV(w io.Writer, report domain.AnalysisReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"feature_name", "risk_level", "confidence", "action_required"}); err != nil {
		return err
	}
	for _, r := range report.Results {
		row := []string{
			r.FeatureName,
			string(r.RiskLevel),
			strconv.FormatFloat(r.Confidence, 'f', 2, 64),
			string(r.ActionRequired),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummary writes the human-readable projection.
func WriteSummary(w io.Writer, report domain.AnalysisReport) error {
	s := report.Summary
	if _, err := fmt.Fprintf(w, "Compliance Analysis Report (%s)\n\n", report.GeneratedAt.Format(time.RFC3339)); err != nil {
		return err
	}
	fmt.Fprintf(w, "Features analyzed:       %d\n", s.TotalFeatures)
	fmt.Fprintf(w, "Requiring compliance:    %d\n", s.FeaturesRequiringCompliance)
	fmt.Fprintf(w, "High risk:               %d\n", s.HighRiskFeatures)
	fmt.Fprintf(w, "Needing human review:    %d\n\n", s.HumanReviewNeeded)

	for _, r := range report.Results {
		fmt.Fprintf(w, "- %s: risk %s, confidence %.2f, action %s", r.FeatureName, r.RiskLevel, r.Confidence, r.ActionRequired)
		if r.AnalysisMode == domain.ModePureRAG {
			fmt.Fprint(w, " (degraded analysis)")
		}
		if r.Error != "" {
			fmt.Fprintf(w, " (error: %s)", r.Error)
		}
		fmt.Fprintln(w)
	}

	if len(report.Recommendations) > 0 {
		fmt.Fprintln(w, "\nRecommendations:")
		for _, rec := range report.Recommendations {
			fmt.Fprintf(w, "  * %s\n", rec)
		}
	}
	return nil
}
