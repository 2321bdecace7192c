// Package prompt assembles the grounded analysis prompt sent to the
// LLM. Composition is deterministic: the same feature and the same
// retrieved chunks always produce the same prompt text.
package prompt

import (
	"fmt"
	"strings"

	"github.com/geoflag/geoflag/engine/corpus"
	"github.com/geoflag/geoflag/engine/domain"
	"github.com/geoflag/geoflag/engine/retrieval"
)

// DefaultMaxChars bounds the composed prompt so it fits the model's
// context window with headroom for the completion.
const DefaultMaxChars = 12000

// SystemMessage is the fixed system role content sent with every
// analysis request.
const SystemMessage = "You are an expert legal compliance analyst for social media platforms. Provide detailed, accurate analysis in valid JSON format."

// schema is the response contract the parser validates against.
const schema = `{
  "needs_compliance_logic": true|false,
  "confidence": 0.0-1.0,
  "risk_level": "low|medium|high",
  "action_required": "NO_ACTION|COMPLIANCE_IMPLEMENTATION|URGENT_COMPLIANCE|MONITOR_COMPLIANCE|HUMAN_REVIEW",
  "applicable_regulations": [
    {"name": "regulation_name", "applies": true|false, "reason": "why_it_applies_or_not"}
  ],
  "implementation_notes": ["specific_actionable_step"],
  "code_issues": [
    {
      "line_reference": "specific_line_or_function_name",
      "problematic_code": "exact_code_snippet_that_violates",
      "violation_type": "privacy|security|age_verification|consent|data_collection",
      "severity": "critical|high|medium|low",
      "regulation_violated": "COPPA|GDPR|DSA|SB-976",
      "fix_description": "how_to_fix_this_specific_issue",
      "suggested_replacement": "improved_code_snippet",
      "testing_requirements": "how_to_verify_fix_works"
    }
  ]
}`

// Composer builds prompts under a character budget.
type Composer struct {
	maxChars int
}

// New creates a Composer. maxChars <= 0 selects DefaultMaxChars.
func New(maxChars int) *Composer {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Composer{maxChars: maxChars}
}

// Compose renders the analysis prompt for one feature. Retrieved
// chunks are cited in rank order; when the budget is exceeded the
// lowest-ranked chunks are dropped first.
func (c *Composer) Compose(f domain.FeatureRequest, matches []retrieval.Match) string {
	var b strings.Builder

	b.WriteString("Analyze the following product feature for regulatory compliance requirements.\n\n")
	fmt.Fprintf(&b, "Feature Name: %s\n", f.FeatureName)
	fmt.Fprintf(&b, "Feature Description: %s\n", corpus.ExpandJargon(f.Description))
	if f.Code != "" {
		b.WriteString("\nCode to analyze:\n```\n")
		b.WriteString(f.Code)
		b.WriteString("\n```\n")
	}

	b.WriteString("\nLEGAL CONTEXT:\n")
	fixed := b.String()

	tail := "\nBase your analysis on the legal context above. Cite regulations by the bracketed numbers.\n" +
		"Respond with a single JSON object in exactly this shape, and nothing else:\n" + schema + "\n"
	if len(matches) == 0 {
		tail = "\nNo specific legal documents were retrieved. Use general compliance knowledge and say so in your reasoning.\n" +
			"Respond with a single JSON object in exactly this shape, and nothing else:\n" + schema + "\n"
		return fixed + tail
	}

	budget := c.maxChars - len(fixed) - len(tail)
	var cites []string
	used := 0
	for i, m := range matches {
		cite := formatCitation(i+1, m)
		if used+len(cite) > budget {
			break
		}
		cites = append(cites, cite)
		used += len(cite)
	}
	if len(cites) == 0 {
		// Budget too small for even the top chunk; keep a truncated
		// slice of it rather than dropping all context.
		cite := formatCitation(1, matches[0])
		if budget > 0 && len(cite) > budget {
			cite = cite[:budget]
		}
		cites = append(cites, cite)
	}

	return fixed + strings.Join(cites, "") + tail
}

func formatCitation(n int, m retrieval.Match) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s", n, m.Chunk.Regulation)
	if len(m.Chunk.Jurisdictions) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(m.Chunk.Jurisdictions, ", "))
	}
	fmt.Fprintf(&b, " [similarity %.2f]\n%s\n\n", m.Similarity, m.Chunk.Text)
	return b.String()
}
