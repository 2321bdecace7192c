// Package score turns retrieval signals into risk numbers. Everything
// here is a pure function of its inputs so scoring stays reproducible
// and testable without an LLM.
package score

import (
	"hash/fnv"
	"strings"

	"github.com/geoflag/geoflag/engine/domain"
)

// Weighting of the combined risk score. Regulation hits carry the most
// signal; saturation at three distinct regulations keeps one sprawling
// corpus from dominating.
const (
	regulationWeight = 0.45
	topicWeight      = 0.35
	geoWeight        = 0.20
	regulationSat    = 3
)

// Risk band thresholds.
const (
	highThreshold   = 0.8
	mediumThreshold = 0.5
)

// Fallback confidence band for retrieval-only results. The band sits
// strictly below LLM-grounded confidence so downstream consumers can
// see the degradation.
const (
	fallbackBase = 41 // hundredths
	fallbackSpan = 7  // so the band is [0.41, 0.47]
)

// Inputs are the retrieval-derived signals feeding the score.
type Inputs struct {
	RegulationHits int     // distinct regulations among retrieved chunks
	TopicScore     float64 // [0,1], strongest topic overlap
	GeoScore       float64 // [0,1], strongest geographic overlap
}

// Score combines the signals into one weighted score in [0,1].
func Score(in Inputs) float64 {
	reg := float64(in.RegulationHits) / regulationSat
	if reg > 1 {
		reg = 1
	}
	s := regulationWeight*reg + topicWeight*clamp01(in.TopicScore) + geoWeight*clamp01(in.GeoScore)
	return clamp01(s)
}

// Level maps a score to its risk band.
func Level(s float64) domain.RiskLevel {
	switch {
	case s >= highThreshold:
		return domain.RiskHigh
	case s >= mediumThreshold:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// DefaultAction picks the action for a risk band when the LLM did not
// supply one.
func DefaultAction(level domain.RiskLevel, regulationHits int) domain.Action {
	switch level {
	case domain.RiskHigh:
		return domain.ActionUrgent
	case domain.RiskMedium:
		return domain.ActionImplement
	default:
		if regulationHits > 0 {
			return domain.ActionMonitor
		}
		return domain.ActionNone
	}
}

// FallbackConfidence returns the degraded-mode confidence for a
// feature. The value is deterministic per feature name and always lies
// in [0.41, 0.47].
func FallbackConfidence(featureName string) float64 {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	return float64(fallbackBase+h.Sum32()%fallbackSpan) / 100
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

// regulationTriggers maps a regulation to the analysis-text keywords
// that implicate it.
var regulationTriggers = []struct {
	name     string
	reason   string
	keywords []string
}{
	{
		name:     "COPPA",
		reason:   "Feature involves data collection from minors or children",
		keywords: []string{"child", "minor", "age", "under 13", "under 16", "parental consent", "coppa", "verification"},
	},
	{
		name:     "GDPR",
		reason:   "Feature processes personal data or targets EU users",
		keywords: []string{"eu", "europe", "personal data", "data subject", "gdpr", "privacy", "data protection", "user data"},
	},
	{
		name:     "CCPA",
		reason:   "Feature may affect California consumer privacy rights",
		keywords: []string{"california", "consumer", "ccpa", "personal information", "data rights"},
	},
	{
		name:     "HIPAA",
		reason:   "Feature involves health information processing",
		keywords: []string{"health", "medical", "patient", "hipaa"},
	},
	{
		name:     "DSA",
		reason:   "Feature involves algorithmic content curation or moderation",
		keywords: []string{"algorithm", "recommendation", "content moderation", "dsa", "digital services"},
	},
	{
		name:     "Location Privacy Laws",
		reason:   "Feature involves location data collection or tracking",
		keywords: []string{"location", "gps", "geolocation", "tracking", "position"},
	},
}

// TriggerRegulations scans analysis text for regulation keywords and
// returns findings for each triggered regulation, in fixed order.
func TriggerRegulations(text string) []domain.RegulationFinding {
	lower := strings.ToLower(text)
	var out []domain.RegulationFinding
	for _, t := range regulationTriggers {
		for _, kw := range t.keywords {
			if matchKeyword(lower, kw) {
				out = append(out, domain.RegulationFinding{
					Name:    t.name,
					Applies: true,
					Reason:  t.reason,
				})
				break
			}
		}
	}
	return out
}

// matchKeyword matches short tokens on word boundaries and longer
// phrases by substring; "eu" must not trigger on "neutral".
func matchKeyword(lower, kw string) bool {
	if len(kw) > 3 || strings.ContainsRune(kw, ' ') {
		return strings.Contains(lower, kw)
	}
	padded := " " + lower + " "
	for _, sep := range []string{" ", ".", ",", ";", ":", ")", "("} {
		if strings.Contains(padded, " "+kw+sep) || strings.Contains(padded, sep+kw+" ") {
			return true
		}
	}
	return false
}
