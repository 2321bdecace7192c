package score

import (
	"strings"
	"testing"

	"github.com/geoflag/geoflag/engine/domain"
)

func TestScoreWeighting(t *testing.T) {
	tests := []struct {
		name string
		in   Inputs
		want float64
	}{
		{"zero", Inputs{}, 0},
		{"full", Inputs{RegulationHits: 3, TopicScore: 1, GeoScore: 1}, 1},
		{"hits saturate", Inputs{RegulationHits: 9}, 0.45},
		{"one hit", Inputs{RegulationHits: 1}, 0.15},
		{"topic only", Inputs{TopicScore: 1}, 0.35},
		{"geo only", Inputs{GeoScore: 1}, 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.in)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Score(%+v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestScoreBounded(t *testing.T) {
	got := Score(Inputs{RegulationHits: 100, TopicScore: 5, GeoScore: 5})
	if got < 0 || got > 1 {
		t.Errorf("score out of range: %v", got)
	}
}

func TestLevelBands(t *testing.T) {
	tests := []struct {
		s    float64
		want domain.RiskLevel
	}{
		{0.95, domain.RiskHigh},
		{0.8, domain.RiskHigh},
		{0.79, domain.RiskMedium},
		{0.5, domain.RiskMedium},
		{0.49, domain.RiskLow},
		{0, domain.RiskLow},
	}
	for _, tt := range tests {
		if got := Level(tt.s); got != tt.want {
			t.Errorf("Level(%v) = %s, want %s", tt.s, got, tt.want)
		}
	}
}

func TestDefaultAction(t *testing.T) {
	if got := DefaultAction(domain.RiskHigh, 0); got != domain.ActionUrgent {
		t.Errorf("high = %s", got)
	}
	if got := DefaultAction(domain.RiskMedium, 1); got != domain.ActionImplement {
		t.Errorf("medium = %s", got)
	}
	if got := DefaultAction(domain.RiskLow, 2); got != domain.ActionMonitor {
		t.Errorf("low with hits = %s", got)
	}
	if got := DefaultAction(domain.RiskLow, 0); got != domain.ActionNone {
		t.Errorf("low without hits = %s", got)
	}
}

func TestFallbackConfidenceBand(t *testing.T) {
	names := []string{
		"Curfew login blocker", "PF default toggle", "", "x",
		"Geofence rollout", "Chat history export",
	}
	for _, name := range names {
		c := FallbackConfidence(name)
		if c < 0.41 || c > 0.47 {
			t.Errorf("FallbackConfidence(%q) = %v, outside [0.41, 0.47]", name, c)
		}
		if c != FallbackConfidence(name) {
			t.Errorf("FallbackConfidence(%q) not deterministic", name)
		}
	}
}

func TestTriggerRegulations(t *testing.T) {
	findings := TriggerRegulations("Curfew for minors in Utah with parental consent and location tracking")
	names := make([]string, len(findings))
	for i, f := range findings {
		names[i] = f.Name
	}
	joined := strings.Join(names, ",")
	if !strings.Contains(joined, "COPPA") {
		t.Errorf("COPPA missing: %v", names)
	}
	if !strings.Contains(joined, "Location Privacy Laws") {
		t.Errorf("location laws missing: %v", names)
	}
	for _, f := range findings {
		if !f.Applies || f.Reason == "" {
			t.Errorf("finding incomplete: %+v", f)
		}
	}
}

func TestTriggerRegulationsWordBoundaries(t *testing.T) {
	findings := TriggerRegulations("a neutral page layout change")
	for _, f := range findings {
		if f.Name == "GDPR" {
			t.Error("'eu' inside 'neutral' must not trigger GDPR")
		}
		if f.Name == "COPPA" {
			t.Error("'age' inside 'page' must not trigger COPPA")
		}
	}
}

func TestImplementationNotes(t *testing.T) {
	notes := ImplementationNotes("Curfew login blocker", "Blocks login for minors and tracks location", domain.RiskHigh)
	if !strings.Contains(notes[0], "HIGH RISK") {
		t.Errorf("first note = %s", notes[0])
	}
	var hasConsent, hasLocation bool
	for _, n := range notes {
		if strings.Contains(n, "parental consent") {
			hasConsent = true
		}
		if strings.Contains(n, "Location Data") {
			hasLocation = true
		}
	}
	if !hasConsent || !hasLocation {
		t.Errorf("pattern notes missing: %v", notes)
	}
}

func TestImplementationNotesGenericFallback(t *testing.T) {
	notes := ImplementationNotes("Theme switcher", "Lets people pick dark mode", domain.RiskLow)
	if len(notes) < 3 {
		t.Errorf("generic notes missing: %v", notes)
	}
	if !strings.Contains(notes[0], "LOW RISK") {
		t.Errorf("first note = %s", notes[0])
	}
}
