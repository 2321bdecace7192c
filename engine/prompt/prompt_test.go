package prompt

import (
	"strings"
	"testing"

	"github.com/geoflag/geoflag/engine/domain"
	"github.com/geoflag/geoflag/engine/retrieval"
	"github.com/geoflag/geoflag/engine/semantic"
)

func match(reg, text string, sim float32) retrieval.Match {
	return retrieval.Match{
		Chunk:      semantic.SearchResult{Regulation: reg, Text: text, Jurisdictions: []string{"US"}},
		Similarity: sim,
	}
}

var feature = domain.FeatureRequest{
	FeatureName: "Curfew login blocker",
	Description: "Blocks login for users under 16 between 10pm-6am in Utah",
}

func TestComposeDeterministic(t *testing.T) {
	c := New(0)
	matches := []retrieval.Match{match("Utah Social Media Regulation Act", "curfew text", 0.9)}
	a := c.Compose(feature, matches)
	b := c.Compose(feature, matches)
	if a != b {
		t.Fatal("composition must be deterministic")
	}
}

func TestComposeContent(t *testing.T) {
	c := New(0)
	got := c.Compose(feature, []retrieval.Match{
		match("Utah Social Media Regulation Act", "curfew provisions", 0.9),
		match("COPPA", "children's privacy", 0.7),
	})

	for _, want := range []string{
		"Curfew login blocker",
		"[1] Utah Social Media Regulation Act",
		"[2] COPPA",
		`"risk_level"`,
		"MONITOR_COMPLIANCE",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(got, "```") {
		t.Error("no code block expected without code")
	}
}

func TestComposeIncludesCode(t *testing.T) {
	f := feature
	f.Code = `collectBirthdate(user)`
	got := New(0).Compose(f, nil)
	if !strings.Contains(got, "collectBirthdate(user)") {
		t.Error("code snippet missing")
	}
	if !strings.Contains(got, "No specific legal documents were retrieved") {
		t.Error("empty-context notice missing")
	}
}

func TestComposeExpandsJargon(t *testing.T) {
	f := domain.FeatureRequest{FeatureName: "x", Description: "Uses ASL for minors"}
	got := New(0).Compose(f, nil)
	if !strings.Contains(got, "Age/Sex/Location verification system") {
		t.Error("jargon not expanded")
	}
}

func TestComposeDropsLowestRankedFirst(t *testing.T) {
	long := strings.Repeat("lorem ipsum statute text ", 120)
	matches := []retrieval.Match{
		match("First", long, 0.9),
		match("Second", long, 0.8),
		match("Third", long, 0.7),
	}
	// Budget fits roughly two chunks plus the fixed scaffolding.
	got := New(2*len(long) + 2500).Compose(feature, matches)

	if !strings.Contains(got, "[1] First") {
		t.Error("top chunk must survive truncation")
	}
	if strings.Contains(got, "[3] Third") {
		t.Error("lowest-ranked chunk should be dropped first")
	}
}

func TestComposeTinyBudgetKeepsTopSlice(t *testing.T) {
	long := strings.Repeat("statute ", 400)
	got := New(3000).Compose(feature, []retrieval.Match{match("Only", long, 0.9)})
	if !strings.Contains(got, "[1] Only") {
		t.Error("top chunk slice missing")
	}
	if len(got) > 3000+len(long) {
		t.Errorf("prompt length = %d", len(got))
	}
}
