package corpus

import (
	"strings"
	"testing"
)

func TestExpandJargon(t *testing.T) {
	in := "Curfew login blocker with ASL and GH for Utah minors"
	out := ExpandJargon(in)
	if !strings.Contains(out, "ASL (Age/Sex/Location verification system)") {
		t.Errorf("ASL not expanded: %s", out)
	}
	if !strings.Contains(out, "GH (Geohashing/Geographic Hashing)") {
		t.Errorf("GH not expanded: %s", out)
	}
}

func TestExpandJargonWordBoundaries(t *testing.T) {
	out := ExpandJargon("FLASH sale for GHost accounts")
	if strings.Contains(out, "(") {
		t.Errorf("partial matches must not expand: %s", out)
	}
}

func TestExpandJargonCaseSensitive(t *testing.T) {
	out := ExpandJargon("the pf rollout")
	if out != "the pf rollout" {
		t.Errorf("lowercase prose must not expand: %s", out)
	}
}

func TestDetectJargon(t *testing.T) {
	found := DetectJargon("PF default toggle with NR enforcement under SB976")
	want := map[string]bool{"PF": true, "NR": true, "SB976": true}
	if len(found) != len(want) {
		t.Fatalf("found = %v", found)
	}
	for _, f := range found {
		if !want[f] {
			t.Errorf("unexpected detection %s", f)
		}
	}
}

func TestExpansionOf(t *testing.T) {
	if full, ok := ExpansionOf("coppa"); !ok || !strings.Contains(full, "Children") {
		t.Errorf("ExpansionOf(coppa) = %q, %v", full, ok)
	}
	if _, ok := ExpansionOf("ZZZ"); ok {
		t.Error("unknown abbreviation must not resolve")
	}
}
