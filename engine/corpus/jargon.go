package corpus

import (
	"regexp"
	"sort"
	"strings"
)

// jargonGlossary maps platform abbreviations and codenames to the
// expansions the retriever and prompt composer should see. Feature
// descriptions arrive full of internal shorthand; expanding it before
// embedding keeps retrieval grounded in the statutory vocabulary.
var jargonGlossary = map[string]string{
	"ASL":   "Age/Sex/Location verification system",
	"GH":    "Geohashing/Geographic Hashing",
	"PF":    "Personalized Feed",
	"NR":    "Network Restrictions",
	"KR":    "Korea (South Korea)",
	"PRD":   "Product Requirements Document",
	"TRD":   "Technical Requirements Document",
	"GDPR":  "General Data Protection Regulation",
	"CCPA":  "California Consumer Privacy Act",
	"COPPA": "Children's Online Privacy Protection Act",
	"DSA":   "Digital Services Act",
	"SB976": "California Senate Bill 976",
	"FTC":   "Federal Trade Commission",
	"CARU":  "Children's Advertising Review Unit",
	"FERPA": "Family Educational Rights and Privacy Act",
	"FYP":   "For You Page",
	"UGC":   "User Generated Content",
	"KYC":   "Know Your Customer",
	"2FA":   "Two-Factor Authentication",
	"SSO":   "Single Sign-On",
	"CDN":   "Content Delivery Network",
}

var jargonPatterns = buildJargonPatterns()

type jargonPattern struct {
	abbr string
	full string
	re   *regexp.Regexp
}

func buildJargonPatterns() []jargonPattern {
	abbrs := make([]string, 0, len(jargonGlossary))
	for a := range jargonGlossary {
		abbrs = append(abbrs, a)
	}
	sort.Strings(abbrs)

	out := make([]jargonPattern, 0, len(abbrs))
	for _, a := range abbrs {
		out = append(out, jargonPattern{
			abbr: a,
			full: jargonGlossary[a],
			re:   regexp.MustCompile(`\b` + regexp.QuoteMeta(a) + `\b`),
		})
	}
	return out
}

// ExpandJargon rewrites each known abbreviation as "ABBR (expansion)".
// Matching is case-sensitive: a lowercase "pf" in prose is left alone.
func ExpandJargon(text string) string {
	expanded := text
	for _, p := range jargonPatterns {
		expanded = p.re.ReplaceAllString(expanded, p.abbr+" ("+p.full+")")
	}
	return expanded
}

// DetectJargon returns the known abbreviations present in text, in
// glossary order.
func DetectJargon(text string) []string {
	var found []string
	for _, p := range jargonPatterns {
		if p.re.MatchString(text) {
			found = append(found, p.abbr)
		}
	}
	return found
}

// ExpansionOf returns the glossary entry for an abbreviation.
func ExpansionOf(abbr string) (string, bool) {
	full, ok := jargonGlossary[strings.ToUpper(abbr)]
	return full, ok
}
