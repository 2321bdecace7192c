package retrieval

import (
	"regexp"
	"sort"
	"strings"
)

var usStates = []string{
	"Alabama", "Alaska", "Arizona", "Arkansas", "California", "Colorado",
	"Connecticut", "Delaware", "Florida", "Georgia", "Hawaii", "Idaho",
	"Illinois", "Indiana", "Iowa", "Kansas", "Kentucky", "Louisiana",
	"Maine", "Maryland", "Massachusetts", "Michigan", "Minnesota",
	"Mississippi", "Missouri", "Montana", "Nebraska", "Nevada",
	"New Hampshire", "New Jersey", "New Mexico", "New York",
	"North Carolina", "North Dakota", "Ohio", "Oklahoma", "Oregon",
	"Pennsylvania", "Rhode Island", "South Carolina", "South Dakota",
	"Tennessee", "Texas", "Utah", "Vermont", "Virginia", "Washington",
	"West Virginia", "Wisconsin", "Wyoming",
}

var stateAbbreviations = map[string]string{
	"ca": "California", "ny": "New York", "tx": "Texas", "fl": "Florida",
	"ut": "Utah", "wa": "Washington", "or": "Oregon", "nv": "Nevada",
}

var euMarkers = []string{"european union", "europe", "eu member", " eu ", "gdpr", " dsa "}

// complianceTopics are plain keywords counted as topic hits when present.
var complianceTopics = []string{
	"minors", "children", "age verification", "social media", "privacy",
	"data protection", "parental consent", "coppa", "curfew", "addiction",
	"content moderation", "algorithmic transparency", "targeted advertising",
}

// topicPatterns catch phrasings the plain keyword list misses.
var topicPatterns = map[string][]*regexp.Regexp{
	"age_verification": {
		regexp.MustCompile(`age.{0,10}verify`),
		regexp.MustCompile(`age.{0,10}check`),
		regexp.MustCompile(`verify.{0,10}age`),
	},
	"parental_consent": {
		regexp.MustCompile(`parent.{0,10}consent`),
		regexp.MustCompile(`guardian.{0,10}approval`),
	},
	"data_collection": {
		regexp.MustCompile(`data.{0,10}collect`),
		regexp.MustCompile(`collect.{0,10}data`),
		regexp.MustCompile(`user.{0,10}data`),
	},
	"content_filtering": {
		regexp.MustCompile(`content.{0,10}filter`),
		regexp.MustCompile(`filter.{0,10}content`),
		regexp.MustCompile(`block.{0,10}content`),
	},
	"time_restrictions": {
		regexp.MustCompile(`time.{0,10}restrict`),
		regexp.MustCompile(`curfew`),
		regexp.MustCompile(`hours.{0,10}limit`),
	},
}

var regulationKeywords = []string{
	"coppa", "sb-976", "sb976", "house bill", "senate bill",
	"digital services act", "dsa", "gdpr", "ccpa", "ferpa",
}

// ExtractLocations returns the jurisdictions mentioned in text: US state
// names, common state abbreviations, and an EU marker.
func ExtractLocations(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	seen := make(map[string]bool)

	add := func(loc string) {
		if !seen[loc] {
			seen[loc] = true
			out = append(out, loc)
		}
	}

	for _, state := range usStates {
		if strings.Contains(lower, strings.ToLower(state)) {
			add(state)
		}
	}
	padded := " " + lower + " "
	for abbr, full := range stateAbbreviations {
		if strings.Contains(padded, " "+abbr+" ") || strings.Contains(lower, " "+abbr+".") {
			add(full)
		}
	}
	for _, m := range euMarkers {
		if strings.Contains(padded, m) {
			add("EU")
			break
		}
	}

	sort.Strings(out)
	return out
}

// ExtractTopics returns the compliance topics detected in text, sorted
// and deduplicated.
func ExtractTopics(text string) []string {
	lower := strings.ToLower(text)
	seen := make(map[string]bool)

	for _, topic := range complianceTopics {
		if strings.Contains(lower, topic) {
			seen[topic] = true
		}
	}
	for topic, patterns := range topicPatterns {
		for _, re := range patterns {
			if re.MatchString(lower) {
				seen[topic] = true
				break
			}
		}
	}

	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// hasRegulationMatch reports whether feature and chunk both name at
// least one common regulation.
func hasRegulationMatch(featureText, chunkText string) bool {
	f := strings.ToLower(featureText)
	c := strings.ToLower(chunkText)
	for _, kw := range regulationKeywords {
		if strings.Contains(f, kw) && strings.Contains(c, kw) {
			return true
		}
	}
	return false
}

func overlap(a, b []string) int {
	set := make(map[string]bool, len(a))
	for _, x := range a {
		set[x] = true
	}
	n := 0
	for _, y := range b {
		if set[y] {
			n++
		}
	}
	return n
}
