package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/geoflag/geoflag/engine/domain"
	"github.com/geoflag/geoflag/engine/semantic"
)

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return s.vec, s.err
}

type stubSearcher struct {
	hits []semantic.SearchResult
	err  error
}

func (s *stubSearcher) Search(_ context.Context, _ []float32, _ int) ([]semantic.SearchResult, error) {
	return s.hits, s.err
}

var curfewFeature = domain.FeatureRequest{
	ID:          "f1",
	FeatureName: "Curfew login blocker",
	Description: "Blocks login for users under 16 between 10pm-6am in Utah",
}

func TestRetrieveReRanksByGeoAndTopic(t *testing.T) {
	hits := []semantic.SearchResult{
		{
			ID:          "federal",
			Score:       0.80,
			Text:        "General provisions on commercial electronic communications.",
			Regulation:  "CAN-SPAM Act",
			ContentType: "legal_document",
		},
		{
			ID:            "utah",
			Score:         0.78,
			Text:          "A social media company shall impose a curfew prohibiting a Utah minor from access between 10:30 pm and 6:30 am absent parental consent.",
			Regulation:    "Utah Social Media Regulation Act",
			Jurisdictions: []string{"Utah", "US"},
			ContentType:   "legal_statute",
		},
	}
	r := New(&stubEmbedder{vec: []float32{1}}, &stubSearcher{hits: hits}, 5, nil)

	matches, err := r.Retrieve(context.Background(), curfewFeature)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %d", len(matches))
	}
	if matches[0].Chunk.ID != "utah" {
		t.Errorf("top match = %s, want utah statute", matches[0].Chunk.ID)
	}
	top := matches[0]
	if top.GeoScore != 1 {
		t.Errorf("geo score = %v", top.GeoScore)
	}
	if top.TopicScore <= 0 {
		t.Errorf("topic score = %v", top.TopicScore)
	}
}

func TestRetrieveEmptyIndex(t *testing.T) {
	r := New(&stubEmbedder{vec: []float32{1}}, &stubSearcher{}, 5, nil)
	matches, err := r.Retrieve(context.Background(), curfewFeature)
	if err != nil {
		t.Fatalf("empty index must not error: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("matches = %d", len(matches))
	}
}

func TestRetrieveIndexUnreachable(t *testing.T) {
	r := New(&stubEmbedder{vec: []float32{1}}, &stubSearcher{err: errors.New("connection refused")}, 5, nil)
	matches, err := r.Retrieve(context.Background(), curfewFeature)
	if err != nil {
		t.Fatalf("unreachable index must degrade, not error: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("matches = %d", len(matches))
	}
}

func TestRetrieveEmbedderFailureIsFatal(t *testing.T) {
	r := New(&stubEmbedder{err: errors.New("provider down")}, &stubSearcher{}, 5, nil)
	if _, err := r.Retrieve(context.Background(), curfewFeature); err == nil {
		t.Fatal("expected error when embedding provider is lost")
	}
}

func TestRetrieveTopicTieBreak(t *testing.T) {
	hits := []semantic.SearchResult{
		{ID: "plain", Score: 0.70, Text: "A provision about curfew rules for minors.", ContentType: "legal_statute"},
		{ID: "topical", Score: 0.70, Text: "Curfew and age verification duties for social media platforms serving minors.", ContentType: "legal_statute"},
	}
	r := New(&stubEmbedder{vec: []float32{1}}, &stubSearcher{hits: hits}, 5, nil)

	matches, err := r.Retrieve(context.Background(), domain.FeatureRequest{
		FeatureName: "Night lockout",
		Description: "Verify age and enforce a curfew for minors on social media",
	})
	if err != nil {
		t.Fatal(err)
	}
	if matches[0].Chunk.ID != "topical" {
		t.Errorf("top match = %s, want the stronger topic match", matches[0].Chunk.ID)
	}
}

func TestQueryTextExpandsJargon(t *testing.T) {
	q := QueryText(domain.FeatureRequest{
		FeatureName: "Curfew blocker",
		Description: "Uses ASL to detect minor accounts",
	})
	if want := "Age/Sex/Location verification system"; !strings.Contains(q, want) {
		t.Errorf("query missing expansion: %s", q)
	}
}

func TestExtractLocations(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"applies in Utah and California", []string{"California", "Utah"}},
		{"rollout for ut. residents", []string{"Utah"}},
		{"GDPR data rules in Europe", []string{"EU"}},
		{"nothing geographic here", nil},
	}
	for _, tt := range tests {
		got := ExtractLocations(tt.text)
		if len(got) != len(tt.want) {
			t.Errorf("ExtractLocations(%q) = %v, want %v", tt.text, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ExtractLocations(%q) = %v, want %v", tt.text, got, tt.want)
			}
		}
	}
}

func TestExtractTopics(t *testing.T) {
	topics := ExtractTopics("we verify age and collect data, with a curfew for minors")
	want := map[string]bool{
		"age_verification":  true,
		"data_collection":   true,
		"time_restrictions": true,
		"curfew":            true,
		"minors":            true,
	}
	for _, topic := range topics {
		if !want[topic] {
			t.Errorf("unexpected topic %s", topic)
		}
	}
	if len(topics) < 4 {
		t.Errorf("topics = %v", topics)
	}
}

func TestSignals(t *testing.T) {
	matches := []Match{
		{Chunk: semantic.SearchResult{Regulation: "COPPA"}, TopicScore: 0.5, GeoScore: 0.25},
		{Chunk: semantic.SearchResult{Regulation: "COPPA"}, TopicScore: 0.75, GeoScore: 1},
		{Chunk: semantic.SearchResult{Regulation: "GDPR"}, TopicScore: 0.25, GeoScore: 0.5},
	}
	hits, topic, geo := Signals(matches)
	if hits != 2 {
		t.Errorf("regulation hits = %d", hits)
	}
	if topic != 0.75 || geo != 1 {
		t.Errorf("topic = %v, geo = %v", topic, geo)
	}
}
