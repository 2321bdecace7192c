// Package retrieval maps a feature request to the ranked regulation
// chunks most likely to govern it. Raw vector similarity is re-ranked
// with geographic, topical, and regulation-name signals so a Utah
// curfew feature surfaces the Utah act ahead of a generically similar
// federal statute.
package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/geoflag/geoflag/engine/corpus"
	"github.com/geoflag/geoflag/engine/domain"
	"github.com/geoflag/geoflag/engine/semantic"
)

// DefaultTopK is the number of chunks requested from the index before
// re-ranking.
const DefaultTopK = 8

// Relevance weights. Geographic and topical overlap dominate; an
// explicit regulation-name match and statutory content type add the
// rest.
const (
	geoOverlapBoost    = 0.4
	geoFeatureOnly     = 0.1
	geoNoFeatureSignal = 0.2
	topicHitBoost      = 0.1
	topicBoostCap      = 0.4
	regulationBoost    = 0.2
	statuteBonus       = 0.05
)

// Embedder turns text into a vector in the index's embedding space.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher is the read side of the vector index.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, topK int) ([]semantic.SearchResult, error)
}

// Match is one retrieved chunk with its ranking signals.
type Match struct {
	Chunk      semantic.SearchResult
	Similarity float32
	GeoScore   float64 // [0,1]
	TopicScore float64 // [0,1]
	RegMatch   bool
	Combined   float64
}

// Retriever ranks corpus chunks for feature requests.
type Retriever struct {
	embed Embedder
	index Searcher
	topK  int
	log   *slog.Logger
}

// New creates a Retriever. topK <= 0 selects DefaultTopK.
func New(embed Embedder, index Searcher, topK int, log *slog.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if log == nil {
		log = slog.Default()
	}
	return &Retriever{embed: embed, index: index, topK: topK, log: log}
}

// QueryText builds the embedding query for a feature: name, expanded
// description, and code when present, all in one string.
func QueryText(f domain.FeatureRequest) string {
	parts := []string{f.FeatureName, corpus.ExpandJargon(f.Description)}
	if f.Code != "" {
		parts = append(parts, f.Code)
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// Retrieve returns re-ranked matches for one feature. An unreachable or
// empty index yields zero matches, not an error; that state flows
// forward as the no-context degraded path. Embedding failure is
// systemic and does error.
func (r *Retriever) Retrieve(ctx context.Context, f domain.FeatureRequest) ([]Match, error) {
	query := QueryText(f)
	vec, err := r.embed.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := r.index.Search(ctx, vec, r.topK)
	if err != nil {
		r.log.Warn("index search failed, continuing without context",
			"feature", f.FeatureName, "error", err)
		return nil, nil
	}
	if len(hits) == 0 {
		return nil, nil
	}

	featureLocs := ExtractLocations(query)
	featureLocs = append(featureLocs, f.GeoHints...)
	featureTopics := ExtractTopics(query)

	matches := make([]Match, len(hits))
	for i, h := range hits {
		matches[i] = r.scoreHit(query, featureLocs, featureTopics, h)
	}

	// Stable sort keeps original similarity order on full ties; near
	// ties on the combined score go to the stronger topic match.
	sort.SliceStable(matches, func(i, j int) bool {
		di := matches[i].Combined - matches[j].Combined
		if di > -1e-9 && di < 1e-9 {
			return matches[i].TopicScore > matches[j].TopicScore
		}
		return di > 0
	})
	return matches, nil
}

func (r *Retriever) scoreHit(query string, featureLocs, featureTopics []string, h semantic.SearchResult) Match {
	chunkLocs := ExtractLocations(h.Text)
	chunkLocs = append(chunkLocs, h.Jurisdictions...)

	var geo float64
	switch {
	case overlap(featureLocs, chunkLocs) > 0:
		geo = geoOverlapBoost
	case len(featureLocs) > 0 && len(chunkLocs) == 0:
		geo = geoFeatureOnly
	case len(featureLocs) == 0:
		// Location-free features still answer to federal and general
		// law.
		geo = geoNoFeatureSignal
	}

	chunkTopics := ExtractTopics(h.Text)
	topic := float64(overlap(featureTopics, chunkTopics)) * topicHitBoost
	if topic > topicBoostCap {
		topic = topicBoostCap
	}

	regMatch := hasRegulationMatch(query, h.Text+" "+h.Regulation)

	boost := geo + topic
	if regMatch {
		boost += regulationBoost
	}
	if h.ContentType == "legal_statute" {
		boost += statuteBonus
	}

	return Match{
		Chunk:      h,
		Similarity: h.Score,
		GeoScore:   geo / geoOverlapBoost,
		TopicScore: topic / topicBoostCap,
		RegMatch:   regMatch,
		Combined:   float64(h.Score) + boost,
	}
}

// Signals aggregates per-match ranking signals for the risk scorer:
// the count of distinct matched regulations and the strongest topic
// and geographic scores across the matches.
func Signals(matches []Match) (regulationHits int, topicScore, geoScore float64) {
	regs := make(map[string]bool)
	for _, m := range matches {
		if m.Chunk.Regulation != "" {
			regs[m.Chunk.Regulation] = true
		}
		if m.TopicScore > topicScore {
			topicScore = m.TopicScore
		}
		if m.GeoScore > geoScore {
			geoScore = m.GeoScore
		}
	}
	return len(regs), topicScore, geoScore
}
