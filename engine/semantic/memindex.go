package semantic

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemIndex is an exact cosine-similarity index held in memory. It serves
// single-binary deployments and tests where a Qdrant instance is not
// available. Search on an empty index returns no results, not an error.
type MemIndex struct {
	mu      sync.RWMutex
	records []VectorRecord
}

// NewMemIndex creates an empty in-memory index.
func NewMemIndex() *MemIndex {
	return &MemIndex{}
}

// Upsert adds or replaces records by ID.
func (m *MemIndex) Upsert(_ context.Context, records []VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		replaced := false
		for i := range m.records {
			if m.records[i].ID == r.ID {
				m.records[i] = r
				replaced = true
				break
			}
		}
		if !replaced {
			m.records = append(m.records, r)
		}
	}
	return nil
}

// Len reports the number of indexed records.
func (m *MemIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Search returns the topK records nearest to embedding by cosine similarity.
func (m *MemIndex) Search(_ context.Context, embedding []float32, topK int) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.records) == 0 || topK <= 0 {
		return nil, nil
	}

	results := make([]SearchResult, 0, len(m.records))
	for _, r := range m.records {
		results = append(results, SearchResult{
			ID:            r.ID,
			Score:         cosine(embedding, r.Embedding),
			Text:          payloadString(r.Payload, "text"),
			Regulation:    payloadString(r.Payload, "regulation"),
			Jurisdictions: payloadStrings(r.Payload, "jurisdictions"),
			ContentType:   payloadString(r.Payload, "content_type"),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func payloadString(p map[string]any, key string) string {
	s, _ := p[key].(string)
	return s
}

func payloadStrings(p map[string]any, key string) []string {
	switch v := p[key].(type) {
	case []string:
		return v
	case string:
		return splitJurisdictions(v)
	}
	return nil
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
