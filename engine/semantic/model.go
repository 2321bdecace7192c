package semantic

import "github.com/geoflag/geoflag/engine/domain"

// SearchResult represents a single vector search hit against the legal corpus.
type SearchResult struct {
	ID            string   `json:"id"`
	Score         float32  `json:"score"`
	Text          string   `json:"text"`
	Regulation    string   `json:"regulation"`
	Jurisdictions []string `json:"jurisdictions"`
	ContentType   string   `json:"content_type"`
}

// VectorRecord represents a single embedded chunk to store in the index.
type VectorRecord struct {
	ID        string
	Embedding []float32
	Payload   map[string]any // text, regulation, jurisdictions, content_type
}

// Record builds the index record for an embedded corpus chunk.
func Record(c domain.DocumentChunk, embedding []float32) VectorRecord {
	return VectorRecord{
		ID:        c.ID,
		Embedding: embedding,
		Payload: map[string]any{
			"text":          c.Text,
			"regulation":    c.Regulation,
			"jurisdictions": c.Jurisdictions,
			"content_type":  c.ContentType,
		},
	}
}
