// Package corpus loads the versioned legal-document set and flattens it
// into embeddable chunks. The corpus is read once at index-build time;
// nothing here mutates after load.
package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/geoflag/geoflag/engine/domain"
)

// maxSectionChars caps section text so a single chunk stays within
// embedding-model input limits.
const maxSectionChars = 5000

// Section is one titled passage of a legal document.
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Document is one legal source as stored in the corpus file.
type Document struct {
	Title         string    `json:"title"`
	URL           string    `json:"url"`
	Description   string    `json:"description"`
	ContentType   string    `json:"content_type"`
	Jurisdictions []string  `json:"jurisdictions"`
	Sections      []Section `json:"sections"`
	Content       string    `json:"content"`
}

// Load reads a corpus file. The file is either a bare JSON array of
// documents or an object with a top-level "documents" array.
func Load(path string) ([]Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes corpus JSON from memory.
func Parse(raw []byte) ([]Document, error) {
	var wrapped struct {
		Documents []Document `json:"documents"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Documents != nil {
		return wrapped.Documents, nil
	}

	var docs []Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("corpus: parse: %w", err)
	}
	return docs, nil
}

// Statutes filters docs to statutory material. Documents typed
// legal_document are kept as a fallback for corpora that predate the
// legal_statute type.
func Statutes(docs []Document) []Document {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if d.ContentType == "legal_statute" || d.ContentType == "legal_document" {
			out = append(out, d)
		}
	}
	return out
}

// Chunks flattens documents into index-ready chunks, one per section.
// A document without sections yields a single chunk from its content
// field. Chunk IDs are deterministic so re-indexing the same corpus
// upserts in place instead of duplicating points.
func Chunks(docs []Document) []domain.DocumentChunk {
	var chunks []domain.DocumentChunk
	for _, d := range docs {
		jur := d.Jurisdictions
		if len(jur) == 0 {
			jur = inferJurisdictions(d.Title + " " + d.Description)
		}
		ct := d.ContentType
		if ct == "" {
			ct = "legal_document"
		}

		if len(d.Sections) == 0 {
			text := joinNonEmpty(d.Title, d.Description, truncate(d.Content))
			if strings.TrimSpace(text) == "" {
				continue
			}
			chunks = append(chunks, domain.DocumentChunk{
				ID:            chunkID(d, 0),
				Text:          text,
				Regulation:    d.Title,
				Jurisdictions: jur,
				ContentType:   ct,
			})
			continue
		}

		for i, s := range d.Sections {
			text := joinNonEmpty(d.Title, s.Title, truncate(s.Content))
			if strings.TrimSpace(text) == "" {
				continue
			}
			chunks = append(chunks, domain.DocumentChunk{
				ID:            chunkID(d, i),
				Text:          text,
				Regulation:    d.Title,
				Jurisdictions: jur,
				ContentType:   ct,
			})
		}
	}
	return chunks
}

func chunkID(d Document, section int) string {
	name := fmt.Sprintf("%s|%s|%d", d.Title, d.URL, section)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

func truncate(s string) string {
	if len(s) > maxSectionChars {
		return s[:maxSectionChars] + "..."
	}
	return s
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// jurisdictionIndicators maps a jurisdiction label to phrases that
// signal it in statute titles and descriptions.
var jurisdictionIndicators = map[string][]string{
	"EU":         {"GDPR", "DSA", "European", "EU", "Europe"},
	"US":         {"COPPA", "CCPA", "FTC", "United States", "US", "America", "federal"},
	"Utah":       {"Utah"},
	"California": {"California", "SB976", "CCPA"},
	"Florida":    {"Florida"},
	"Texas":      {"Texas"},
	"Brazil":     {"Brazil", "LGPD"},
}

func inferJurisdictions(text string) []string {
	lower := strings.ToLower(text)
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		words[w] = true
	}

	var out []string
	for _, label := range []string{"EU", "US", "Utah", "California", "Florida", "Texas", "Brazil"} {
		for _, ind := range jurisdictionIndicators[label] {
			ind = strings.ToLower(ind)
			// Short indicators match whole words only; "us" inside
			// "users" must not imply a US jurisdiction.
			hit := false
			if strings.ContainsRune(ind, ' ') {
				hit = strings.Contains(lower, ind)
			} else {
				hit = words[ind]
			}
			if hit {
				out = append(out, label)
				break
			}
		}
	}
	return out
}
