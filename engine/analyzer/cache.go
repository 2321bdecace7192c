package analyzer

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/geoflag/geoflag/engine/domain"
)

// resultCache memoizes analysis results per feature content for a TTL.
// Identical submissions against an unchanged index return the cached
// result rather than paying for another LLM round-trip.
type resultCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	result  domain.AnalysisResult
	expires time.Time
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func cacheKey(f domain.FeatureRequest) string {
	h := sha256.New()
	h.Write([]byte(f.FeatureName))
	h.Write([]byte{0})
	h.Write([]byte(f.Description))
	h.Write([]byte{0})
	h.Write([]byte(f.Code))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *resultCache) get(f domain.FeatureRequest) (domain.AnalysisResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[cacheKey(f)]
	if !ok || c.now().After(e.expires) {
		return domain.AnalysisResult{}, false
	}
	// Identity fields follow the submission, not the cached run.
	r := e.result
	r.FeatureID = f.ID
	return r, true
}

func (c *resultCache) put(f domain.FeatureRequest, r domain.AnalysisResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(f)] = cacheEntry{result: r, expires: c.now().Add(c.ttl)}
}
