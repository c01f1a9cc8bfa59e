package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/statusgraph/internal/models"
)

const (
	responseMetaKey   = "response_meta"
	requestStartKey   = "response_started_at"
	cacheStatusHeader = "X-Cache"
)

// WithResponseMeta prepares per-request envelope metadata.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requestStartKey, time.Now())
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
	}
}

// SetThreadLookup records how a thread context was resolved and mirrors the
// cache outcome in the X-Cache header.
func SetThreadLookup(c *gin.Context, lookup models.ContextLookup) {
	meta := ensureMeta(c)
	meta["thread"] = map[string]interface{}{
		"root_id":   lookup.RootID,
		"cache_key": lookup.CacheKey,
		"cache_hit": lookup.CacheHit,
	}
	status := "MISS"
	if lookup.CacheHit {
		status = "HIT"
	}
	c.Header(cacheStatusHeader, status)
}

// ExtractMeta returns a snapshot of the metadata with the elapsed handler
// time. It is nil when WithResponseMeta did not run.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	value, exists := c.Get(responseMetaKey)
	if !exists {
		return nil
	}
	meta, ok := value.(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]interface{}, len(meta)+1)
	for k, v := range meta {
		out[k] = v
	}
	if started, ok := c.Get(requestStartKey); ok {
		if t, ok := started.(time.Time); ok {
			out["processing_time_ms"] = time.Since(t).Milliseconds()
		}
	}
	return out
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if value, exists := c.Get(responseMetaKey); exists {
		if meta, ok := value.(map[string]interface{}); ok {
			return meta
		}
	}
	meta := make(map[string]interface{})
	c.Set(responseMetaKey, meta)
	return meta
}
