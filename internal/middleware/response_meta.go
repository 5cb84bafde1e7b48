package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	responseMetaKey = "response_meta"
	startedAtKey    = "response_started_at"

	// HeaderCache reports whether the payload came from the catalog cache.
	HeaderCache = "X-Cache"
)

// WithResponseMeta opens a metadata map for the request that handlers can
// merge into the response envelope.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(startedAtKey, time.Now())
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
	}
}

// SetCacheHit records the cache outcome in the metadata and the X-Cache header.
func SetCacheHit(c *gin.Context, hit bool) {
	ensureMeta(c)["cache_hit"] = hit
	if hit {
		c.Header(HeaderCache, "HIT")
		return
	}
	c.Header(HeaderCache, "MISS")
}

// ExtractMeta returns the metadata map stored on the context.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	return nil
}

// MergeMeta combines the request metadata with extra, stamping the elapsed
// processing time. Keys in extra win.
func MergeMeta(c *gin.Context, extra map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(extra)+2)
	for k, v := range ExtractMeta(c) {
		out[k] = v
	}
	if started, ok := c.Get(startedAtKey); ok {
		if at, ok := started.(time.Time); ok {
			out["processing_time_ms"] = time.Since(at).Milliseconds()
		}
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if meta := ExtractMeta(c); meta != nil {
		return meta
	}
	meta := make(map[string]interface{})
	c.Set(responseMetaKey, meta)
	return meta
}
