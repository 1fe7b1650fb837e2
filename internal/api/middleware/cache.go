package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/clinicfinder/backend/internal/domain/providers"
	"github.com/clinicfinder/backend/internal/infrastructure/observability"
)

const responseCacheName = "http"

// ResponseCache stores successful GET responses for configured paths
type ResponseCache struct {
	cache   providers.CacheProvider
	metrics *observability.Metrics
	ttls    map[string]int
}

// NewResponseCache creates a cache for the exact paths in ttls (seconds)
func NewResponseCache(cache providers.CacheProvider, metrics *observability.Metrics, ttls map[string]int) *ResponseCache {
	return &ResponseCache{cache: cache, metrics: metrics, ttls: ttls}
}

// DefaultResponseTTLs covers the read-only clinic listing. Nearby stays
// uncached because it can write rows.
func DefaultResponseTTLs() map[string]int {
	return map[string]int{
		"/api/places/cached": 60,
	}
}

// Middleware returns the cache middleware handler
func (m *ResponseCache) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil || m.cache == nil || r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}
		ttl, ok := m.ttls[r.URL.Path]
		if !ok || ttl <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		key := cacheKey(r)
		logger := observability.LoggerFromContext(ctx)

		if cached, err := m.cache.Get(ctx, key); err == nil {
			observability.RecordCacheHit(ctx, m.metrics, responseCacheName)
			w.Header().Set("X-Cache", "HIT")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(cached)
			return
		}

		observability.RecordCacheMiss(ctx, m.metrics, responseCacheName)
		w.Header().Set("X-Cache", "MISS")

		recorder := &responseRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			body:           &bytes.Buffer{},
		}
		next.ServeHTTP(recorder, r)

		if recorder.statusCode != http.StatusOK || recorder.body.Len() == 0 {
			return
		}
		if err := m.cache.Set(ctx, key, recorder.body.Bytes(), ttl); err != nil {
			logger.Warn().Err(err).Str("path", r.URL.Path).Msg("Failed to cache response")
		}
	})
}

func cacheKey(r *http.Request) string {
	key := r.Method + ":" + r.URL.Path
	if query := r.URL.Query().Encode(); query != "" {
		key += "?" + query
	}
	hash := sha256.Sum256([]byte(key))
	return "http:cache:" + hex.EncodeToString(hash[:])
}

// responseRecorder tees the response body into a buffer
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
	written    bool
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	if !r.written {
		r.statusCode = statusCode
		r.ResponseWriter.WriteHeader(statusCode)
		r.written = true
	}
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	if !r.written {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(data)
	return r.ResponseWriter.Write(data)
}
