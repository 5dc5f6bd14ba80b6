package mcp

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const defaultMaxBodyBytes int64 = 1 << 20 // 1MiB

type HTTPHandlerConfig struct {
	AuthToken       string
	RateLimitPerMin int
	MaxBodyBytes    int64
}

// Mount serves server over streamable HTTP at path. Requests pass bearer
// auth, then a per-caller rate limit, then a body size cap.
func Mount(r gin.IRoutes, path string, server *Server, cfg HTTPHandlerConfig) {
	r.Any(path,
		bearerAuth(cfg.AuthToken),
		rateLimit(newKeyedLimiter(cfg.RateLimitPerMin)),
		bodyLimit(cfg.MaxBodyBytes),
		gin.WrapH(server.HTTPHandler()),
	)
}

func bearerToken(c *gin.Context) string {
	return strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
}

func bearerAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.HasPrefix(strings.TrimSpace(c.GetHeader("Authorization")), "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		provided := bearerToken(c)
		if token == "" || provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid bearer token"})
			return
		}
		c.Next()
	}
}

func bodyLimit(limit int64) gin.HandlerFunc {
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

func rateLimit(limiter *keyedLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(callerKey(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func callerKey(c *gin.Context) string {
	host := c.ClientIP()
	if host == "" {
		host = "unknown"
	}
	if token := bearerToken(c); token != "" {
		return token + "|" + host
	}
	return host
}

// keyedLimiter holds one token bucket per caller, refilled at perMin/60 per
// second with a burst of perMin.
type keyedLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets map[string]*rate.Limiter
}

func newKeyedLimiter(perMin int) *keyedLimiter {
	if perMin <= 0 {
		perMin = 60
	}
	return &keyedLimiter{
		limit:   rate.Limit(float64(perMin) / 60.0),
		burst:   perMin,
		buckets: make(map[string]*rate.Limiter),
	}
}

func (l *keyedLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	if key == "" {
		key = "default"
	}

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets[key] = b
	}
	l.mu.Unlock()
	return b.Allow()
}
