package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long an idle client keeps its limiter
const limiterIdleTTL = 10 * time.Minute

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter implements per-IP rate limiting of dashboard requests
type RateLimiter struct {
	clients map[string]*client
	mu      sync.Mutex
	r       rate.Limit
	b       int
	now     func() time.Time
}

// NewRateLimiter creates a new rate limiter. A non-positive rate disables it.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	r := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		r = rate.Inf
	}
	return &RateLimiter{
		clients: make(map[string]*client),
		r:       r,
		b:       burst,
		now:     time.Now,
	}
}

// getLimiter returns the rate limiter for a given IP and forgets idle clients
func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, c := range rl.clients {
		if now.Sub(c.lastSeen) > limiterIdleTTL {
			delete(rl.clients, key)
		}
	}

	c, exists := rl.clients[ip]
	if !exists {
		c = &client{limiter: rate.NewLimiter(rl.r, rl.b)}
		rl.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter
}

// Limit is a middleware that rate limits requests
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)

		if !rl.getLimiter(ip).Allow() {
			log.Warn().Str("ip", ip).Str("path", r.URL.Path).Msg("Rate limit exceeded")
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error": "Rate limit exceeded. Please try again later."}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClientIP extracts the client address, preferring proxy headers
func ClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first (for proxies/load balancers)
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
