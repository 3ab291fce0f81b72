package web

import (
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// errRateLimited maps to RATE001 in the user message table.
var errRateLimited = errors.New("rate limit exceeded")

// visitorTTL is how long an idle client keeps its limiter.
const visitorTTL = 3 * time.Minute

// clientLimiter is a token bucket per client IP.
type clientLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newClientLimiter allows perMinute requests per client, refilled smoothly,
// with bursts up to perMinute.
func newClientLimiter(perMinute int) *clientLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &clientLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    perMinute,
	}
}

// allow reports whether the client may proceed, consuming a token if so.
func (cl *clientLimiter) allow(key string, now time.Time) bool {
	cl.mu.Lock()
	v, ok := cl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(cl.limit, cl.burst)}
		cl.visitors[key] = v
	}
	v.lastSeen = now
	cl.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// sweep removes clients idle for longer than visitorTTL.
func (cl *clientLimiter) sweep(now time.Time) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	for key, v := range cl.visitors {
		if now.Sub(v.lastSeen) > visitorTTL {
			delete(cl.visitors, key)
		}
	}
}

func (cl *clientLimiter) size() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.visitors)
}

// rateLimit returns middleware that rejects clients over their budget.
func (s *Server) rateLimit(cl *clientLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cl.allow(clientKey(r), time.Now()) {
				w.Header().Set("Retry-After", "60")
				s.respondError(w, r, errRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey is the client IP without port. RemoteAddr has already been
// resolved by TrustedRealIP.
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
