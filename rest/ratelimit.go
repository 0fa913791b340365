package rest

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

type RateLimitConfig struct {
	// RPS per client address. Zero disables limiting.
	RPS   float64
	Burst int
}

// clientLimiter keeps one token bucket per client address.
type clientLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rps      rate.Limit
	burst    int
}

func newClientLimiter(conf RateLimitConfig) *clientLimiter {
	burst := conf.Burst
	if burst <= 0 {
		burst = 1
	}
	return &clientLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(conf.RPS),
		burst:    burst,
	}
}

func (l *clientLimiter) enabled() bool {
	return l.rps > 0
}

func (l *clientLimiter) Allow(client string) bool {
	return l.getOrCreate(client).Allow()
}

func (l *clientLimiter) getOrCreate(client string) *rate.Limiter {
	l.mu.RLock()
	limiter, ok := l.limiters[client]
	l.mu.RUnlock()
	if ok {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, ok = l.limiters[client]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(l.rps, l.burst)
	l.limiters[client] = limiter
	return limiter
}

func (l *clientLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.enabled() && !l.Allow(clientAddr(r)) {
			respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
