package api

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/eugenenazirov/container-scaffold/internal/network"
)

const maxTrackedClients = 4096

type rateLimiter interface {
	Allow(r *http.Request) bool
}

// clientLimiter keeps one token bucket per client address.
type clientLimiter struct {
	ratePerSecond rate.Limit
	burst         int

	mu      sync.Mutex
	clients map[string]*rate.Limiter
}

func newTokenBucketLimiter(ratePerSecond float64, burst int) rateLimiter {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}

	return &clientLimiter{
		ratePerSecond: rate.Limit(ratePerSecond),
		burst:         burst,
		clients:       make(map[string]*rate.Limiter),
	}
}

func (l *clientLimiter) Allow(r *http.Request) bool {
	if l == nil {
		return true
	}
	return l.limiterFor(network.RemoteAddr(r)).Allow()
}

func (l *clientLimiter) limiterFor(addr string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.clients[addr]
	if !ok {
		// Drop every bucket rather than track an unbounded set of clients.
		if len(l.clients) >= maxTrackedClients {
			l.clients = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(l.ratePerSecond, l.burst)
		l.clients[addr] = limiter
	}
	return limiter
}

func rateLimitMiddleware(limiter rateLimiter, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if limiter.Allow(r) {
			next.ServeHTTP(w, r)
			return
		}
		writeError(w, http.StatusTooManyRequests, "Too many requests", "rate limit exceeded, please retry shortly")
	})
}
