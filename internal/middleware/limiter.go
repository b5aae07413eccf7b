package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"nochex-be/internal/transport"

	"golang.org/x/time/rate"
)

// Rate Limit Tiers
var (
	// gateway notifications
	TierStrict = Tier{Name: "strict", Limit: rate.Limit(2), Burst: 5}

	// checkout pages and everything else
	TierGeneral = Tier{Name: "general", Limit: rate.Limit(10), Burst: 20}
)

const visitorTTL = 3 * time.Minute

type Tier struct {
	Name  string
	Limit rate.Limit
	Burst int
}

// visitor holds the rate limiter and the last time it was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP and tier.
type RateLimiter struct {
	mu          sync.Mutex
	visitors    map[string]*visitor
	strictPaths []string
	now         func() time.Time
}

// NewRateLimiter applies TierStrict to requests whose path starts with one of
// strictPaths.
func NewRateLimiter(strictPaths ...string) *RateLimiter {
	return &RateLimiter{
		visitors:    make(map[string]*visitor),
		strictPaths: strictPaths,
		now:         time.Now,
	}
}

// getVisitor retrieves or creates a rate limiter for the given key.
func (l *RateLimiter) getVisitor(key string, tier Tier) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, exists := l.visitors[key]
	if !exists {
		limiter := rate.NewLimiter(tier.Limit, tier.Burst)
		l.visitors[key] = &visitor{limiter, l.now()}
		return limiter
	}

	v.lastSeen = l.now()
	return v.limiter
}

// Sweep removes visitors not seen for longer than visitorTTL.
func (l *RateLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, v := range l.visitors {
		if l.now().Sub(v.lastSeen) > visitorTTL {
			delete(l.visitors, key)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (l *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tier := l.resolveTier(r)

		// e.g. "ip:203.0.113.9:strict"
		key := fmt.Sprintf("ip:%s:%s", transport.ClientIP(r), tier.Name)

		if !l.getVisitor(key, tier).Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) resolveTier(r *http.Request) Tier {
	for _, p := range l.strictPaths {
		if strings.HasPrefix(r.URL.Path, p) {
			return TierStrict
		}
	}
	return TierGeneral
}
