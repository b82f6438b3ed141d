package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig mirrors the RATE_LIMIT_RPS and RATE_LIMIT_BURST knobs.
type RateLimitConfig struct {
	// RPS is the sustained per-client rate in requests per second.
	RPS float64
	// Burst caps how far a client may spike above the sustained rate.
	Burst int
}

// Idle visitors are swept periodically so the table does not grow with
// every address that ever hit the service.
const (
	visitorSweepEvery = 5 * time.Minute
	visitorIdleCutoff = 10 * time.Minute
)

type visitor struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

type visitorTable struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	cfg      RateLimitConfig
}

func (t *visitorTable) bucketFor(addr string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.visitors[addr]
	if !ok {
		v = &visitor{bucket: rate.NewLimiter(rate.Limit(t.cfg.RPS), t.cfg.Burst)}
		t.visitors[addr] = v
	}
	v.lastSeen = time.Now()
	return v.bucket
}

func (t *visitorTable) sweep() {
	for range time.Tick(visitorSweepEvery) {
		t.mu.Lock()
		for addr, v := range t.visitors {
			if time.Since(v.lastSeen) > visitorIdleCutoff {
				delete(t.visitors, addr)
			}
		}
		t.mu.Unlock()
	}
}

// RateLimiter enforces a per-client token bucket. Clients over the limit get
// 429 with a Retry-After hint; everyone else gets the usual X-RateLimit
// headers.
func RateLimiter(cfg RateLimitConfig) func(http.Handler) http.Handler {
	table := &visitorTable{visitors: make(map[string]*visitor), cfg: cfg}
	go table.sweep()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bucket := table.bucketFor(clientIP(r))

			reservation := bucket.Reserve()
			if !reservation.OK() {
				rejectThrottled(w, 0)
				return
			}
			if delay := reservation.Delay(); delay > 0 {
				// Over the sustained rate. Hand the token back and reject.
				reservation.Cancel()
				rejectThrottled(w, int(delay.Seconds())+1)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Burst))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(bucket.Tokens())))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Second).Unix(), 10))

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr. X-Forwarded-For is untrusted and
// ignored to prevent rate-limit bypass via header spoofing.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func rejectThrottled(w http.ResponseWriter, retryAfterSecs int) {
	if retryAfterSecs > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSecs))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    "rate-limited",
		"message": "rate limit exceeded",
	})
}
