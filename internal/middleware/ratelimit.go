package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/exp/slog"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL  = 10 * time.Minute
	limiterSweepLen = 1024
)

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterStore keeps one token bucket per client IP.
type limiterStore struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rps      rate.Limit
	burst    int
}

func (s *limiterStore) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.limiters) >= limiterSweepLen {
		for k, e := range s.limiters {
			if now.Sub(e.lastAccess) > limiterIdleTTL {
				delete(s.limiters, k)
			}
		}
	}

	e, ok := s.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(s.rps, s.burst)}
		s.limiters[key] = e
	}
	e.lastAccess = now
	return e.limiter
}

// RateLimit enforces a per-IP token bucket. Rejected requests get 429 with a
// Retry-After header. A non-positive rps disables limiting.
func RateLimit(rps float64, burst int, logger *slog.Logger) func(next http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst < 1 {
		burst = 1
	}
	store := &limiterStore{
		limiters: make(map[string]*limiterEntry),
		rps:      rate.Limit(rps),
		burst:    burst,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			limiter := store.get(ip, time.Now())
			if !limiter.Allow() {
				reservation := limiter.Reserve()
				retryAfter := int(reservation.Delay().Seconds()) + 1
				reservation.Cancel()

				logger.Debug("rate limit exceeded",
					slog.String("client_ip", ip),
					slog.Int("retry_after", retryAfter))

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
