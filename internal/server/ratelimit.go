package server

import (
	"net/http"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/aristath/lottolab/internal/config"
)

// rateLimiter throttles the computation endpoints with a shared token bucket
type rateLimiter struct {
	limiter *rate.Limiter // nil disables limiting
}

func newRateLimiter(cfg config.RateLimitConfig) *rateLimiter {
	if cfg.PerSecond <= 0 {
		return &rateLimiter{}
	}
	return &rateLimiter{limiter: rate.NewLimiter(rate.Limit(cfg.PerSecond), cfg.Burst)}
}

func (l *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.limiter != nil {
			reservation := l.limiter.Reserve()
			if delay := reservation.Delay(); delay > 0 {
				reservation.Cancel()
				w.Header().Set("Retry-After", strconv.Itoa(int(delay.Seconds())+1))
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
