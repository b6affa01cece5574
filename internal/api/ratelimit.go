package api

import (
	"net/http"
	"sync"
	"time"

	"productboards-backend/internal/auth"
	"productboards-backend/pkg/httputil"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// UserRateLimiter hands out one token bucket per authenticated user.
type UserRateLimiter struct {
	mu       sync.Mutex
	limiters map[uuid.UUID]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewUserRateLimiter allows perMinute requests per user per minute, with bursts of up to perMinute.
// A non-positive perMinute disables limiting.
func NewUserRateLimiter(perMinute int) *UserRateLimiter {
	if perMinute <= 0 {
		return &UserRateLimiter{limit: rate.Inf}
	}
	return &UserRateLimiter{
		limiters: make(map[uuid.UUID]*rate.Limiter),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
	}
}

// Allow reports whether userID may make another request now.
func (l *UserRateLimiter) Allow(userID uuid.UUID) bool {
	if l.limit == rate.Inf {
		return true
	}
	l.mu.Lock()
	limiter, ok := l.limiters[userID]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[userID] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}

// Middleware answers 429 once the user has spent their budget. It must run after JwtAuthMiddleware.
func (l *UserRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.GetUserIDFromContext(r.Context())
		if ok && !l.Allow(userID) {
			w.Header().Set("Retry-After", "60")
			httputil.RespondError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again in a moment.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
