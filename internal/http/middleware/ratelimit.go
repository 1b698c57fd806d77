package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/postflowhq/carousel-service/internal/ratelimit"
	"github.com/postflowhq/carousel-service/internal/utils/response"
)

// PublishRateLimit guards the publish routes with the per-account limiter.
// The account is fixed per deployment, so the key is the configured account
// id rather than the calling user: what the Graph API throttles is the
// account, no matter who triggered the publish.
func PublishRateLimit(limiter *ratelimit.PublishLimiter, accountID string, capacity int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r.Context(), accountID)
			if err != nil {
				response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(
					fmt.Errorf("rate limit check failed: %w", err)))
				return
			}

			remaining, _ := limiter.Remaining(r.Context(), accountID)
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(capacity, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			w.Header().Set("X-RateLimit-Reset", "3600")

			if !allowed {
				response.WriteJSON(w, http.StatusTooManyRequests, response.GeneralError(
					errors.New("publish rate limit exceeded for this account")))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
