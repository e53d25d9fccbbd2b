package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/service"
)

// HeaderAPIKey carries a client's subscription key.
const HeaderAPIKey = "X-API-Key"

type ownerKey struct{}

// Owner returns the identity webhook subscriptions are scoped to: the
// digest of the request's API key, or domain.AnonymousOwner.
func Owner(ctx context.Context) string {
	if o, ok := ctx.Value(ownerKey{}).(string); ok && o != "" {
		return o
	}
	return domain.AnonymousOwner
}

// WithOwner returns a copy of ctx scoped to owner.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// KeyCharger authenticates an API key and counts one request against it.
type KeyCharger interface {
	Charge(ctx context.Context, raw string) (service.Quota, error)
}

// APIKey enforces tier limits on requests that present an X-API-Key header.
// Requests without one (browser traffic) pass through unmetered. Unknown or
// inactive keys get 401; keys over their hourly allowance get 429.
func APIKey(keys KeyCharger, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(HeaderAPIKey))
			if raw == "" || keys == nil {
				next.ServeHTTP(w, r)
				return
			}

			q, err := keys.Charge(r.Context(), raw)
			switch {
			case errors.Is(err, domain.ErrUnauthorized):
				writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Invalid API key"})
				return
			case err != nil:
				logger.ErrorContext(r.Context(), "api key check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
				return
			}

			if q.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(q.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(q.Remaining))
			}
			if !q.Allowed {
				writeJSON(w, http.StatusTooManyRequests, map[string]any{"error": "Rate limit exceeded", "remaining": q.Remaining})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), q.Key.Digest)))
		})
	}
}

// AdminAuth guards a handler with a static bearer token. An empty token
// disables the check.
func AdminAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			got := bearerToken(r)
			if got == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "missing authentication token"})
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid authentication token"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	scheme, tok, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(tok)
}
