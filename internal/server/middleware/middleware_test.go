package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type scriptedLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (s *scriptedLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, int, error) {
	s.keys = append(s.keys, key)
	return s.allow, 0, s.err
}

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRateLimit(t *testing.T) {
	t.Run("blocks over limit", func(t *testing.T) {
		lim := &scriptedLimiter{allow: false}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/arbitrage", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		RateLimit(lim, 5, time.Minute, quiet())(ok).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, []string{"api:203.0.113.9"}, lim.keys)
	})

	t.Run("fails open", func(t *testing.T) {
		lim := &scriptedLimiter{err: errors.New("redis down")}
		rec := httptest.NewRecorder()
		RateLimit(lim, 5, time.Minute, quiet())(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("disabled", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RateLimit(nil, 5, time.Minute, quiet())(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", clientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", clientIP(req))
}

func TestOwnerDefaultsToAnonymous(t *testing.T) {
	assert.Equal(t, "anonymous", Owner(context.Background()))
	assert.Equal(t, "abc", Owner(WithOwner(context.Background(), "abc")))
}

func TestAdminAuth(t *testing.T) {
	h := AdminAuth("tok")(ok)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req.Header.Set("Authorization", "bearer tok")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
