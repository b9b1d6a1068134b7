package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ransomguard/internal/config"
	"ransomguard/pkg/logger"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func request(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLocalLimiter_Burst(t *testing.T) {
	l := NewLocalLimiter(60, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("a"), "request %d", i)
	}
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
}

func TestRateLimiter_LocalFallback(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, RequestsPerMinute: 60, Burst: 2}
	h := RateLimiter(nil, cfg, logger.NewNop())(okHandler)

	assert.Equal(t, http.StatusOK, request(h, "10.0.0.1:1111").Code)
	assert.Equal(t, http.StatusOK, request(h, "10.0.0.1:2222").Code)

	rec := request(h, "10.0.0.1:3333")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, request(h, "10.0.0.2:1111").Code)
}

type fakeStore struct {
	allowed bool
	err     error
	keys    []string
}

func (f *fakeStore) CheckRateLimit(_ context.Context, key string, limit int64, _ time.Duration) (bool, int64, time.Time, error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return false, 0, time.Time{}, f.err
	}
	remaining := limit - 1
	if !f.allowed {
		remaining = 0
	}
	return f.allowed, remaining, time.Now().Add(30 * time.Second), nil
}

func TestRateLimiter_SharedStore(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, RequestsPerMinute: 10, Burst: 1}

	store := &fakeStore{allowed: true}
	rec := request(RateLimiter(store, cfg, logger.NewNop())(okHandler), "192.168.1.5:4000")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "9", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, []string{"ip:192.168.1.5"}, store.keys)

	store = &fakeStore{allowed: false}
	rec = request(RateLimiter(store, cfg, logger.NewNop())(okHandler), "192.168.1.5:4000")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// a failing store degrades to the local buckets
	store = &fakeStore{err: errors.New("connection refused")}
	h := RateLimiter(store, cfg, logger.NewNop())(okHandler)
	assert.Equal(t, http.StatusOK, request(h, "192.168.1.5:4000").Code)
	assert.Equal(t, http.StatusTooManyRequests, request(h, "192.168.1.5:4000").Code)
}

func TestRateLimiter_SkipsOptions(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1}
	h := RateLimiter(nil, cfg, logger.NewNop())(okHandler)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestAdminAuth(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		header     string
		want       int
	}{
		{"disabled", "", "anything", http.StatusForbidden},
		{"missing", "token", "", http.StatusUnauthorized},
		{"wrong", "token", "nope", http.StatusForbidden},
		{"valid", "token", "token", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/model/reload", nil)
			if tt.header != "" {
				req.Header.Set(AdminTokenHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			AdminAuth(tt.configured)(okHandler).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestLogger_RequestID(t *testing.T) {
	var buf bytes.Buffer
	log := &logger.Logger{Logger: zerolog.New(&buf)}

	h := chimw.RequestID(Logger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))
	req := httptest.NewRequest(http.MethodGet, "/analyze", nil)
	req.Header.Set(chimw.RequestIDHeader, "req-1234")
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-1234", entry["request_id"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, float64(http.StatusTeapot), entry["status"])
	assert.Equal(t, "/analyze", entry["path"])
}
