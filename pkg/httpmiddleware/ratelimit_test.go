package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// limitedHandler returns a handler whose limiter reads the time from *now.
func limitedHandler(cfg RateLimitConfig, now *time.Time) http.Handler {
	rl := newRateLimiter(cfg)
	rl.now = func() time.Time { return *now }
	return rateLimitMiddleware(rl)(okHandler())
}

func serve(h http.Handler, remoteAddr string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_UnderLimit(t *testing.T) {
	now := time.Now()
	handler := limitedHandler(RateLimitConfig{Rate: 1, Burst: 5}, &now)

	for i := range 5 {
		w := serve(handler, "192.168.1.1:12345", nil)

		assert.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(4-i), w.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimit_OverLimit(t *testing.T) {
	now := time.Now()
	handler := limitedHandler(RateLimitConfig{Rate: 0.5, Burst: 2}, &now)

	for range 2 {
		require.Equal(t, http.StatusOK, serve(handler, "10.0.0.1:9999", nil).Code)
	}

	w := serve(handler, "10.0.0.1:9999", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "2", w.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, float64(429), body["code"])
	assert.Equal(t, "RATE_LIMITED", body["error"])
	assert.Equal(t, "rate limit exceeded", body["message"])
}

func TestRateLimit_Refill(t *testing.T) {
	now := time.Now()
	handler := limitedHandler(RateLimitConfig{Rate: 1, Burst: 1}, &now)

	assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.1:1", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(handler, "10.0.0.1:1", nil).Code)

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.1:1", nil).Code)
}

func TestRateLimit_DifferentIPs(t *testing.T) {
	now := time.Now()
	handler := limitedHandler(RateLimitConfig{Rate: 0.1, Burst: 1}, &now)

	assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.1:1234", nil).Code)
	// Independent bucket per client.
	assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.2:1234", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(handler, "10.0.0.1:5678", nil).Code)
}

func TestRateLimit_CustomKeyFunc(t *testing.T) {
	now := time.Now()
	handler := limitedHandler(RateLimitConfig{
		Rate:  0.1,
		Burst: 1,
		KeyFunc: func(r *http.Request) string {
			return r.Header.Get("X-API-Key")
		},
	}, &now)

	keyA := http.Header{"X-Api-Key": {"key-a"}}
	assert.Equal(t, http.StatusOK, serve(handler, "", keyA).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(handler, "", keyA).Code)
	assert.Equal(t, http.StatusOK, serve(handler, "", http.Header{"X-Api-Key": {"key-b"}}).Code)
}

func TestRateLimit_XForwardedFor(t *testing.T) {
	now := time.Now()
	handler := limitedHandler(RateLimitConfig{Rate: 0.1, Burst: 1}, &now)

	xff := http.Header{"X-Forwarded-For": {"203.0.113.50, 70.41.3.18"}}
	assert.Equal(t, http.StatusOK, serve(handler, "192.168.1.1:4444", xff).Code)
	// Same first hop behind a different proxy address.
	assert.Equal(t, http.StatusTooManyRequests, serve(handler, "192.168.1.2:5555", xff).Code)
}

func TestRateLimit_Cleanup(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Rate: 1, Burst: 1, IdleTTL: time.Minute})
	now := time.Now()

	rl.allow("stale", now)
	rl.allow("fresh", now.Add(50*time.Second))
	rl.cleanup(now.Add(70 * time.Second))

	assert.NotContains(t, rl.entries, "stale")
	assert.Contains(t, rl.entries, "fresh")
}
