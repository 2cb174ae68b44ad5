package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/common"
)

func newLimitedHandler(t *testing.T, client *redis.Client, rate string) Handler {
	t.Helper()
	store, err := NewStore(client, "ratelimit")
	require.NoError(t, err)
	lim, err := New(store, rate)
	require.NoError(t, err)
	return Handler{Limiter: lim, Key: ByCaller}
}

func ok() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestHandlerMiddlewareEnforcesLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	counted := newLimitedHandler(t, client, "1-M").Middleware(ok())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/promos/validate", nil)
	req = req.WithContext(common.WithUserID(req.Context(), "u-1"))

	rr1 := httptest.NewRecorder()
	counted.ServeHTTP(rr1, req)
	require.Equal(t, http.StatusOK, rr1.Code)
	require.Equal(t, "0", rr1.Header().Get("X-RateLimit-Remaining"))

	rr2 := httptest.NewRecorder()
	counted.ServeHTTP(rr2, req)
	require.Equal(t, http.StatusTooManyRequests, rr2.Code)
	require.Equal(t, "1", rr2.Header().Get("X-RateLimit-Limit"))
	require.NotEmpty(t, rr2.Header().Get("Retry-After"))

	other := httptest.NewRequest(http.MethodPost, "/api/v1/promos/validate", nil)
	other = other.WithContext(common.WithUserID(other.Context(), "u-2"))
	rr3 := httptest.NewRecorder()
	counted.ServeHTTP(rr3, other)
	require.Equal(t, http.StatusOK, rr3.Code, "limits are per caller")
}

func TestHandlerMiddlewareOnError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	h := newLimitedHandler(t, client, "1-M")
	_ = client.Close()

	called := false
	h.OnError = func(error) { called = true }

	rr := httptest.NewRecorder()
	h.Middleware(ok()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, called)
}

func TestNewRejectsBadRate(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := NewStore(client, "ratelimit")
	require.NoError(t, err)
	_, err = New(store, "lots")
	require.Error(t, err)

	_, err = NewStore(nil, "ratelimit")
	require.Error(t, err)
}
