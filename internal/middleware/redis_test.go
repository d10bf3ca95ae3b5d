package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/iliyamo/shopease-api/internal/config"
)

// setupRedis starts a throwaway Redis container. The test is skipped
// under -short or when Docker is not available.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Redis integration test in short mode")
	}
	ctx := context.Background()
	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("Redis container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := redisC.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})
	host, err := redisC.Host(ctx)
	require.NoError(t, err)
	port, err := redisC.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())
	return rdb
}

func TestRedisCacheHitAndMiss(t *testing.T) {
	rdb := setupRedis(t)
	cfg := config.CacheConfig{
		Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute,
		KeyStrategy: "route_query", Prefix: "test:cache",
	}
	calls := 0
	e := echo.New()
	e.GET("/admin/metrics", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"ordersToday": calls})
	}, NewRedisCache(cfg, rdb))

	get := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/metrics", nil))
		return rec
	}
	first := get()
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := get()
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Contains(t, second.Header().Get(echo.HeaderContentType), "application/json")
	assert.Equal(t, 1, calls)
}

func TestRedisCacheHitKeepsOwnRequestID(t *testing.T) {
	rdb := setupRedis(t)
	cfg := config.CacheConfig{
		Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute,
		KeyStrategy: "route_query", Prefix: "test:rid",
	}
	e := echo.New()
	e.Use(echomw.RequestID())
	e.GET("/admin/metrics", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	}, NewRedisCache(cfg, rdb))

	var ids []string
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/metrics", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		vals := rec.Header().Values(echo.HeaderXRequestID)
		require.Len(t, vals, 1)
		ids = append(ids, vals[0])
	}
	assert.NotEqual(t, ids[0], ids[1])
}

func TestCacheInvalidatorDropsEntriesAfterWrite(t *testing.T) {
	rdb := setupRedis(t)
	cfg := config.CacheConfig{
		Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute,
		KeyStrategy: "route_query", Prefix: "test:inv",
	}
	calls := 0
	e := echo.New()
	e.GET("/admin/metrics", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"calls": calls})
	}, NewRedisCache(cfg, rdb))
	e.PATCH("/admin/orders/:id/status", func(c echo.Context) error {
		if c.Param("id") == "0" {
			return echo.NewHTTPError(http.StatusBadRequest, "bad id")
		}
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	}, NewCacheInvalidator(cfg, rdb))

	do := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec
	}
	do(http.MethodGet, "/admin/metrics")
	assert.Equal(t, "HIT", do(http.MethodGet, "/admin/metrics").Header().Get("X-Cache"))

	assert.Equal(t, http.StatusBadRequest, do(http.MethodPatch, "/admin/orders/0/status").Code)
	assert.Equal(t, "HIT", do(http.MethodGet, "/admin/metrics").Header().Get("X-Cache"))

	assert.Equal(t, http.StatusOK, do(http.MethodPatch, "/admin/orders/1/status").Code)
	assert.Equal(t, "MISS", do(http.MethodGet, "/admin/metrics").Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)
}

func TestTokenBucketBlocksAfterCapacity(t *testing.T) {
	rdb := setupRedis(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 3, RefillTokens: 1, RefillInterval: time.Hour,
		TTL: 5 * time.Hour, KeyStrategy: "ip_route", Prefix: "test:rl",
	}
	e := echo.New()
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(cfg, rdb))

	var last *httptest.ResponseRecorder
	for i := 0; i < 4; i++ {
		last = httptest.NewRecorder()
		e.ServeHTTP(last, httptest.NewRequest(http.MethodPost, "/login", nil))
		if i < 3 {
			assert.Equal(t, http.StatusOK, last.Code, "request %d", i)
			assert.Equal(t, strconv.Itoa(2-i), last.Header().Get("X-RateLimit-Remaining"))
		}
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.NotEmpty(t, last.Header().Get("Retry-After"))
}

func TestDisabledMiddlewaresPassThrough(t *testing.T) {
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "ok") },
		NewRedisCache(config.CacheConfig{Enabled: true}, nil),
		NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil),
		NewCacheInvalidator(config.CacheConfig{Enabled: true}, nil))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}
