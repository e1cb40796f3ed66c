package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/portrait-booth/internal/config"
	"github.com/iliyamo/portrait-booth/internal/model"
	"github.com/iliyamo/portrait-booth/internal/repository"
	"github.com/iliyamo/portrait-booth/internal/utils"
)

const secret = "test-secret"

type users map[uint64]model.User

func (u users) GetByID(_ context.Context, id uint64) (model.User, error) {
	if x, ok := u[id]; ok {
		return x, nil
	}
	return model.User{}, repository.ErrUserNotFound
}

func bearer(t *testing.T, id uint64, role model.Role) string {
	t.Helper()
	at, err := utils.NewAccessToken(secret, id, role, 5)
	require.NoError(t, err)
	return "Bearer " + at.Token
}

func protected(us users, mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	chain := append([]echo.MiddlewareFunc{JWTAuth(secret), CurrentUser(us)}, mw...)
	e.GET("/x", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"role": UserFrom(c).Role})
	}, chain...)
	return e
}

func do(e *echo.Echo, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthChain(t *testing.T) {
	us := users{
		1: {ID: 1, Role: model.RoleCustomer},
		2: {ID: 2, Role: model.RoleManager},
		3: {ID: 3, Role: model.RoleCashier, Status: model.UserDisabled},
	}
	e := protected(us, Require(model.ActionViewReports))

	assert.Equal(t, http.StatusUnauthorized, do(e, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, "Bearer nope").Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, bearer(t, 99, model.RoleManager)).Code)
	assert.Equal(t, http.StatusForbidden, do(e, bearer(t, 3, model.RoleCashier)).Code)
	assert.Equal(t, http.StatusForbidden, do(e, bearer(t, 1, model.RoleCustomer)).Code)

	rec := do(e, bearer(t, 2, model.RoleManager))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"role":"Manager"}`, rec.Body.String())
}

func TestRoleComesFromDatabase(t *testing.T) {
	// token still says Manager, the row says Customer
	us := users{2: {ID: 2, Role: model.RoleCustomer}}
	e := protected(us, Require(model.ActionViewReports))
	assert.Equal(t, http.StatusForbidden, do(e, bearer(t, 2, model.RoleManager)).Code)
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestTokenBucket(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip_route",
		Prefix:         "rl",
	}
	e := echo.New()
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, rdb))

	codes := []int{}
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	// another client has its own bucket
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTokenBucketWithoutRedis(t *testing.T) {
	mw := NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil)
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, mw)
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(e, "").Code)
	}
}

func TestRedisCache(t *testing.T) {
	mr, rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		Prefix:       "cache:reports",
		MaxBodyBytes: 1 << 20,
	}
	calls := 0
	e := echo.New()
	e.GET("/x", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"n": calls})
	}, NewRedisCache(cfg, rdb))

	first := do(e, "")
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := do(e, "")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)

	mr.FastForward(2 * time.Minute)
	third := do(e, "")
	assert.Equal(t, "MISS", third.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)
}

func TestPayloadRoundTrip(t *testing.T) {
	h := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, h, []byte(`{"a":1}`))
	require.NoError(t, err)
	status, hdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", hdr.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 0})
	assert.False(t, ok)
}
