package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/crusade-registration/internal/config"
	"github.com/iliyamo/crusade-registration/internal/model"
	"github.com/iliyamo/crusade-registration/internal/repository"
	"github.com/iliyamo/crusade-registration/internal/response"
	"github.com/iliyamo/crusade-registration/internal/utils"
)

type stubUsers map[uint64]model.User

func (s stubUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := s[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Message
}

func whoami(c echo.Context) error {
	if u := CurrentUser(c); u != nil {
		return c.String(http.StatusOK, u.FullName)
	}
	return c.String(http.StatusOK, "anonymous")
}

func authServer(tokens *utils.TokenService, mode AuthMode) *echo.Echo {
	e := echo.New()
	users := stubUsers{7: {ID: 7, FullName: "Grace Okafor", Email: "grace@example.com"}}
	e.GET("/me", whoami, Authenticate(tokens, users, mode, zerolog.Nop()))
	return e
}

func get(e *echo.Echo, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate(t *testing.T) {
	tokens := utils.NewTokenService("secret", "iss", "aud", time.Hour, time.Minute)
	good, err := tokens.Issue(utils.Identity{UserID: 7, Email: "grace@example.com"})
	require.NoError(t, err)
	ghost, err := tokens.Issue(utils.Identity{UserID: 99})
	require.NoError(t, err)

	cases := []struct {
		name   string
		mode   AuthMode
		token  string
		status int
		body   string
	}{
		{"required without token", Required, "", http.StatusUnauthorized, "No token provided"},
		{"required with garbage", Required, "not-a-jwt", http.StatusUnauthorized, "Invalid or expired token"},
		{"required with unknown user", Required, ghost, http.StatusUnauthorized, "User not found"},
		{"required with valid token", Required, good, http.StatusOK, "Grace Okafor"},
		{"optional without token", Optional, "", http.StatusOK, "anonymous"},
		{"optional with garbage", Optional, "not-a-jwt", http.StatusUnauthorized, "Invalid or expired token"},
		{"optional with valid token", Optional, good, http.StatusOK, "Grace Okafor"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := get(authServer(tokens, tc.mode), "/me", tc.token)
			require.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, tc.body, rec.Body.String())
				return
			}
			assert.Equal(t, tc.body, message(t, rec))
		})
	}
}

func TestAuthenticateRefreshesTokenNearExpiry(t *testing.T) {
	now := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	tokens := utils.NewTokenService("secret", "iss", "aud", 10*time.Hour, 2*time.Hour, utils.WithClock(clock))
	tok, err := tokens.Issue(utils.Identity{UserID: 7})
	require.NoError(t, err)

	rec := get(authServer(tokens, Required), "/me", tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(response.NewTokenHeader))

	now = now.Add(9 * time.Hour)
	rec = get(authServer(tokens, Required), "/me", tok)
	require.Equal(t, http.StatusOK, rec.Code)
	fresh := rec.Header().Get(response.NewTokenHeader)
	require.NotEmpty(t, fresh)
	id, err := tokens.Verify(fresh)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id.UserID)
}

func TestBearer(t *testing.T) {
	tok, ok := bearer("bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	_, ok = bearer("Bearer   ")
	assert.False(t, ok)
	_, ok = bearer("Basic abc")
	assert.False(t, ok)
}

func TestTokenBucketFallsBackToLocalLimiter(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            time.Hour,
		KeyStrategy:    "ip",
		Prefix:         "test:rl",
	}
	e := echo.New()
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") },
		NewTokenBucket(cfg, nil, "api", zerolog.Nop()))

	for i := 0; i < 2; i++ {
		rec := get(e, "/ping", "")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := get(e, "/ping", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many requests, please try again later", message(t, rec))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestTokenBucketDisabled(t *testing.T) {
	e := echo.New()
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil, "api", zerolog.Nop()))
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusNoContent, get(e, "/ping", "").Code)
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.9")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/v1/auth/login")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_route"}
	assert.Equal(t, "rl:ip:10.0.0.9:route:POST /api/v1/auth/login", buildRateKey(cfg, c))

	c.Set(userKey, &model.User{ID: 12})
	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:12", buildRateKey(cfg, c))
}

func TestAdminSessionRoundTrip(t *testing.T) {
	sessions := NewAdminSessions("0123456789abcdef0123456789abcdef", false)
	e := echo.New()
	e.POST("/login", func(c echo.Context) error {
		if err := sessions.Login(c, model.Admin{ID: 1, Username: "admin", Name: "Administrator", Role: "super_admin"}); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/me", func(c echo.Context) error {
		return c.String(http.StatusOK, CurrentAdmin(c).Username)
	}, sessions.RequireAdmin())

	rec := get(e, "/me", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Admin login required", message(t, rec))

	login := httptest.NewRecorder()
	e.ServeHTTP(login, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusNoContent, login.Code)
	cookies := login.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, AdminCookie, cookies[0].Name)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", rec.Body.String())
}

func TestAdminSessionExpires(t *testing.T) {
	s := NewAdminSessions("0123456789abcdef0123456789abcdef", false)
	issued := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return issued }

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	require.NoError(t, s.Login(c, model.Admin{ID: 1, Username: "admin"}))
	cookie := rec.Result().Cookies()[0]

	s.now = func() time.Time { return issued.Add(25 * time.Hour) }
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	_, err := s.admin(e.NewContext(req, httptest.NewRecorder()))
	assert.ErrorIs(t, err, errNoAdminSession)
}

func TestCSRF(t *testing.T) {
	e := echo.New()
	g := e.Group("/admin", CSRF([]byte("0123456789abcdef0123456789abcdef"), false))
	g.GET("/csrf", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	g.POST("/thing", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/csrf", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	token := rec.Header().Get(CSRFHeader)
	require.NotEmpty(t, token)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/thing", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "CSRF token validation failed", message(t, rec))

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/admin/thing", nil)
	req.Header.Set(CSRFHeader, token)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	e := echo.New()
	e.Use(RequestLogger(log))
	e.GET("/events/:id", func(c echo.Context) error {
		return c.String(http.StatusOK, RequestID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/events/3", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "abc-123", rec.Body.String())

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "abc-123", line["request_id"])
	assert.Equal(t, "/events/:id", line["route"])
	assert.EqualValues(t, 200, line["status"])

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events/4", nil))
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
}

func TestCacheKeyStrategies(t *testing.T) {
	e := echo.New()
	ctx := func(target string) echo.Context {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/api/v1/categories")
		return c
	}
	cfg := config.CacheConfig{Prefix: "crusades:cache", KeyStrategy: "route_query"}
	a := cacheKeyFrom(cfg, ctx("/api/v1/categories?x=1"))
	b := cacheKeyFrom(cfg, ctx("/api/v1/categories?x=2"))
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "crusades:cache:"))

	cfg.KeyStrategy = "route"
	assert.Equal(t, cacheKeyFrom(cfg, ctx("/api/v1/categories?x=1")), cacheKeyFrom(cfg, ctx("/api/v1/categories?x=2")))
}

func TestCaptureWriterStopsAtLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	_, _ = cw.Write([]byte("abc"))
	assert.False(t, cw.truncated)
	_, _ = cw.Write([]byte("def"))
	assert.True(t, cw.truncated)
	assert.Equal(t, "abc", cw.buf.String())
	assert.Equal(t, "abcdef", rec.Body.String())
}
