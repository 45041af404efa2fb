package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/oauth2"

	"bookhub/oauthbind/internal/provider"
	jwtpkg "bookhub/oauthbind/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type namedProvider string

func (p namedProvider) Name() string        { return string(p) }
func (p namedProvider) DisplayName() string { return string(p) }

func (p namedProvider) AuthCodeURL(state string) string {
	return "https://example/authorize?state=" + state
}

func (p namedProvider) Exchange(context.Context, string) (*oauth2.Token, error) {
	return nil, nil
}

func (p namedProvider) FetchUserID(context.Context, *oauth2.Token) (string, error) {
	return "", nil
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func claimsEcho(c *gin.Context) {
	v, ok := c.Get(ContextKeyUserClaims)
	if !ok {
		c.String(http.StatusOK, "anonymous")
		return
	}
	c.String(http.StatusOK, v.(*jwtpkg.Claims).Subject)
}

func TestJWTAuth(t *testing.T) {
	manager := jwtpkg.NewManager("k", "oauthbind", time.Minute, time.Hour)
	userID := uuid.New()
	access, err := manager.GenerateAccessToken(userID)
	require.NoError(t, err)
	refresh, _, err := manager.GenerateRefreshToken(userID)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/p", JWTAuth(manager, "access"), claimsEcho)

	tests := []struct {
		name   string
		header string
		cookie string
		want   int
	}{
		{name: "missing", want: http.StatusUnauthorized},
		{name: "bad scheme", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer abc", want: http.StatusUnauthorized},
		{name: "refresh token", header: "Bearer " + refresh, want: http.StatusUnauthorized},
		{name: "header", header: "Bearer " + access, want: http.StatusOK},
		{name: "cookie", cookie: access, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/p", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "access", Value: tt.cookie})
			}
			rec := serve(r, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, userID.String(), rec.Body.String())
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	manager := jwtpkg.NewManager("k", "oauthbind", time.Minute, time.Hour)
	userID := uuid.New()
	access, err := manager.GenerateAccessToken(userID)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/p", OptionalAuth(manager, "access"), claimsEcho)

	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	assert.Equal(t, "anonymous", serve(r, req).Body.String())

	req = httptest.NewRequest(http.MethodGet, "/p", nil)
	req.AddCookie(&http.Cookie{Name: "access", Value: "expired"})
	assert.Equal(t, "anonymous", serve(r, req).Body.String())

	req = httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	assert.Equal(t, userID.String(), serve(r, req).Body.String())
}

func TestRequireProvider(t *testing.T) {
	registry, err := provider.NewRegistry("", namedProvider("github"))
	require.NoError(t, err)

	r := gin.New()
	r.GET("/oauth2/:provider", RequireProvider(registry), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/oauth2/github", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/oauth2/google", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/oauth2/google", nil)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	rec = serve(r, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"code":404,"message":"not found"}`, rec.Body.String())
}

func TestWantsJSON(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    bool
	}{
		{name: "browser", headers: map[string]string{"Accept": "text/html,application/xhtml+xml,application/json;q=0.9"}, want: false},
		{name: "xhr", headers: map[string]string{"X-Requested-With": "XMLHttpRequest"}, want: true},
		{name: "json", headers: map[string]string{"Accept": "application/json"}, want: true},
		{name: "none", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, WantsJSON(c))
		})
	}
}

func TestRecoveryAndRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	r := gin.New()
	r.Use(RequestLogger(logger), Recovery(logger))
	r.GET("/boom", func(*gin.Context) { panic("boom") })
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"code":500,"message":"internal server error"}`, rec.Body.String())

	serve(r, httptest.NewRequest(http.MethodGet, "/ok", nil))

	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
	requests := logs.FilterMessage("request").All()
	require.Len(t, requests, 2)
	assert.Equal(t, zap.ErrorLevel, requests[0].Level)
	assert.Equal(t, int64(http.StatusNoContent), requests[1].ContextMap()["status"])
}
