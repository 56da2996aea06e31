package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAdminRouter(token string) *gin.Engine {
	r := gin.New()
	r.POST("/api/v2/admin", AdminAuth(token), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"admin": IsAdmin(c)})
	})
	return r
}

func TestAdminAuthOpenWhenUnset(t *testing.T) {
	r := newAdminRouter("")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v2/admin", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminAuthRejectsWrongToken(t *testing.T) {
	r := newAdminRouter("secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v2/admin", nil)
	req.Header.Set("Authorization", "Bearer nope")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuthAcceptsHeaderAndQuery(t *testing.T) {
	r := newAdminRouter("secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v2/admin", nil)
	req.Header.Set("Authorization", "Bearer secret")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v2/admin?token=secret", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNormalizeToken(t *testing.T) {
	assert.Equal(t, "abc", NormalizeToken("  abc "))
	assert.Equal(t, "abc", NormalizeToken("Bearer abc"))
	assert.Equal(t, "abc", NormalizeToken("bearer   abc"))
	assert.Equal(t, "", NormalizeToken("   "))
}

func TestIdempotenceBlocksDuplicatePost(t *testing.T) {
	r := gin.New()
	r.Use(Idempotence())
	r.POST("/api/v2/compare", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": 1})
	})

	send := func(body string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v2/compare", strings.NewReader(body))
		req.Header.Set("User-Agent", "test-agent")
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send(`{"a":"x","b":"y"}`))
	assert.Equal(t, http.StatusConflict, send(`{"a":"x","b":"y"}`))
	assert.Equal(t, http.StatusOK, send(`{"a":"x","b":"z"}`))
}

func TestIdempotenceSkipsGetAndHTMLForms(t *testing.T) {
	r := gin.New()
	r.Use(Idempotence())
	r.GET("/api/v2/syllabi", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/upload", func(c *gin.Context) { c.Status(http.StatusSeeOther) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/syllabi", nil))
		require.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("same-body"))
		req.Header.Set("User-Agent", "test-agent")
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusSeeOther, w.Code)
	}
}

func TestRateLimiterCountsPerWindow(t *testing.T) {
	limiter := &rateLimiter{counts: make(map[string]int)}
	now := time.Unix(1700000000, 0)

	for i := 1; i <= rateLimitMax; i++ {
		assert.Equal(t, i, limiter.hit("192.0.2.1", now))
	}
	assert.Equal(t, rateLimitMax+1, limiter.hit("192.0.2.1", now))
	assert.Equal(t, 1, limiter.hit("192.0.2.2", now))

	// A new second resets every counter.
	assert.Equal(t, 1, limiter.hit("192.0.2.1", now.Add(time.Second)))
}

func TestRateLimitAllowsNormalTraffic(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(nil))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.1:9999"
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}
}
