package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nudge/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	newReq := func(ip string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		return req
	}

	assert.Equal(t, http.StatusOK, serve(r, newReq("1.1.1.1")).Code)
	assert.Equal(t, http.StatusOK, serve(r, newReq("1.1.1.1")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, newReq("1.1.1.1")).Code)
	assert.Equal(t, http.StatusOK, serve(r, newReq("2.2.2.2")).Code)
}

func TestGetClientIP(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "192.0.2.1:4321"
	assert.Equal(t, "192.0.2.1", getClientIP(c))

	c.Request.Header.Set("X-Real-IP", " 198.51.100.7 ")
	assert.Equal(t, "198.51.100.7", getClientIP(c))

	c.Request.Header.Set("X-Forwarded-For", "203.0.113.9, 198.51.100.7")
	assert.Equal(t, "203.0.113.9", getClientIP(c))
}

func TestJWTAuthAdminMiddleware(t *testing.T) {
	const secret = "s3cret"
	r := gin.New()
	r.Use(JWTAuthAdminMiddleware(secret))
	r.POST("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("adminSubject")) })

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer nonsense")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	tok, err := utils.GenerateAdminToken(secret, "ops", time.Minute)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ops", w.Body.String())
}

func TestRequestLogger(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(zap.NewNop()))
	r.GET("/", func(c *gin.Context) {
		_, ok := c.Get("logger")
		assert.True(t, ok)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	w := serve(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "abc", w.Header().Get("X-Request-ID"))
}
