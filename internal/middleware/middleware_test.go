package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"collab-service/internal/identity"
	"collab-service/internal/observability"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAuthMiddleware(t *testing.T) {
	verifier := identity.NewVerifier("secret")
	const userID = "0190a1b2-0000-7000-8000-000000000001"
	token, err := verifier.Issue(identity.Identity{UserID: userID, Email: "alice@example.com"}, time.Hour)
	require.NoError(t, err)

	r := gin.New()
	r.Use(AuthMiddleware(verifier))
	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(UserIDKey), "email": c.GetString(EmailKey)})
	})

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			require.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				assert.Contains(t, rec.Body.String(), `"user_id":"`+userID+`"`)
			}
		})
	}
}

func TestRequestIDReusesHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	var fromCtx string
	r.GET("/", func(c *gin.Context) {
		fromCtx = observability.RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "req-1", fromCtx)
	assert.Equal(t, "req-1", rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	assert.Equal(t, rec.Header().Get(RequestIDHeader), fromCtx)
}

type memCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (m *memCounter) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	if m.counts == nil {
		m.counts = map[string]int64{}
	}
	m.counts[key]++
	return m.counts[key], nil
}

func limitedRouter(l *RateLimiter, userID string) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(UserIDKey, userID)
		c.Next()
	})
	r.POST("/post", l.Handler("post_message"), func(c *gin.Context) { c.Status(http.StatusCreated) })
	return r
}

func post(r *gin.Engine) int {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/post", nil))
	return rec.Code
}

func TestRateLimiterBlocksAfterLimit(t *testing.T) {
	counter := &memCounter{}
	limiter := NewRateLimiter(counter, 2, time.Minute, zap.NewNop())
	limiter.now = func() time.Time { return time.Unix(600, 0) }
	alice := limitedRouter(limiter, "alice")
	bob := limitedRouter(limiter, "bob")

	assert.Equal(t, http.StatusCreated, post(alice))
	assert.Equal(t, http.StatusCreated, post(alice))
	assert.Equal(t, http.StatusTooManyRequests, post(alice))
	assert.Equal(t, http.StatusCreated, post(bob))

	limiter.now = func() time.Time { return time.Unix(660, 0) }
	assert.Equal(t, http.StatusCreated, post(alice))
}

func TestRateLimiterDisabledOrFailing(t *testing.T) {
	disabled := NewRateLimiter(nil, 1, time.Minute, zap.NewNop())
	r := limitedRouter(disabled, "alice")
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusCreated, post(r))
	}

	failing := NewRateLimiter(&memCounter{err: assert.AnError}, 1, time.Minute, zap.NewNop())
	r = limitedRouter(failing, "alice")
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusCreated, post(r))
	}
}
