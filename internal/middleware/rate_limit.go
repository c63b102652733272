package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"collab-service/internal/apperr"
	"collab-service/internal/config"
	"collab-service/internal/observability"
)

// Counter increments a windowed counter and returns its new value.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter is a fixed-window Counter backed by INCR and EXPIRE.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisClient returns a client for cfg, or nil when redis is disabled.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	if !cfg.Enabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (r *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// RateLimiter allows each user at most limit requests per window on a route.
type RateLimiter struct {
	counter Counter
	limit   int
	window  time.Duration
	log     *zap.Logger
	now     func() time.Time
}

// NewRateLimiter returns a limiter. A nil counter or a non-positive limit
// yields a limiter that lets everything through.
func NewRateLimiter(counter Counter, limit int, window time.Duration, logger *zap.Logger) *RateLimiter {
	if window < time.Second {
		window = time.Minute
	}
	return &RateLimiter{counter: counter, limit: limit, window: window, log: logger, now: time.Now}
}

// Handler limits requests per authenticated user. Counter failures let the
// request through.
func (l *RateLimiter) Handler(route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || l.counter == nil || l.limit <= 0 {
			c.Next()
			return
		}
		userID := c.GetString(UserIDKey)
		bucket := l.now().Unix() / int64(l.window/time.Second)
		key := fmt.Sprintf("ratelimit:%s:%s:%d", route, userID, bucket)

		n, err := l.counter.Incr(c.Request.Context(), key, l.window)
		if err != nil {
			l.log.Warn("rate limiter unavailable", zap.Error(err), zap.String("route", route))
			c.Next()
			return
		}
		if n > int64(l.limit) {
			observability.IncRateLimited(route)
			c.Header("Retry-After", strconv.Itoa(int(l.window/time.Second)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests",
				"code":  apperr.RateLimited,
			})
			return
		}
		c.Next()
	}
}
