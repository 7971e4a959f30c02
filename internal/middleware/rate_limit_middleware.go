package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"
)

// RateLimitConfig содержит настройки rate limiting
type RateLimitConfig struct {
	// MaxRequests - максимальное количество запросов за Window
	MaxRequests int
	// Window - временное окно для подсчёта запросов
	Window time.Duration
	// KeyPrefix - префикс для ключей в Redis
	KeyPrefix string
}

// StrictAuthRateLimitConfig - строгий лимит для входа команды (защита от перебора паролей)
func StrictAuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 5,
		Window:      1 * time.Minute,
		KeyPrefix:   "rl:auth:strict",
	}
}

// DefaultAnswerRateLimitConfig - лимит отправки ответов на команду
func DefaultAnswerRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 120,
		Window:      1 * time.Minute,
		KeyPrefix:   "rl:answers",
	}
}

// RateLimiter создаёт middleware для rate limiting на основе Redis.
// Если Redis не настроен или недоступен, используется локальный token bucket процесса.
type RateLimiter struct {
	redisClient redis.UniversalClient

	mu    sync.Mutex
	local map[string]*rate.Limiter
}

// NewRateLimiter создает новый RateLimiter; redisClient может быть nil
func NewRateLimiter(redisClient redis.UniversalClient) *RateLimiter {
	return &RateLimiter{
		redisClient: redisClient,
		local:       make(map[string]*rate.Limiter),
	}
}

// Limit ограничивает запросы по IP + endpoint path
func (rl *RateLimiter) Limit(cfg RateLimitConfig) gin.HandlerFunc {
	return rl.limitBy(cfg, func(c *gin.Context) string {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		return fmt.Sprintf("%s:%s:%s", cfg.KeyPrefix, c.ClientIP(), path)
	})
}

// LimitByTeam ограничивает запросы по команде из токена; применяется после RequireTeam
func (rl *RateLimiter) LimitByTeam(cfg RateLimitConfig) gin.HandlerFunc {
	return rl.limitBy(cfg, func(c *gin.Context) string {
		if teamID, ok := TeamIDFromContext(c); ok {
			return fmt.Sprintf("%s:team:%s", cfg.KeyPrefix, teamID)
		}
		return fmt.Sprintf("%s:ip:%s", cfg.KeyPrefix, c.ClientIP())
	})
}

func (rl *RateLimiter) limitBy(cfg RateLimitConfig, keyFn func(c *gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		count, retryAfter, err := rl.countRedis(ctx, key, cfg)
		if err != nil {
			if rl.redisClient != nil {
				log.Printf("[RateLimiter] Redis error for key %s: %v. Using local limiter.", key, err)
			}
			if !rl.allowLocal(key, cfg) {
				rl.reject(c, key, cfg, int(cfg.Window.Seconds()))
				return
			}
			c.Next()
			return
		}

		remaining := cfg.MaxRequests - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", cfg.MaxRequests))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", retryAfter))

		if int(count) > cfg.MaxRequests {
			rl.reject(c, key, cfg, retryAfter)
			return
		}
		c.Next()
	}
}

var errNoRedis = fmt.Errorf("redis is not configured")

// countRedis увеличивает счётчик окна в Redis и возвращает его значение и TTL в секундах
func (rl *RateLimiter) countRedis(ctx context.Context, key string, cfg RateLimitConfig) (int64, int, error) {
	if rl.redisClient == nil {
		return 0, 0, errNoRedis
	}
	count, err := rl.redisClient.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	// Первый запрос в окне - устанавливаем TTL
	if count == 1 {
		if err := rl.redisClient.Expire(ctx, key, cfg.Window).Err(); err != nil {
			log.Printf("[RateLimiter] Failed to set TTL for key %s: %v", key, err)
		}
	}
	ttl, _ := rl.redisClient.TTL(ctx, key).Result()
	retryAfter := int(ttl.Seconds())
	if retryAfter < 0 {
		retryAfter = int(cfg.Window.Seconds())
	}
	return count, retryAfter, nil
}

// allowLocal - token bucket с тем же средним темпом, что и окно Redis
func (rl *RateLimiter) allowLocal(key string, cfg RateLimitConfig) bool {
	rl.mu.Lock()
	limiter, ok := rl.local[key]
	if !ok {
		every := cfg.Window / time.Duration(maxInt(cfg.MaxRequests, 1))
		limiter = rate.NewLimiter(rate.Every(every), maxInt(cfg.MaxRequests, 1))
		rl.local[key] = limiter
	}
	rl.mu.Unlock()
	return limiter.Allow()
}

func (rl *RateLimiter) reject(c *gin.Context, key string, cfg RateLimitConfig, retryAfter int) {
	log.Printf("[RateLimiter] Rate limit exceeded for key %s. Limit=%d per %s", key, cfg.MaxRequests, cfg.Window)
	c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error":       "Too many requests. Please try again later.",
		"error_type":  "rate_limited",
		"retry_after": retryAfter,
	})
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
