package router

import (
	"crypto/subtle"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kmledger/kmledger/internal/domain/errs"
	"github.com/kmledger/kmledger/internal/ratelimit"
	"github.com/kmledger/kmledger/internal/server/handlers"
	"github.com/kmledger/kmledger/internal/service/owners"
)

// Header names read by the middlewares.
const (
	APIKeyHeader     = "X-API-Key"
	AdminTokenHeader = "X-Admin-Token"
)

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if id := c.GetString(handlers.OwnerIDKey); id != "" {
			fields = append(fields, zap.String("owner_id", id))
		}
		logger.Info("request completed", fields...)
	}
}

func adminMiddleware(token string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(AdminTokenHeader)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			handlers.RespondError(c, logger, errs.Unauthorized("invalid admin token"))
			return
		}
		c.Next()
	}
}

func authMiddleware(svc *owners.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(APIKeyHeader))
		if key == "" {
			handlers.RespondError(c, logger, errs.Unauthorized("missing api key"))
			return
		}
		owner, err := svc.Authenticate(c.Request.Context(), key)
		if err != nil {
			handlers.RespondError(c, logger, err)
			return
		}
		c.Set(handlers.OwnerIDKey, owner.ID)
		c.Next()
	}
}

// rateLimitMiddleware must run after authMiddleware. Limiter failures let
// the request through.
func rateLimitMiddleware(limiter ratelimit.Limiter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetString(handlers.OwnerIDKey)
		res, err := limiter.Allow(c.Request.Context(), id)
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.String("owner_id", id), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
		if !res.Allowed {
			handlers.RespondError(c, logger, errs.RateLimited(res.RetryAfter))
			return
		}
		c.Next()
	}
}
