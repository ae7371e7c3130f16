package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/socialzwater/backend/internal/logger"
)

const (
	ctxOperatorID = "operator_id"
	ctxClaims     = "claims"
)

// AuthMiddleware returns a Gin middleware for JWT authentication
func AuthMiddleware(authService *AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
			})
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization header format",
			})
			return
		}

		claims, err := authService.ValidateAccessToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}

		c.Set(ctxOperatorID, claims.OperatorID)
		c.Set(ctxClaims, claims)
		c.Request = c.Request.WithContext(logger.WithOperatorID(c.Request.Context(), claims.OperatorID))

		c.Next()
	}
}

// RateLimitMiddleware limits requests per client IP and route group
func RateLimitMiddleware(limiter *RateLimiter, scope string, config RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := limiter.CheckIP(c.Request.Context(), scope, c.ClientIP(), config)
		if err != nil {
			// Fail open: redis trouble must not take the landing page down
			logger.Warn().Err(err).Str("scope", scope).Msg("Rate limit check failed")
			c.Next()
			return
		}

		limiter.SetRateLimitHeaders(c.Writer, result)

		if !result.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests. Please try again shortly.",
				"retry_after": result.RetryAfter.Seconds(),
			})
			return
		}

		c.Next()
	}
}

// GetOperatorID extracts the authenticated operator from gin context
func GetOperatorID(c *gin.Context) (uint, bool) {
	v, exists := c.Get(ctxOperatorID)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// GetClaims extracts claims from gin context
func GetClaims(c *gin.Context) (*Claims, bool) {
	claims, exists := c.Get(ctxClaims)
	if !exists {
		return nil, false
	}
	cl, ok := claims.(*Claims)
	return cl, ok
}
