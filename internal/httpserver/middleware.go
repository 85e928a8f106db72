package httpserver

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	tokensvc "shoplite/internal/service/token"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	headerRequestID = "X-Request-Id"

	ctxRequestID = "request_id"
	ctxUserID    = "user_id"
	ctxIsAdmin   = "is_admin"
)

var localhostOrigin = regexp.MustCompile(`^https?://(localhost|127\.0\.0\.1)(:\d+)?$`)

// CORSConfig controls which browser origins may call the API.
type CORSConfig struct {
	Origins           []string
	AllowAnyLocalhost bool
}

func (c CORSConfig) allowed(origin string) bool {
	if c.AllowAnyLocalhost && localhostOrigin.MatchString(origin) {
		return true
	}
	for _, o := range c.Origins {
		if strings.TrimSpace(o) == origin {
			return true
		}
	}
	return false
}

// corsMiddleware rejects disallowed origins with 403. Requests without an
// Origin header are not CORS requests and pass through.
func corsMiddleware(cfg CORSConfig) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc:  cfg.allowed,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", headerRequestID},
		ExposeHeaders:    []string{"Content-Length", headerRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(ctxRequestID)),
			zap.String("client_ip", c.ClientIP()),
		}
		if uid := c.GetString(ctxUserID); uid != "" {
			fields = append(fields, zap.String("user_id", uid))
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Resource-Policy", "same-origin")
		c.Next()
	}
}

// requireAuth rejects the request with 401 unless it carries a valid bearer
// token. The verified user id is stored on the context.
func requireAuth(tokens tokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := tokens.Verify(tokensvc.BearerToken(c.GetHeader("Authorization")))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": authMessage(err)})
			return
		}
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxIsAdmin, claims.Admin)
		c.Next()
	}
}

// optionalAuth attaches the caller when the token verifies and otherwise
// continues unauthenticated.
func optionalAuth(tokens tokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := tokensvc.BearerToken(c.GetHeader("Authorization"))
		if raw != "" {
			if claims, err := tokens.Verify(raw); err == nil {
				c.Set(ctxUserID, claims.UserID)
				c.Set(ctxIsAdmin, claims.Admin)
			}
		}
		c.Next()
	}
}

// requireAdmin must run after requireAuth.
func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxUserID) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if !c.GetBool(ctxIsAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin only"})
			return
		}
		c.Next()
	}
}

func authMessage(err error) string {
	switch {
	case errors.Is(err, tokensvc.ErrMissingToken):
		return "Missing token"
	case errors.Is(err, tokensvc.ErrInvalidPayload):
		return "Invalid token payload"
	default:
		return "Invalid token"
	}
}
