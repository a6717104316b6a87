package middleware

import (
	"bytes"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"revenue-ledger/internal/core/domain"
	"revenue-ledger/internal/core/ports"
	"revenue-ledger/pkg/apperror"
	"revenue-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	// Header names for webhook HMAC authentication
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"

	// Context keys
	CtxActor = "actor"
)

// WebhookAuth verifies the HMAC-SHA256 signature of payment gateway
// webhooks. Pipeline: check timestamp drift -> verify signature over the
// canonical string METHOD|PATH|TIMESTAMP|BODY.
func WebhookAuth(sigSvc ports.SignatureService, secret string, maxDrift time.Duration, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		signature := c.GetHeader(HeaderSignature)
		timestampStr := c.GetHeader(HeaderTimestamp)

		if signature == "" || timestampStr == "" {
			response.Error(c, apperror.ErrInvalidSignature())
			c.Abort()
			return
		}

		timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
		if err != nil {
			response.Error(c, apperror.ErrTimestampExpired())
			c.Abort()
			return
		}
		now := time.Now().Unix()
		if math.Abs(float64(now-timestamp)) > maxDrift.Seconds() {
			response.Error(c, apperror.ErrTimestampExpired())
			c.Abort()
			return
		}

		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.Error(c, apperror.Validation("cannot read request body"))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		canonical := sigSvc.BuildCanonicalString(
			c.Request.Method,
			c.Request.URL.Path,
			timestamp,
			string(bodyBytes),
		)

		if !sigSvc.Verify(secret, canonical, signature) {
			log.Warn().Str("path", c.Request.URL.Path).Msg("webhook signature verification failed")
			response.Error(c, apperror.ErrInvalidSignature())
			c.Abort()
			return
		}

		c.Next()
	}
}

// JWTAuth validates bearer tokens and stores the resolved actor in the
// request context.
func JWTAuth(tokenSvc ports.TokenService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		actor, err := tokenSvc.Validate(authHeader[7:])
		if err != nil {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		c.Set(CtxActor, *actor)
		c.Next()
	}
}

// RequireStaff aborts requests from non-staff actors. Must run after
// JWTAuth.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFromContext(c)
		if !ok || !actor.IsStaff() {
			response.Error(c, apperror.ErrUnauthorized())
			c.Abort()
			return
		}
		c.Next()
	}
}

// ActorFromContext returns the authenticated actor set by JWTAuth.
func ActorFromContext(c *gin.Context) (domain.Actor, bool) {
	v, exists := c.Get(CtxActor)
	if !exists {
		return domain.Actor{}, false
	}
	actor, ok := v.(domain.Actor)
	return actor, ok
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": "SYS_001",
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}
