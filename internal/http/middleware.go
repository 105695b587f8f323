package http

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"acquisitions-api/internal/auth"
	"acquisitions-api/internal/domain"
	"acquisitions-api/internal/ratelimit"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "acquisitions.request_id"
	identityKey     = "acquisitions.identity"
	claimsKey       = "acquisitions.session_claims"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := h.logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"client_ip":  c.ClientIP(),
			"request_id": c.GetString(requestIDKey),
		})
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Info("request served")
		}
	}
}

func (h *Handler) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		h.metrics.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

func (h *Handler) corsMiddleware() gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader, "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(h.origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = h.origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

// rateLimit applies the per-role allowance. Probe endpoints are exempt.
func (h *Handler) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.URL.Path {
		case "/health", "/metrics":
			c.Next()
			return
		}

		role := h.sessionRole(c)
		decision := h.limiter.Allow(role, c.ClientIP())
		if decision.Allowed {
			c.Next()
			return
		}

		h.metrics.RecordRateLimited(role)
		if decision.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(decision.RetryAfter.Seconds()))))
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"message": "Too many requests",
			"error":   "RATE_LIMITED",
		})
	}
}

// sessionRole resolves the limiter role from a valid session cookie, falling back to guest.
// Verified claims are kept on the context for Authenticate.
func (h *Handler) sessionRole(c *gin.Context) string {
	token, ok := h.cookies.Extract(c.Request)
	if !ok || h.verifier == nil {
		return ratelimit.Guest
	}
	claims, err := h.verifier.Verify(token)
	if err != nil {
		return ratelimit.Guest
	}
	c.Set(claimsKey, claims)
	return string(claims.Role)
}

// Authenticate requires a valid session cookie and stores the caller identity on the context.
func (h *Handler) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if v, found := c.Get(claimsKey); found {
			if claims, ok := v.(auth.Claims); ok {
				c.Set(identityKey, auth.Identity(claims))
				c.Next()
				return
			}
		}

		token, ok := h.cookies.Extract(c.Request)
		identity, err := auth.Authenticate(token, ok, h.verifier)
		if err != nil {
			switch {
			case !ok:
				h.metrics.RecordAccessDenied("missing_token")
				h.logger.WithField("path", c.Request.URL.Path).Debug("access token missing")
				respondError(c, http.StatusUnauthorized, "Access token required", codeUnauthorized)
			case errors.Is(err, auth.ErrTokenExpired):
				h.metrics.RecordAccessDenied("expired_token")
				h.logger.WithError(err).Info("authentication failed")
				respondError(c, http.StatusUnauthorized, "Invalid or expired token", codeUnauthorized)
			default:
				h.metrics.RecordAccessDenied("invalid_token")
				h.logger.WithError(err).Warn("authentication failed")
				respondError(c, http.StatusUnauthorized, "Invalid or expired token", codeUnauthorized)
			}
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// RequireRole rejects callers whose identity does not satisfy role. It must run after Authenticate.
func (h *Handler) RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := identityFrom(c)
		if err := auth.RequireRole(identity, role); err != nil {
			if errors.Is(err, auth.ErrUnauthorized) {
				h.metrics.RecordAccessDenied("unauthenticated")
				respondError(c, http.StatusUnauthorized, "Authentication required", codeUnauthorized)
				return
			}
			h.metrics.RecordAccessDenied("forbidden")
			h.logger.WithFields(logrus.Fields{
				"user_id": identity.ID,
				"role":    identity.Role,
				"path":    c.Request.URL.Path,
			}).Warn("role check failed")
			respondError(c, http.StatusForbidden, roleMessage(role), codeForbidden)
			return
		}
		c.Next()
	}
}

func roleMessage(role domain.Role) string {
	if role == domain.RoleAdmin {
		return "Admin access required"
	}
	return "Insufficient permissions"
}

func identityFrom(c *gin.Context) *auth.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, ok := v.(auth.Identity)
	if !ok {
		return nil
	}
	return &identity
}
