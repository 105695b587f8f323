package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"acquisitions-api/internal/auth"
	"acquisitions-api/internal/domain"
	"acquisitions-api/internal/metrics"
	"acquisitions-api/internal/ratelimit"
	"acquisitions-api/internal/service"
)

// Options collects the collaborators of a Handler.
type Options struct {
	Auth     service.AuthService
	Users    service.UserService
	Cookies  *auth.CookieTransport
	Verifier auth.Verifier
	Logger   logrus.FieldLogger
	Metrics  *metrics.Metrics
	// Limiter is optional; nil disables rate limiting.
	Limiter *ratelimit.Limiter
	// AllowedOrigins lists CORS origins allowed to send credentials. Empty allows any origin without credentials.
	AllowedOrigins []string
	// TrustedProxies lists proxy IPs or CIDRs whose forwarding headers are honored. Empty trusts none.
	TrustedProxies []string
	// ServeMetrics mounts GET /metrics on the API router.
	ServeMetrics bool
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	auth         service.AuthService
	users        service.UserService
	cookies      *auth.CookieTransport
	verifier     auth.Verifier
	logger       logrus.FieldLogger
	metrics      *metrics.Metrics
	limiter      *ratelimit.Limiter
	origins      []string
	proxies      []string
	serveMetrics bool

	startedAt time.Time
	now       func() time.Time
}

func NewHandler(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	cookies := opts.Cookies
	if cookies == nil {
		cookies = auth.NewCookieTransport(auth.CookieConfig{})
	}
	return &Handler{
		auth:         opts.Auth,
		users:        opts.Users,
		cookies:      cookies,
		verifier:     opts.Verifier,
		logger:       logger,
		metrics:      m,
		limiter:      opts.Limiter,
		origins:      opts.AllowedOrigins,
		proxies:      opts.TrustedProxies,
		serveMetrics: opts.ServeMetrics,
		startedAt:    time.Now(),
		now:          time.Now,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) error {
	// client IPs feed the rate limiter; forwarding headers only count from known proxies
	var proxies []string
	if len(h.proxies) > 0 {
		proxies = h.proxies
	}
	if err := router.SetTrustedProxies(proxies); err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}

	router.Use(requestID(), h.requestLogger(), h.observe(), h.corsMiddleware())
	if h.limiter != nil {
		router.Use(h.rateLimit())
	}

	router.GET("/", h.root)
	router.GET("/health", h.health)
	if h.serveMetrics {
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}
	router.GET("/api", h.apiStatus)

	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		authGroup.POST("/sign-up", h.signUp)
		authGroup.POST("/sign-in", h.signIn)
		authGroup.POST("/sign-out", h.signOut)

		users := api.Group("/users", h.Authenticate())
		users.GET("", h.RequireRole(domain.RoleAdmin), h.listUsers)
		users.GET("/:id", h.RequireRole(domain.RoleAdmin), h.getUser)
		users.PUT("/:id", h.updateUser)
		users.DELETE("/:id", h.RequireRole(domain.RoleAdmin), h.deleteUser)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})
	return nil
}

func (h *Handler) root(c *gin.Context) {
	c.String(http.StatusOK, "Hello from acquisitions")
}

func (h *Handler) health(c *gin.Context) {
	now := h.now()
	c.JSON(http.StatusOK, gin.H{
		"status":     "Ok",
		"message":    "Health is perfect",
		"timestamps": now.UTC().Format(time.RFC3339),
		"uptime":     now.Sub(h.startedAt).Seconds(),
	})
}

func (h *Handler) apiStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Acquisition running perfectly"})
}
