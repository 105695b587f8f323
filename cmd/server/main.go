package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"acquisitions-api/internal/auth"
	"acquisitions-api/internal/config"
	apphttp "acquisitions-api/internal/http"
	"acquisitions-api/internal/metrics"
	"acquisitions-api/internal/ratelimit"
	"acquisitions-api/internal/repository"
	"acquisitions-api/internal/repository/memory"
	"acquisitions-api/internal/repository/postgres"
	"acquisitions-api/internal/repository/sqlite"
	"acquisitions-api/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	if cfg.IsProduction() {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users, closeDB, err := buildUserRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup user repository: %v", err)
	}
	defer closeDB()

	if err := users.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}

	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	tokens := auth.NewTokenManager(auth.TokenConfig{
		Secret: cfg.Auth.JWTSecret,
		TTL:    cfg.Auth.TokenTTL,
	})
	cookies := auth.NewCookieTransport(auth.CookieConfig{
		Name:   cfg.Auth.CookieName,
		MaxAge: cfg.Auth.CookieMaxAge,
		Secure: cfg.IsProduction(),
	})
	m := metrics.New()

	authService, err := service.NewAuthService(service.AuthConfig{
		Users:        users,
		Hasher:       hasher,
		Issuer:       tokens,
		Logger:       logger,
		Recorder:     m,
		QueryTimeout: cfg.Database.QueryTimeout,
	})
	if err != nil {
		logger.Fatalf("setup auth service: %v", err)
	}
	userService := service.NewUserService(users, hasher, logger, cfg.Database.QueryTimeout)

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(ratelimit.Config{Policies: map[string]ratelimit.Policy{
			ratelimit.Guest: {Requests: cfg.RateLimit.Guest, Period: time.Minute},
			"user":          {Requests: cfg.RateLimit.User, Period: time.Minute},
			"admin":         {Requests: cfg.RateLimit.Admin, Period: time.Minute},
		}})
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(apphttp.Options{
		Auth:           authService,
		Users:          userService,
		Cookies:        cookies,
		Verifier:       tokens,
		Logger:         logger,
		Metrics:        m,
		Limiter:        limiter,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
		ServeMetrics:   cfg.Metrics.Addr == "",
	})
	if err := handler.RegisterRoutes(router); err != nil {
		logger.Fatalf("register routes: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s (environment %s)", cfg.Server.Addr, cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	var metricsSrv *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		metricsSrv = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Infof("metrics listening on %s", cfg.Metrics.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatalf("metrics server: %v", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("metrics shutdown: %v", err)
		}
	}

	logger.Info("bye")
}

func buildUserRepository(ctx context.Context, cfg config.Config, logger *logrus.Logger) (repository.UserRepository, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		logger.Infof("using sqlite database %s", cfg.Database.Path)
		return sqlite.NewUserRepository(db), closer(db, logger), nil
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		logger.Info("using postgres database")
		return postgres.NewUserRepository(db), closer(db, logger), nil
	case config.DriverMemory:
		logger.Warn("using in-memory user repository, data is lost on restart")
		return memory.NewUserRepository(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func closer(db *sql.DB, logger *logrus.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			logger.Warnf("close database: %v", err)
		}
	}
}
