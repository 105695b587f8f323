package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr           string
		TrustedProxies []string
	}
	Metrics struct {
		// Addr is the dedicated metrics listener. Empty serves /metrics on the API listener.
		Addr string
	}
	Environment string
	Log         struct {
		Level string
	}
	Auth struct {
		JWTSecret    string
		TokenTTL     time.Duration
		CookieName   string
		CookieMaxAge time.Duration
		BcryptCost   int
	}
	Database struct {
		Driver       string
		Path         string
		DSN          string
		QueryTimeout time.Duration
	}
	CORS struct {
		AllowedOrigins []string
	}
	RateLimit struct {
		Enabled bool
		Guest   int
		User    int
		Admin   int
	}
}

// IsProduction reports whether the service runs in the production environment.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	_ = godotenv.Load() // optional .env, never overrides the environment

	v := viper.New()
	v.SetEnvPrefix("ACQUISITIONS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:3000")
	v.SetDefault("server.trustedproxies", []string{})
	v.SetDefault("metrics.addr", "127.0.0.1:9464")
	v.SetDefault("environment", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttl", "24h")
	v.SetDefault("auth.cookiename", "token")
	v.SetDefault("auth.cookiemaxage", "15m")
	v.SetDefault("auth.bcryptcost", bcrypt.DefaultCost)
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data/acquisitions.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.querytimeout", "5s")
	v.SetDefault("cors.allowedorigins", []string{})
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.guest", 5)
	v.SetDefault("ratelimit.user", 10)
	v.SetDefault("ratelimit.admin", 20)

	// Conventional variable names accepted alongside the prefixed ones.
	_ = v.BindEnv("environment", "ACQUISITIONS_ENVIRONMENT", "NODE_ENV")
	_ = v.BindEnv("auth.jwtsecret", "ACQUISITIONS_AUTH_JWTSECRET", "JWT_SECRET")
	_ = v.BindEnv("database.dsn", "ACQUISITIONS_DATABASE_DSN", "DATABASE_URL")
	_ = v.BindEnv("log.level", "ACQUISITIONS_LOG_LEVEL", "LOG_LEVEL")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" && os.Getenv("ACQUISITIONS_SERVER_ADDR") == "" && !v.InConfig("server.addr") {
		cfg.Server.Addr = net.JoinHostPort("0.0.0.0", port)
	}
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	cfg.CORS.AllowedOrigins = splitList(cfg.CORS.AllowedOrigins)
	cfg.Server.TrustedProxies = splitList(cfg.Server.TrustedProxies)
	cfg.Metrics.Addr = strings.TrimSpace(cfg.Metrics.Addr)

	return cfg, nil
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("auth jwt secret is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth token ttl must be positive"))
	}
	if c.Auth.CookieMaxAge <= 0 {
		errs = append(errs, errors.New("auth cookie max age must be positive"))
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("auth bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			errs = append(errs, errors.New("database path is required for sqlite"))
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Database.DSN) == "" {
			errs = append(errs, errors.New("database dsn is required for postgres"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}
	if c.Database.QueryTimeout <= 0 {
		errs = append(errs, errors.New("database query timeout must be positive"))
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}

	for _, proxy := range c.Server.TrustedProxies {
		if _, _, err := net.ParseCIDR(proxy); err != nil && net.ParseIP(proxy) == nil {
			errs = append(errs, fmt.Errorf("trusted proxy %q must be an IP or CIDR", proxy))
		}
	}
	if c.Metrics.Addr != "" && c.Metrics.Addr == c.Server.Addr {
		errs = append(errs, errors.New("metrics addr must differ from server addr"))
	}

	for _, origin := range c.CORS.AllowedOrigins {
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			errs = append(errs, fmt.Errorf("cors origin %q must start with http:// or https://", origin))
		}
	}

	if c.RateLimit.Enabled && (c.RateLimit.Guest <= 0 || c.RateLimit.User <= 0 || c.RateLimit.Admin <= 0) {
		errs = append(errs, errors.New("rate limits must be positive when rate limiting is enabled"))
	}

	return errors.Join(errs...)
}

// splitList flattens comma separated entries and drops blanks.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, entry := range in {
		for _, item := range strings.Split(entry, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}
