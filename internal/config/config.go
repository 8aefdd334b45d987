// Package config loads application configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/venue-box-office/internal/database"
	"github.com/iliyamo/venue-box-office/internal/logger"
	"github.com/iliyamo/venue-box-office/internal/pricing"
	"github.com/iliyamo/venue-box-office/internal/remote"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env    string // application environment (e.g. "dev", "prod")
	Port   string // HTTP port to listen on
	DBUser string
	DBPass string // may be empty
	DBHost string
	DBPort string
	DBName string

	JWTSecret       string
	AccessTTLMin    int // staff access token lifetime in minutes
	RefreshTTLDays  int // staff refresh token lifetime in days
	BcryptCost      int
	SessionTokenTTL time.Duration // booking session token lifetime

	Remote       remote.Config
	CSRFTokenTTL time.Duration

	PollInterval       time.Duration // how often held seats are re-polled
	LockTTL            time.Duration // lock lifetime granted by the booking service
	SessionIdleTimeout time.Duration
	Fee                pricing.FeePolicy
	LoginURL           string // where denied scanner operators are sent

	RabbitURL  string // empty disables booking.confirmed publishing
	BookingLog string // file the booking.confirmed consumer appends to
	LogLevel   string
}

// IsDev reports whether the service runs in a development environment.
func (c Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "development" || c.Env == "local"
}

// Logger returns the logger settings derived from the configuration.
func (c Config) Logger() logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = c.LogLevel
	lc.Development = c.IsDev()
	return lc
}

// Database returns the staff database connection options.
func (c Config) Database() database.Options {
	return database.Options{User: c.DBUser, Pass: c.DBPass, Host: c.DBHost, Port: c.DBPort, Name: c.DBName}
}

// Load reads a .env file when present, then builds the configuration from
// the environment.  Every missing or malformed required variable is
// reported in the returned error.
func Load() (Config, error) {
	_ = godotenv.Load()

	var l loader
	cfg := Config{
		Env:    l.must("APP_ENV"),
		Port:   l.must("APP_PORT"),
		DBUser: l.must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: l.must("DB_HOST"),
		DBPort: l.must("DB_PORT"),
		DBName: l.must("DB_NAME"),

		JWTSecret:       l.must("JWT_SECRET"),
		AccessTTLMin:    l.mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays:  l.mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:      l.mustInt("BCRYPT_COST"),
		SessionTokenTTL: envDur("SESSION_TOKEN_TTL", 2*time.Hour),

		Remote: remote.Config{
			BaseURL:   l.must("REMOTE_BASE_URL"),
			APIKey:    os.Getenv("REMOTE_API_KEY"),
			APISecret: os.Getenv("REMOTE_API_SECRET"),
			Timeout:   envDur("REMOTE_TIMEOUT", 10*time.Second),

			RatePerSecond: l.float("REMOTE_RATE_LIMIT", 0),
			Burst:         envInt("REMOTE_RATE_BURST", 20),
		},
		CSRFTokenTTL: envDur("CSRF_TOKEN_TTL", 30*time.Minute),

		PollInterval: envDur("POLL_INTERVAL", 10*time.Second),
		LockTTL:      envDur("LOCK_TTL", 5*time.Minute),
		Fee: pricing.FeePolicy{
			Name:    envStr("CONVENIENCE_FEE_NAME", pricing.DefaultFeePolicy.Name),
			Percent: l.float("CONVENIENCE_FEE_PERCENT", pricing.DefaultFeePolicy.Percent),
		},
		LoginURL: envStr("LOGIN_URL", "/login"),

		RabbitURL:  os.Getenv("RABBITMQ_URL"),
		BookingLog: envStr("BOOKING_LOG", "logs/booking.log"),
		LogLevel:   strings.ToLower(envStr("LOG_LEVEL", "info")),
	}
	cfg.SessionIdleTimeout = envDur("SESSION_IDLE_TIMEOUT", cfg.LockTTL)

	if err := l.err(); err != nil {
		return Config{}, err
	}
	if err := cfg.Fee.Validate(); err != nil {
		return Config{}, err
	}
	if cfg.PollInterval <= 0 {
		return Config{}, fmt.Errorf("POLL_INTERVAL must be positive, got %s", cfg.PollInterval)
	}
	return cfg, nil
}

// loader collects problems with required variables so they can be reported
// together.
type loader struct {
	problems []string
}

// must returns the value of a required variable.
func (l *loader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		l.problems = append(l.problems, "missing required env var: "+key)
	}
	return v
}

// mustInt is like must but converts the value to an int.
func (l *loader) mustInt(key string) int {
	s := l.must(key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		l.problems = append(l.problems, fmt.Sprintf("invalid int for %s: %q", key, s))
	}
	return n
}

func (l *loader) float(key string, def float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		l.problems = append(l.problems, fmt.Sprintf("invalid number for %s: %q", key, s))
		return def
	}
	return f
}

func (l *loader) err() error {
	if len(l.problems) == 0 {
		return nil
	}
	return errors.New(strings.Join(l.problems, "; "))
}
