package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Used when SESSION_SECRET is unset outside of live. Never acceptable in live.
const DevSessionSecret = "dev_secret_change_me"

var Config CarHubConfig

func init() {
	// A missing .env is normal in deployed environments.
	_ = godotenv.Load()

	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	Config = cfg
}

func Load() (CarHubConfig, error) {
	env := Environment(getEnv("CARHUB_ENV", string(Dev)))

	addr := os.Getenv("CARHUB_ADDR")
	if addr == "" {
		addr = ":" + getEnv("PORT", "3000")
	}

	logLevel, err := zerolog.ParseLevel(getEnv("CARHUB_LOG_LEVEL", "info"))
	if err != nil {
		return CarHubConfig{}, fmt.Errorf("CARHUB_LOG_LEVEL: %w", err)
	}

	dbLogLevel, err := tracelog.LogLevelFromString(getEnv("DATABASE_LOG_LEVEL", "warn"))
	if err != nil {
		return CarHubConfig{}, fmt.Errorf("DATABASE_LOG_LEVEL: %w", err)
	}

	var vars envReader
	cfg := CarHubConfig{
		Env:       env,
		Addr:      addr,
		BaseUrl:   strings.TrimSuffix(os.Getenv("CARHUB_BASE_URL"), "/"),
		LogLevel:  logLevel,
		PublicDir: getEnv("CARHUB_PUBLIC_DIR", "public"),
		UploadDir: getEnv("UPLOAD_DIR", "public/uploads"),
		Postgres: PostgresConfig{
			User:     getEnv("DATABASE_USER", "carhub"),
			Password: getEnv("DATABASE_PASSWORD", "password"),
			Hostname: getEnv("DATABASE_HOST", "localhost"),
			Port:     vars.Int("DATABASE_PORT", 5432),
			DbName:   getEnv("DATABASE_NAME", "carhub"),
			LogLevel: dbLogLevel,
			MinConn:  int32(vars.Int("DATABASE_MIN_CONN", 2)),
			MaxConn:  int32(vars.Int("DATABASE_MAX_CONN", 10)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       vars.Int("REDIS_DB", 0),
		},
		Session: SessionConfig{
			Secret:          os.Getenv("SESSION_SECRET"),
			Store:           SessionStoreKind(getEnv("SESSION_STORE", string(StorePostgres))),
			MaxAge:          vars.Duration("SESSION_MAX_AGE", 7*24*time.Hour),
			RefreshInterval: vars.Duration("SESSION_REFRESH_INTERVAL", 24*time.Hour),
			StoreTimeout:    vars.Duration("SESSION_STORE_TIMEOUT", 2*time.Second),
			SweepInterval:   vars.Duration("SESSION_SWEEP_INTERVAL", time.Minute),
			CookieSecure:    vars.Bool("SESSION_COOKIE_SECURE", false),
		},
		Demo: DemoConfig{
			Username: getEnv("DEMO_USERNAME", "admin"),
			Password: getEnv("DEMO_PASSWORD", "admin123"),
		},
		DevConfig: DevConfig{
			LiveTemplates: vars.Bool("CARHUB_LIVE_TEMPLATES", false),
		},
	}

	if err := errors.Join(vars.errs...); err != nil {
		return CarHubConfig{}, err
	}

	if cfg.Session.Secret == "" && cfg.Env != Live {
		cfg.Session.Secret = DevSessionSecret
	}

	return cfg, cfg.Validate()
}

func (c CarHubConfig) Validate() error {
	switch c.Env {
	case Live, Beta, Dev:
	default:
		return fmt.Errorf("unknown environment %q", c.Env)
	}

	switch c.Session.Store {
	case StorePostgres, StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}

	if c.Session.Secret == "" {
		return errors.New("SESSION_SECRET must be set")
	}
	if c.Env == Live && c.Session.Secret == DevSessionSecret {
		return errors.New("SESSION_SECRET must not be the development fallback in live")
	}
	if c.Session.MaxAge <= 0 {
		return errors.New("SESSION_MAX_AGE must be positive")
	}
	if c.Session.StoreTimeout <= 0 {
		return errors.New("SESSION_STORE_TIMEOUT must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		return errors.New("SESSION_SWEEP_INTERVAL must be positive")
	}
	if c.Demo.Username == "" || c.Demo.Password == "" {
		return errors.New("DEMO_USERNAME and DEMO_PASSWORD must not be empty")
	}

	return nil
}

// Whether the secret is the built-in fallback, which is worth shouting about at startup.
func (c CarHubConfig) UsingDevSecret() bool {
	return c.Session.Secret == DevSessionSecret
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Reads typed variables, remembering every malformed value so Load can
// report them all at once.
type envReader struct {
	errs []error
}

func (r *envReader) fail(key, v string, err error) {
	r.errs = append(r.errs, fmt.Errorf("%s: invalid value %q: %w", key, v, err))
}

func (r *envReader) Int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return i
}

func (r *envReader) Bool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return b
}

func (r *envReader) Duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return d
}
