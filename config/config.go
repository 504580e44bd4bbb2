package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

type Config struct {
	Port           string
	Env            string
	DatabaseURL    string
	DBDriver       string
	DBMaxOpenConns int
	MigrateOnStart bool
	JWTSecret      string
	JWTTTL         time.Duration
	ResetCodeTTL   time.Duration
	Location       *time.Location
	CORSOrigins    []string
	EventBuffer    int
	SMTP           SMTP
}

type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// MustLoad reads the configuration from the environment and exits when a
// required value is missing or malformed.
func MustLoad() Config {
	cfg, err := Load(os.Getenv)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	return cfg
}

func Load(getenv func(string) string) (Config, error) {
	env := envReader{getenv: getenv}

	cfg := Config{
		Port:           env.str("PORT", "5000"),
		Env:            strings.ToLower(env.str("APP_ENV", "development")),
		DatabaseURL:    env.required("DATABASE_URL"),
		DBDriver:       env.str("DB_DRIVER", "postgres"),
		DBMaxOpenConns: env.integer("DB_MAX_OPEN_CONNS", 10),
		MigrateOnStart: env.boolean("MIGRATE_ON_START", true),
		JWTSecret:      env.required("JWT_SECRET"),
		JWTTTL:         env.duration("JWT_TTL", 24*time.Hour),
		ResetCodeTTL:   env.duration("RESET_CODE_TTL", 15*time.Minute),
		CORSOrigins:    env.list("CORS_ORIGINS", "*"),
		EventBuffer:    env.integer("EVENT_BUFFER", 100),
		SMTP: SMTP{
			Host:     env.str("SMTP_HOST", ""),
			Port:     env.integer("SMTP_PORT", 587),
			Username: env.str("SMTP_USERNAME", ""),
			Password: env.str("SMTP_PASSWORD", ""),
			From:     env.str("SMTP_FROM", "noreply@acasinha.local"),
		},
	}

	tz := env.str("TZ_NAME", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		env.errs = append(env.errs, fmt.Errorf("TZ_NAME: %w", err))
	}
	cfg.Location = loc

	switch cfg.DBDriver {
	case "postgres", "pgx":
	default:
		env.errs = append(env.errs, fmt.Errorf("DB_DRIVER: unsupported driver %q", cfg.DBDriver))
	}

	if err := errors.Join(env.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type envReader struct {
	getenv func(string) string
	errs   []error
}

func (e *envReader) str(key, def string) string {
	if v := strings.TrimSpace(e.getenv(key)); v != "" {
		return v
	}
	return def
}

func (e *envReader) required(key string) string {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		e.errs = append(e.errs, fmt.Errorf("%s is required", key))
	}
	return v
}

func (e *envReader) integer(key string, def int) int {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid number %q", key, v))
		return def
	}
	return n
}

func (e *envReader) boolean(key string, def bool) bool {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid boolean %q", key, v))
		return def
	}
	return b
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return def
	}
	return d
}

func (e *envReader) list(key, def string) []string {
	var out []string
	for _, p := range strings.Split(e.str(key, def), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
