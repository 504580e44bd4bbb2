package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(envOf(map[string]string{
		"DATABASE_URL": "postgres://localhost/finance",
		"JWT_SECRET":   "s3cret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 10, cfg.DBMaxOpenConns)
	assert.True(t, cfg.MigrateOnStart)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 15*time.Minute, cfg.ResetCodeTTL)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 100, cfg.EventBuffer)
	assert.Equal(t, 587, cfg.SMTP.Port)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(envOf(map[string]string{
		"DATABASE_URL":     "postgres://db/finance",
		"JWT_SECRET":       "s3cret",
		"PORT":             "8080",
		"APP_ENV":          "Production",
		"DB_DRIVER":        "pgx",
		"MIGRATE_ON_START": "false",
		"JWT_TTL":          "2h",
		"TZ_NAME":          "America/Sao_Paulo",
		"CORS_ORIGINS":     "https://a.example, https://b.example",
		"SMTP_HOST":        "smtp.example.com",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "pgx", cfg.DBDriver)
	assert.False(t, cfg.MigrateOnStart)
	assert.Equal(t, 2*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "America/Sao_Paulo", cfg.Location.String())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "smtp.example.com", cfg.SMTP.Host)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(envOf(map[string]string{
		"JWT_TTL":   "forever",
		"DB_DRIVER": "mysql",
	}))
	require.Error(t, err)
	assert.ErrorContains(t, err, "DATABASE_URL is required")
	assert.ErrorContains(t, err, "JWT_SECRET is required")
	assert.ErrorContains(t, err, "JWT_TTL")
	assert.ErrorContains(t, err, "unsupported driver")
}
