package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "mailadm", cfg.AppName)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "localhost", cfg.DBHost)
	assert.Equal(t, int32(10), cfg.DBMaxConns)
	assert.Equal(t, time.Hour, cfg.DBMaxConnLife)
	assert.Equal(t, "db/migrations", cfg.MigrationsDir)
	assert.Empty(t, cfg.ProvisionFile)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_MAX_CONNS", "25")
	t.Setenv("DB_MAX_CONN_LIFETIME", "30m")
	t.Setenv("PROVISION_FILE", "/etc/mailadm/state.toml")

	cfg := Load()
	assert.Equal(t, "db.internal", cfg.DBHost)
	assert.Equal(t, int32(25), cfg.DBMaxConns)
	assert.Equal(t, 30*time.Minute, cfg.DBMaxConnLife)
	assert.Equal(t, "/etc/mailadm/state.toml", cfg.ProvisionFile)
}

func TestLoadInvalidIntFallsBack(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "lots")
	cfg := Load()
	assert.Equal(t, int32(10), cfg.DBMaxConns)
}

func TestPostgresDSN(t *testing.T) {
	t.Setenv("DB_USER", "mail")
	t.Setenv("DB_PASSWORD", "s3cret")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_NAME", "mailadm")
	t.Setenv("DB_SSLMODE", "require")

	cfg := Load()
	assert.Equal(t, "postgres://mail:s3cret@db:5433/mailadm?sslmode=require", cfg.PostgresDSN())
}
