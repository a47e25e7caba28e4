package config

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_NAME", "devcamper")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, 720*time.Hour, cfg.Auth.JWTExpire)
	assert.Equal(t, 30, cfg.Auth.CookieExpireDays)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, 10*time.Minute, cfg.Auth.ResetTokenTTL)
	assert.Equal(t, int64(1000000), cfg.Upload.MaxFileSize)
	assert.Equal(t, "local", cfg.Upload.Driver)
	assert.Equal(t, 100, cfg.RateLimit.Capacity)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.RefillInterval)
	assert.Equal(t, map[string]bool{"GET": true}, cfg.Cache.MethodSet())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_RequiredMissing(t *testing.T) {
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_NAME", "devcamper")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_EXPIRE", "1h")
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1m")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	t.Setenv("PUBLIC_BASE_URL", "https://api.devcamper.io/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, time.Hour, cfg.Auth.JWTExpire)
	assert.Equal(t, "https://api.devcamper.io", cfg.PublicURL)
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Cache.MethodSet())
	assert.Equal(t, 2*time.Minute, cfg.RateLimit.TTL)
}

func TestLoad_S3NeedsBucket(t *testing.T) {
	setRequired(t)
	t.Setenv("STORAGE_DRIVER", "s3")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3_BUCKET")
}

func TestRedisConfigAddress(t *testing.T) {
	assert.Equal(t, "localhost:6379", RedisConfig{Addr: "localhost:6379"}.Address())
	assert.Equal(t, "cache:6380", RedisConfig{Addr: "localhost:6379", Host: "cache", Port: "6380"}.Address())
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb := NewRedisClient(context.Background(), RedisConfig{Addr: mr.Addr()})
	require.NotNil(t, rdb)
	defer rdb.Close()

	assert.Nil(t, NewRedisClient(context.Background(), RedisConfig{Addr: "127.0.0.1:1"}))
}
