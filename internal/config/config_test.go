package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_Load_Requires_Secret_And_DSN(t *testing.T) {
	req := require.New(t)

	// t.Setenv registers the restore; Unsetenv makes the vars truly absent.
	t.Setenv("DB_DSN", "placeholder")
	t.Setenv("JWT_SECRET", "placeholder")
	os.Unsetenv("DB_DSN")
	os.Unsetenv("JWT_SECRET")

	// No silent fallback secret: starting without one is an error.
	_, err := Load()
	req.Error(err)

	t.Setenv("DB_DSN", "postgres://localhost/pairchat")
	os.Unsetenv("JWT_SECRET")
	_, err = Load()
	req.Error(err)

	t.Setenv("JWT_SECRET", "s3cret")
	cfg, err := Load()
	req.NoError(err)
	req.Equal("s3cret", cfg.JWTSecret)
}

func Test_Load_Applies_Defaults(t *testing.T) {
	req := require.New(t)

	t.Setenv("DB_DSN", "postgres://localhost/pairchat")
	t.Setenv("JWT_SECRET", "s3cret")
	for _, key := range []string{"ADDR", "REDIS_ADDR", "TOKEN_TTL", "HISTORY_CACHE_TTL"} {
		t.Setenv(key, "placeholder")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	req.NoError(err)
	req.Equal(":8080", cfg.Addr)
	req.Equal("localhost:6379", cfg.RedisAddr)
	req.Equal(24*time.Hour, cfg.TokenTTL)
	req.Equal(30*time.Second, cfg.HistoryCacheTTL)
}
