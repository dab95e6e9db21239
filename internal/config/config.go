package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds everything the server needs at startup. DB_DSN and JWT_SECRET
// have no defaults on purpose: starting without them is a hard failure, not a
// silent fallback to an insecure value.
type Config struct {
	Addr            string        `envconfig:"ADDR" default:":8080"`
	DBDSN           string        `envconfig:"DB_DSN" required:"true"`
	JWTSecret       string        `envconfig:"JWT_SECRET" required:"true"`
	RedisAddr       string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	TokenTTL        time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
	HistoryCacheTTL time.Duration `envconfig:"HISTORY_CACHE_TTL" default:"30s"`
}

func Load() (*Config, error) {
	// .env is a convenience for local dev; in Docker the vars come from the
	// environment directly, so a missing file is not an error.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
