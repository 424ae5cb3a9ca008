package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort  string `env:"SERVER_PORT, default=8080"`
	LogLevel    string `env:"LOG_LEVEL,   default=info"`
	LogPretty   bool   `env:"LOG_PRETTY,  default=false"`
	MySQLDSN    string `env:"MYSQL_DSN,   default=user:password@tcp(localhost:3306)/appointments?charset=utf8mb4&parseTime=True&loc=Local"`
	JWTSecret   string `env:"JWT_SECRET,  default=change-me"`
	SwaggerHost string `env:"SWAGGER_HOST"`

	Redis RedisConfig
}

// RedisConfig configures the cache and session store backend.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

// Load builds Config from the process environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}
