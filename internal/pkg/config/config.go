package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET, required"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	Tokens       TokenConfig
	Mongo        MongoConfig
	Redis        RedisConfig
	Provisioning ProvisioningConfig
}

type TokenConfig struct {
	TTL        time.Duration `env:"TOKEN_TTL,   default=1h"`
	RefreshTTL time.Duration `env:"REFRESH_TTL, default=720h"`
}

type MongoConfig struct {
	URI         string `env:"MONGO_URI,       default=mongodb://localhost:27017"`
	Database    string `env:"MONGO_DB,        default=membership"`
	MaxPoolSize uint64 `env:"MONGO_POOL_SIZE, default=50"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type ProvisioningConfig struct {
	Workers int `env:"PROVISION_WORKERS, default=4"`
}

// IsProduction reports whether logs should be emitted as plain JSON.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom resolves the configuration through the given lookuper.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, err
	}
	return &cfg, nil
}
