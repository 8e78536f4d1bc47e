package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	HttpServerPort uint16   `env:"HTTP_SERVER_PORT" envDefault:"3000" validate:"min=1000,max=65535"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS"  envDefault:"http://localhost:5173" envSeparator:","`
	LogFormat      string   `env:"LOG_FORMAT"       envDefault:"console" validate:"oneof=console json"`

	SessionIdleTTL       time.Duration `env:"SESSION_IDLE_TTL"       envDefault:"10m" validate:"gte=0"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"  validate:"gt=0"`

	// Empty host disables the lifecycle event stream.
	RedisEventsHost string `env:"REDIS_EVENTS_HOST"`
	RedisEventsPort uint16 `env:"REDIS_EVENTS_PORT" envDefault:"6379" validate:"min=1000,max=65535"`

	// Empty host disables the match archive.
	PostgresHost     string `env:"POSTGRES_HOST"`
	PostgresPort     string `env:"POSTGRES_PORT"     envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER"     envDefault:"matchlobby"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"matchlobby"`
	PostgresDb       string `env:"POSTGRES_DB"       envDefault:"matchlobby"`
}

func (c *Config) EventsEnabled() bool { return c.RedisEventsHost != "" }

// ArchiveEnabled needs both stores: the archive tails the redis stream.
func (c *Config) ArchiveEnabled() bool { return c.EventsEnabled() && c.PostgresHost != "" }

func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}

	cfg := &Config{}
	if err = env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	validate := validator.New()
	err = validate.Struct(cfg)
	if err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}
