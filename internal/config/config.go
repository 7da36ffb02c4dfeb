package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	MinPerRoom int `env:"MIN_PER_ROOM" envDefault:"3"  validate:"min=1,ltefield=MaxPerRoom"`
	MaxPerRoom int `env:"MAX_PER_ROOM" envDefault:"10" validate:"min=1"`

	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"8080" validate:"min=1"`
	LogFormat      string `env:"LOG_FORMAT"       envDefault:"console" validate:"oneof=console json"`

	WsReadLimit  int64 `env:"WS_READ_LIMIT"  envDefault:"4096" validate:"min=64"`
	WsSendBuffer int   `env:"WS_SEND_BUFFER" envDefault:"64"   validate:"min=1"`
	HubQueue     int   `env:"HUB_QUEUE"      envDefault:"1024" validate:"min=1"`

	RedisEnabled bool   `env:"REDIS_ENABLED" envDefault:"false"`
	RedisHost    string `env:"REDIS_HOST"    envDefault:"localhost"`
	RedisPort    uint16 `env:"REDIS_PORT"    envDefault:"6379" validate:"min=1"`

	EventStream   string        `env:"EVENT_STREAM"   envDefault:"relay_events" validate:"required"`
	StatsInterval time.Duration `env:"STATS_INTERVAL" envDefault:"10s"          validate:"gt=0"`

	PostgresEnabled  bool   `env:"POSTGRES_ENABLED"  envDefault:"false"`
	PostgresHost     string `env:"POSTGRES_HOST"     envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT"     envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER"     envDefault:"relay"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"relay"`
	PostgresDb       string `env:"POSTGRES_DB"       envDefault:"relay"`
}

func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}
	return parse()
}

func parse() (*Config, error) {
	cfg := &Config{}
	// Parse config from environment variables
	if err := env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	// Validate the config
	if err := Validate(cfg); err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

func init() {
	validate.RegisterStructValidation(func(sl validator.StructLevel) {
		cfg := sl.Current().Interface().(Config)
		// Postgres is only fed from the Redis event stream.
		if cfg.PostgresEnabled && !cfg.RedisEnabled {
			sl.ReportError(cfg.PostgresEnabled, "PostgresEnabled", "PostgresEnabled", "requires_redis", "")
		}
	}, Config{})
}

func Validate(cfg *Config) error {
	return validate.Struct(cfg)
}
