package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort         string        `env:"HTTP_PORT" envDefault:"8080"`
	SessionLength    int           `env:"SESSION_LENGTH" envDefault:"10"`
	SessionTimeLimit time.Duration `env:"SESSION_TIME_LIMIT" envDefault:"90s"`
	SessionRetention time.Duration `env:"SESSION_RETENTION" envDefault:"30m"`
	RandomSeed       uint64        `env:"RANDOM_SEED" envDefault:"0"`
	CatalogPath      string        `env:"CATALOG_PATH"`
	RulesPath        string        `env:"RULES_PATH"`
	DatabaseURL      string        `env:"DATABASE_URL"`
	RedisAddr        string        `env:"REDIS_ADDR"`
	RedisPassword    string        `env:"REDIS_PASSWORD"`
	RedisDB          int           `env:"REDIS_DB" envDefault:"0"`
	JWTSecret        string        `env:"JWT_SECRET"`

	SessionCreateLimit  int           `env:"SESSION_CREATE_LIMIT" envDefault:"30"`
	SessionCreateWindow time.Duration `env:"SESSION_CREATE_WINDOW" envDefault:"1m"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rechaza valores que el motor no puede usar.
func (c *Config) Validate() error {
	if c.SessionLength <= 0 {
		return fmt.Errorf("SESSION_LENGTH must be positive, got %d", c.SessionLength)
	}
	if c.SessionTimeLimit < 0 {
		return fmt.Errorf("SESSION_TIME_LIMIT must not be negative, got %s", c.SessionTimeLimit)
	}
	if c.SessionRetention < 0 {
		return fmt.Errorf("SESSION_RETENTION must not be negative, got %s", c.SessionRetention)
	}
	if c.SessionCreateLimit < 0 {
		return fmt.Errorf("SESSION_CREATE_LIMIT must not be negative, got %d", c.SessionCreateLimit)
	}
	return nil
}
