package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the server's environment-backed configuration.
type Config struct {
	HTTPPort  string `env:"LOOT_HTTP_PORT" envDefault:"8080"`
	HTTPSPort string `env:"LOOT_HTTPS_PORT" envDefault:"8443"`
	CertFile  string `env:"LOOT_CERT_FILE"`
	KeyFile   string `env:"LOOT_KEY_FILE"`
	TLSOnly   bool   `env:"LOOT_TLS_ONLY"`
	LogLevel  string `env:"LOOT_LOG_LEVEL" envDefault:"info"`
}

// FromEnv loads configuration from environment variables.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
