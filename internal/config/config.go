package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ConfigPath        string        `envconfig:"ARGUS_CONFIG" default:"argus.json" validate:"required"`
	Addr              string        `envconfig:"ADDR"` // overrides "listen" from the destinations file
	LogDir            string        `envconfig:"LOG_DIR" default:"logs" validate:"required"`
	LogLevel          string        `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Workers           int           `envconfig:"WORKERS" default:"4" validate:"min=1"`
	QueueSize         int           `envconfig:"QUEUE_SIZE" default:"0" validate:"min=0"` // 0: one slot per monitor
	ShutdownGrace     time.Duration `envconfig:"SHUTDOWN_GRACE" default:"5s" validate:"gt=0"`
	PingPrivileged    bool          `envconfig:"PING_PRIVILEGED" default:"false"`
	MemoryLogInterval time.Duration `envconfig:"MEMORY_LOG_INTERVAL" default:"5m" validate:"min=0"`
	AllowedOrigins    []string      `envconfig:"ALLOWED_ORIGINS"`                               // empty: any origin
	APIRatePerMin     int           `envconfig:"API_RATE_PER_MIN" default:"0" validate:"min=0"` // per client, 0 disables
	APIBurst          int           `envconfig:"API_BURST" default:"20" validate:"min=1"`
}

var validate = validator.New()

// FromEnv reads the process settings. Load a .env file before calling it
// if one should be honoured.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("config.FromEnv: %w", err)
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	origins := cfg.AllowedOrigins[:0]
	for _, o := range cfg.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	cfg.AllowedOrigins = origins

	if err := validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("config.FromEnv: %w", describe(err))
	}
	return cfg, nil
}
