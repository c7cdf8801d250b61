package config

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Garage"`
		Port int    `envconfig:"PORT" default:"8080"`
		Env  string `envconfig:"APP_ENV" default:"development"`
	}

	DB struct {
		Host         string        `envconfig:"DB_HOST" default:"localhost"`
		Port         int           `envconfig:"DB_PORT" default:"5432"`
		User         string        `envconfig:"DB_USER" default:"postgres"`
		Password     string        `envconfig:"DB_PASSWORD" default:""`
		Name         string        `envconfig:"DB_NAME" default:"garage"`
		SSLMode      string        `envconfig:"DB_SSLMODE" default:"disable"`
		MaxOpenConns int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
		MaxIdleConns int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
		ConnLifetime time.Duration `envconfig:"DB_CONN_LIFETIME" default:"5m"`
		Migrate      bool          `envconfig:"DB_MIGRATE" default:"true"`
	}

	Server struct {
		Timeout       time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		ShutdownGrace time.Duration `envconfig:"SERVER_SHUTDOWN_GRACE" default:"15s"`
	}

	Auth struct {
		JWTSecret string `envconfig:"JWT_SECRET"`
	}

	CORS struct {
		AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	}

	Numbering struct {
		EstimatePrefix string `envconfig:"NUMBERING_ESTIMATE_PREFIX" default:"EST"`
		JobPrefix      string `envconfig:"NUMBERING_JOB_PREFIX" default:"JOB"`
		Padding        int    `envconfig:"NUMBERING_PADDING" default:"4"`
	}

	Conversion struct {
		PromiseOffset time.Duration `envconfig:"CONVERSION_PROMISE_OFFSET" default:"24h"`
	}

	// Features lists optional schema features to switch off even when the columns exist,
	// e.g. FEATURES_DISABLED=insurance,reminders.
	Features struct {
		Disabled []string `envconfig:"FEATURES_DISABLED"`
	}

	Desk struct {
		ActorID uuid.UUID `envconfig:"DESK_ACTOR_ID"`
		SiteID  uuid.UUID `envconfig:"DESK_SITE_ID"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode)
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
