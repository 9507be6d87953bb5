package config

import (
	"errors"
	"time"
)

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	Database    Database `envPrefix:"DATABASE_"`

	Stripe Stripe `envPrefix:"STRIPE_"`
	Ledger Ledger `envPrefix:"LEDGER_"`
}

type Stripe struct {
	SecretKey        string        `env:"SECRET_KEY"`
	WebhookSecret    string        `env:"WEBHOOK_SECRET"`
	WebhookTolerance time.Duration `env:"WEBHOOK_TOLERANCE" envDefault:"5m"`
	Timeout          time.Duration `env:"TIMEOUT" envDefault:"30s"`
	MaxRetries       int           `env:"MAX_RETRIES" envDefault:"2"`
	RetryBackoff     time.Duration `env:"RETRY_BACKOFF" envDefault:"200ms"`
}

type Database struct {
	Driver       string `env:"DRIVER" envDefault:"mysql"` // mysql | sqlite
	URL          string `env:"URL"`
	MaxIdleConns int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
	MaxOpenConns int    `env:"MAX_OPEN_CONNS" envDefault:"50"`
}

// Ledger controls retention of the webhook dedup ledger.
type Ledger struct {
	Retention time.Duration `env:"RETENTION" envDefault:"720h"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host      string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port      string `env:"HTTP_PORT" envDefault:"8080"`
	BodyLimit string `env:"HTTP_BODY_LIMIT" envDefault:"1M"`
}

func (c *Config) Validate() error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.Database.Driver != "mysql" && c.Database.Driver != "sqlite" {
		errs = append(errs, errors.New("DATABASE_DRIVER must be mysql or sqlite"))
	}
	if c.Stripe.SecretKey == "" {
		errs = append(errs, errors.New("STRIPE_SECRET_KEY is required"))
	}
	if c.Stripe.WebhookSecret == "" {
		errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is required"))
	}
	if c.Stripe.MaxRetries < 0 {
		errs = append(errs, errors.New("STRIPE_MAX_RETRIES must not be negative"))
	}
	return errors.Join(errs...)
}
