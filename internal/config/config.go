package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`

	DBConnectionString string `envconfig:"DATABASE_URL" required:"true"`

	// Identity provider token verification key material (HMAC secret or PEM public key).
	JWTSecret string `envconfig:"AUTH_JWT_SECRET" required:"true"`

	// Stripe settings
	StripeSecretKey      string `envconfig:"STRIPE_SECRET_KEY" required:"true"`
	StripePublishableKey string `envconfig:"STRIPE_PUBLISHABLE_KEY" required:"true"`
	StripeWebhookSecret  string `envconfig:"STRIPE_WEBHOOK_SECRET" required:"true"`
	StripeTimeoutSec     int    `envconfig:"STRIPE_TIMEOUT_SEC" default:"15"`

	// Frontend base URL for checkout redirect targets.
	AppBaseURL string `envconfig:"APP_BASE_URL" required:"true"`

	// Subscription lifecycle settings
	PastDueGraceHours  int `envconfig:"PAST_DUE_GRACE_HOURS" default:"72"`
	EventRetentionDays int `envconfig:"PROCESSOR_EVENT_RETENTION_DAYS" default:"30"`

	// Thumbnail storage settings
	S3URL       string `envconfig:"S3_URL" required:"true"`
	S3Bucket    string `envconfig:"S3_BUCKET" required:"true"`
	S3Region    string `envconfig:"S3_REGION" required:"true"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY" required:"true"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY" required:"true"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
