// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogJSON  bool   `envconfig:"LOG_JSON" default:"false"`

	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"chefbook"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`

	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// Payment gateway (Omise). Amounts are compared in minor units of Currency.
	OmisePublicKey string        `envconfig:"OMISE_PUBLIC_KEY"`
	OmiseSecretKey string        `envconfig:"OMISE_SECRET_KEY"`
	Currency       string        `envconfig:"PAYMENT_CURRENCY" default:"thb"`
	PaymentTimeout time.Duration `envconfig:"PAYMENT_TIMEOUT" default:"10s"`
	PaymentRetries int           `envconfig:"PAYMENT_RETRIES" default:"1"`

	FirebaseServiceAccountPath string        `envconfig:"FIREBASE_SERVICE_ACCOUNT_PATH"`
	NotifyWorkers              int           `envconfig:"NOTIFY_WORKERS" default:"4"`
	NotifyQueueSize            int           `envconfig:"NOTIFY_QUEUE_SIZE" default:"256"`
	NotifyTimeout              time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"5s"`

	// Optional event sinks; empty disables them.
	RedisURL       string `envconfig:"REDIS_URL"`
	RabbitURL      string `envconfig:"RABBITMQ_URL"`
	RabbitExchange string `envconfig:"RABBITMQ_EXCHANGE" default:"bookings"`

	// Booking event archive: S3 when a bucket is set, else a local directory.
	AWSRegion       string `envconfig:"AWS_REGION"`
	AWSAccessKey    string `envconfig:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey    string `envconfig:"AWS_SECRET_ACCESS_KEY"`
	AWSBucket       string `envconfig:"AWS_S3_BUCKET"`
	EventArchiveDir string `envconfig:"EVENT_ARCHIVE_DIR"`

	OTelEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Env          string `envconfig:"APP_ENV" default:"dev"`
}

// DSN returns the postgres connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort,
	)
}

// Load reads an optional .env file and then binds the environment onto Config.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, err
	}
	if c.NotifyWorkers < 1 {
		c.NotifyWorkers = 1
	}
	if c.PaymentRetries < 0 {
		c.PaymentRetries = 0
	}
	return c, nil
}
