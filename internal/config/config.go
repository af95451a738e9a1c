// Package config loads the clinic backend's settings from the environment
// (and an optional .env file) and validates them before startup.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Addr        string `mapstructure:"CLINIC_ADDR"`
	Env         string `mapstructure:"CLINIC_ENV"`
	Version     string `mapstructure:"CLINIC_VERSION"`
	Commit      string `mapstructure:"CLINIC_COMMIT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	S3Endpoint  string `mapstructure:"CLINIC_S3_ENDPOINT"`
	S3Region    string `mapstructure:"CLINIC_S3_REGION"`
	S3AccessKey string `mapstructure:"CLINIC_S3_ACCESS_KEY"`
	S3SecretKey string `mapstructure:"CLINIC_S3_SECRET_KEY"`
	Bucket      string `mapstructure:"CLINIC_BUCKET"`

	AdminUser string `mapstructure:"CLINIC_ADMIN_USER"`
	AdminPass string `mapstructure:"CLINIC_ADMIN_PASS"`

	CORSOrigins []string `mapstructure:"-"`

	KafkaBrokers []string `mapstructure:"-"`
	KafkaTopic   string   `mapstructure:"KAFKA_TOPIC"`

	OTelEnabled     bool    `mapstructure:"OTEL_ENABLED"`
	OTelEndpoint    string  `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelSampleRatio float64 `mapstructure:"OTEL_SAMPLING_RATIO"`

	LogFormat string `mapstructure:"CLINIC_LOG_FORMAT"`
	LogLevel  string `mapstructure:"CLINIC_LOG_LEVEL"`
}

var keys = []string{
	"CLINIC_ADDR",
	"CLINIC_ENV",
	"CLINIC_VERSION",
	"CLINIC_COMMIT",
	"DATABASE_URL",
	"CLINIC_S3_ENDPOINT",
	"CLINIC_S3_REGION",
	"CLINIC_S3_ACCESS_KEY",
	"CLINIC_S3_SECRET_KEY",
	"CLINIC_BUCKET",
	"CLINIC_ADMIN_USER",
	"CLINIC_ADMIN_PASS",
	"CLINIC_CORS_ORIGINS",
	"KAFKA_BROKERS",
	"KAFKA_TOPIC",
	"OTEL_ENABLED",
	"OTEL_EXPORTER_OTLP_ENDPOINT",
	"OTEL_SAMPLING_RATIO",
	"CLINIC_LOG_FORMAT",
	"CLINIC_LOG_LEVEL",
}

// Load reads configuration from the environment, falling back to a .env file
// in the working directory when present. It only fails on missing
// DATABASE_URL; call Validate for the full check.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("CLINIC_ADDR", ":10000")
	v.SetDefault("CLINIC_ENV", "development")
	v.SetDefault("CLINIC_VERSION", "dev")
	v.SetDefault("CLINIC_COMMIT", "unknown")
	v.SetDefault("CLINIC_S3_ENDPOINT", "s3.amazonaws.com")
	v.SetDefault("CLINIC_S3_REGION", "eu-north-1")
	v.SetDefault("CLINIC_BUCKET", "dental-clinic-reports-1")
	v.SetDefault("CLINIC_ADMIN_USER", "admin")
	v.SetDefault("CLINIC_ADMIN_PASS", "admin123")
	v.SetDefault("CLINIC_CORS_ORIGINS", "*")
	v.SetDefault("KAFKA_TOPIC", "clinic.events")
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	v.SetDefault("OTEL_SAMPLING_RATIO", 1.0)

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// A missing .env is fine; an unreadable or malformed one is not.
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.CORSOrigins = splitList(v.GetString("CLINIC_CORS_ORIGINS"))
	cfg.KafkaBrokers = splitList(v.GetString("KAFKA_BROKERS"))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

// IsProduction reports whether CLINIC_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// JSONLogs reports whether logs should be emitted as JSON lines.
func (c *Config) JSONLogs() bool {
	return c.LogFormat == "json" || c.IsProduction()
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
