package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// ValidationError is one rejected setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Validator collects every configuration problem so startup can report them
// all at once.
type Validator struct {
	errors []ValidationError
}

func NewValidator() *Validator {
	return &Validator{errors: make([]ValidationError, 0)}
}

func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Message: message})
}

func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// ErrorString formats all errors as a numbered list.
func (v *Validator) ErrorString() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Configuration validation failed with %d error(s):\n", len(v.errors))
	for i, err := range v.errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

func (v *Validator) ValidateRequired(key, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(key, "required setting not set")
	}
}

// ValidateAddr accepts ":port" or "host:port".
func (v *Validator) ValidateAddr(key, value string) {
	if value == "" {
		return
	}
	_, portStr, err := net.SplitHostPort(value)
	if err != nil {
		v.AddError(key, "must be host:port or :port")
		return
	}
	v.validatePortNumber(key, portStr)
}

func (v *Validator) validatePortNumber(key, portStr string) {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		v.AddError(key, "port must be a number")
		return
	}
	if port < 1 || port > 65535 {
		v.AddError(key, "port must be between 1 and 65535")
	}
}

// ValidateDatabaseURL requires a postgres:// or postgresql:// URL.
func (v *Validator) ValidateDatabaseURL(key, value string) {
	if value == "" {
		return
	}
	if !strings.HasPrefix(value, "postgres://") && !strings.HasPrefix(value, "postgresql://") {
		v.AddError(key, "must be a valid PostgreSQL connection string")
		return
	}
	if _, err := url.Parse(value); err != nil {
		v.AddError(key, fmt.Sprintf("invalid URL format: %v", err))
	}
}

// ValidateEndpoint accepts "host[:port]" or an http(s) URL without a path.
func (v *Validator) ValidateEndpoint(key, value string) {
	if value == "" {
		return
	}
	if !strings.Contains(value, "://") {
		return
	}
	u, err := url.Parse(value)
	if err != nil {
		v.AddError(key, fmt.Sprintf("invalid URL format: %v", err))
		return
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		v.AddError(key, "URL must use http or https scheme")
	}
	if u.Path != "" && u.Path != "/" {
		v.AddError(key, "endpoint must not contain a path")
	}
}

// ValidateHostPorts checks every entry of a broker list.
func (v *Validator) ValidateHostPorts(key string, values []string) {
	for _, hp := range values {
		host, portStr, err := net.SplitHostPort(hp)
		if err != nil || host == "" {
			v.AddError(key, fmt.Sprintf("%q must be host:port", hp))
			continue
		}
		v.validatePortNumber(key, portStr)
	}
}

func (v *Validator) ValidateMinLength(key, value string, minLen int) {
	if value == "" {
		return
	}
	if len(value) < minLen {
		v.AddError(key, fmt.Sprintf("must be at least %d characters long (got %d)", minLen, len(value)))
	}
}

func (v *Validator) ValidateEnum(key, value string, allowed []string) {
	for _, opt := range allowed {
		if value == opt {
			return
		}
	}
	v.AddError(key, fmt.Sprintf("must be one of: %s (got: %s)", strings.Join(allowed, ", "), value))
}

func (v *Validator) ValidateRatio(key string, value float64) {
	if value < 0 || value > 1 {
		v.AddError(key, "must be between 0 and 1")
	}
}

// Validate checks the whole configuration and returns every problem found.
func (c *Config) Validate() error {
	v := NewValidator()

	v.ValidateRequired("DATABASE_URL", c.DatabaseURL)
	v.ValidateDatabaseURL("DATABASE_URL", c.DatabaseURL)
	v.ValidateAddr("CLINIC_ADDR", c.Addr)

	v.ValidateRequired("CLINIC_S3_ENDPOINT", c.S3Endpoint)
	v.ValidateEndpoint("CLINIC_S3_ENDPOINT", c.S3Endpoint)
	v.ValidateRequired("CLINIC_S3_REGION", c.S3Region)
	v.ValidateRequired("CLINIC_BUCKET", c.Bucket)
	v.ValidateMinLength("CLINIC_BUCKET", c.Bucket, 3)
	if (c.S3AccessKey == "") != (c.S3SecretKey == "") {
		v.AddError("CLINIC_S3_ACCESS_KEY", "access key and secret key must be set together")
	}

	v.ValidateRequired("CLINIC_ADMIN_USER", c.AdminUser)
	v.ValidateRequired("CLINIC_ADMIN_PASS", c.AdminPass)

	v.ValidateHostPorts("KAFKA_BROKERS", c.KafkaBrokers)
	if len(c.KafkaBrokers) > 0 {
		v.ValidateRequired("KAFKA_TOPIC", c.KafkaTopic)
	}

	if c.OTelEnabled {
		v.ValidateRequired("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTelEndpoint)
	}
	v.ValidateRatio("OTEL_SAMPLING_RATIO", c.OTelSampleRatio)

	v.ValidateEnum("CLINIC_LOG_FORMAT", c.LogFormat, []string{"", "json", "text"})
	v.ValidateEnum("CLINIC_LOG_LEVEL", c.LogLevel, []string{"", "debug", "info", "warn", "error"})
	v.ValidateEnum("CLINIC_ENV", c.Env, []string{"", "development", "production", "staging"})

	if c.IsProduction() && c.AdminPass == "admin123" {
		v.AddError("CLINIC_ADMIN_PASS", "default admin password is not allowed in production")
	}

	if v.HasErrors() {
		return fmt.Errorf("%s", v.ErrorString())
	}
	return nil
}

// Warnings lists optional settings that are missing or left at a weak
// default. The caller decides how to log them.
func (c *Config) Warnings() []string {
	warnings := make([]string, 0)

	if c.AdminPass == "admin123" {
		warnings = append(warnings, "CLINIC_ADMIN_PASS is the default - change it before exposing the service")
	}
	if c.S3AccessKey == "" {
		warnings = append(warnings, "CLINIC_S3_ACCESS_KEY not set - using the AWS environment/IAM credential chain")
	}
	if len(c.KafkaBrokers) == 0 {
		warnings = append(warnings, "KAFKA_BROKERS not set - domain events are discarded")
	}
	if c.LogFormat == "" && !c.IsProduction() {
		warnings = append(warnings, "CLINIC_LOG_FORMAT not set - using console format (consider 'json' for production)")
	}
	for _, o := range c.CORSOrigins {
		if o == "*" && c.IsProduction() {
			warnings = append(warnings, "CLINIC_CORS_ORIGINS allows any origin in production")
			break
		}
	}
	return warnings
}
