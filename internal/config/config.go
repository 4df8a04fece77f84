// Package config defines the process configuration for the Verdant server and
// email worker. Configuration is loaded once at startup and is immutable
// thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// Any missing required value or invalid format aborts startup.
package config

import (
	"time"

	"verdant/internal/types"
)

// SecretString is an alias for types.SecretString so config consumers do not
// need to import types just to read a credential.
type SecretString = types.SecretString

// Supported completion providers.
const (
	LLMProviderOpenAI = "openai"
	LLMProviderGemini = "gemini"
)

// Supported email providers.
const (
	EmailProviderSendGrid = "sendgrid"
	EmailProviderSES      = "ses"
)

// Supported metrics backends.
const (
	MetricsPrometheus = "prometheus"
	MetricsCloudWatch = "cloudwatch"
	MetricsNone       = "none"
)

// Config is the top-level configuration struct. Sub-components receive only
// the section they need.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server        ServerConfig
	Database      DatabaseConfig
	LLM           LLMConfig
	Email         EmailConfig
	AWS           AWSConfig
	Security      SecurityConfig
	Observability ObservabilityConfig
	Dashboard     DashboardConfig

	// Injected via ldflags, not Env
	Build BuildInfo
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	// PublicURL is the externally reachable base URL (no trailing slash). The
	// dashboard fetcher posts to PublicURL + /api/hazard-info.
	PublicURL      string        `envconfig:"PUBLIC_URL" default:"http://localhost:8080" validate:"required,url"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// LLMConfig selects and configures the hosted completion provider used to
// generate hazard descriptions.
type LLMConfig struct {
	Provider string `envconfig:"LLM_PROVIDER" default:"openai" validate:"oneof=openai gemini"`

	OpenAIAPIKey  SecretString `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string       `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1" validate:"url"`
	OpenAIModel   string       `envconfig:"OPENAI_MODEL" default:"gpt-3.5-turbo"`

	GeminiAPIKey SecretString `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string       `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`

	MaxTokens int           `envconfig:"LLM_MAX_TOKENS" default:"100" validate:"min=1"`
	Timeout   time.Duration `envconfig:"LLM_TIMEOUT" default:"20s"`
}

// EmailConfig holds verification email delivery settings.
type EmailConfig struct {
	Provider       string       `envconfig:"EMAIL_PROVIDER" default:"sendgrid" validate:"oneof=sendgrid ses"`
	SendGridAPIKey SecretString `envconfig:"SENDGRID_API_KEY"`
	FromAddress    string       `envconfig:"EMAIL_FROM_ADDRESS" default:"no-reply@verdant.app" validate:"email"`
	FromName       string       `envconfig:"EMAIL_FROM_NAME" default:"Verdant Assistant"`
	// QueueURL switches the verification hook from inline delivery to
	// SQS-backed delivery through cmd/email-worker.
	QueueURL string `envconfig:"EMAIL_QUEUE_URL" validate:"omitempty,url"`
}

// AWSConfig holds AWS regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`
	// LocalStack support (empty in prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// SecurityConfig holds the auth hook secret and CORS settings.
type SecurityConfig struct {
	AuthHookSecret     SecretString `envconfig:"AUTH_HOOK_SECRET"`
	CorsAllowedOrigins []string     `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// ObservabilityConfig holds metrics settings.
type ObservabilityConfig struct {
	MetricsBackend  string `envconfig:"METRICS_BACKEND" default:"prometheus" validate:"oneof=prometheus cloudwatch none"`
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"Verdant"`
}

// DashboardConfig bounds the in-memory view session store.
type DashboardConfig struct {
	SessionCapacity int           `envconfig:"VIEW_SESSION_CAPACITY" default:"1000" validate:"min=1"`
	SessionTTL      time.Duration `envconfig:"VIEW_SESSION_TTL" default:"30m"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	ErrMissingEnv    ConfigErrorType = "MISSING_ENV"
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	ErrValidation    ConfigErrorType = "VALIDATION_FAILED"
	ErrParsing       ConfigErrorType = "PARSING_FAILED"
)
