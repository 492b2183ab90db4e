// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override; .env is loaded first)
//  2. Config file (./config.yaml)
//  3. Default values
//
// Sensitive fields (API keys, JWT secret, database password) are masked
// in MarshalJSON and String; they never reach log output in clear text.
package config

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	// ErrMissingOpenAIKey indicates OPENAI_API_KEY is not set.
	ErrMissingOpenAIKey = errors.New("missing OpenAI API key")

	// ErrMissingJWTSecret indicates JWT_SECRET is not set.
	ErrMissingJWTSecret = errors.New("missing JWT secret")

	// ErrInvalidJWTSecret indicates the JWT secret is too short to be safe.
	ErrInvalidJWTSecret = errors.New("invalid JWT secret")

	// ErrInvalidEmbeddingDimensions indicates the embedding dimensionality is out of range.
	ErrInvalidEmbeddingDimensions = errors.New("invalid embedding dimensions")

	// ErrInvalidTokenExpiry indicates the access token expiry is out of range.
	ErrInvalidTokenExpiry = errors.New("invalid token expiry")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is empty.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidMaxUploadSize indicates the upload size limit is not positive.
	ErrInvalidMaxUploadSize = errors.New("invalid max upload size")

	// ErrInvalidBatchSize indicates the bulk batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size")

	// ErrInvalidServerPort indicates the HTTP server port is out of range.
	ErrInvalidServerPort = errors.New("invalid server port")
)

const (
	// DefaultEmbeddingModel is the hosted embedding model used unless overridden.
	DefaultEmbeddingModel = "text-embedding-3-small"

	// DefaultEmbeddingDimensions matches the vector(1536) column in the
	// documents table. Changing this requires a schema migration.
	DefaultEmbeddingDimensions = 1536

	// DefaultCompletionModel is the hosted chat model used for answer synthesis.
	DefaultCompletionModel = "gpt-4o-mini"
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON.
type Config struct {
	// Server
	Environment string   `mapstructure:"environment" json:"environment"`
	ServerPort  int      `mapstructure:"server_port" json:"server_port"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"`
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`

	// PostgreSQL (overridden wholesale by DATABASE_URL when set)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// OpenAI
	OpenAIAPIKey        string `mapstructure:"openai_api_key" json:"openai_api_key"` // SENSITIVE
	EmbeddingModel      string `mapstructure:"embedding_model" json:"embedding_model"`
	EmbeddingDimensions int    `mapstructure:"embedding_dimensions" json:"embedding_dimensions"`
	CompletionModel     string `mapstructure:"completion_model" json:"completion_model"`

	// Auth
	JWTSecret          string `mapstructure:"jwt_secret" json:"jwt_secret"` // SENSITIVE
	TokenExpiryMinutes int    `mapstructure:"token_expiry_minutes" json:"token_expiry_minutes"`

	// Bulk upload
	MaxUploadSize int64 `mapstructure:"max_upload_size" json:"max_upload_size"`
	BatchSize     int   `mapstructure:"batch_size" json:"batch_size"`

	// Tracing (disabled when endpoint is empty)
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name" json:"service_name"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	// Populate process env from .env if present; harmless when absent.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults + env are enough.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL wins over individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("server_port", 8080)
	v.SetDefault("cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("trust_proxy", false)
	v.SetDefault("rate_burst", 60)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "rag")
	v.SetDefault("postgres_password", "rag_dev_password")
	v.SetDefault("postgres_db_name", "rag")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("embedding_model", DefaultEmbeddingModel)
	v.SetDefault("embedding_dimensions", DefaultEmbeddingDimensions)
	v.SetDefault("completion_model", DefaultCompletionModel)

	v.SetDefault("token_expiry_minutes", 30)

	v.SetDefault("max_upload_size", int64(10_000_000)) // 10MB
	v.SetDefault("batch_size", 5)

	v.SetDefault("service_name", "rag-system-api")
}

// bindEnvVariables binds environment variables explicitly.
// Secrets are only ever read from the environment, never from config files
// checked into a repository.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a failure here is a bug.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("openai_api_key", "OPENAI_API_KEY")
	mustBind("jwt_secret", "JWT_SECRET")
	mustBind("environment", "RAG_ENVIRONMENT")
	mustBind("server_port", "RAG_SERVER_PORT")
	mustBind("cors_origins", "RAG_CORS_ORIGINS")
	mustBind("trust_proxy", "RAG_TRUST_PROXY")
	mustBind("rate_burst", "RAG_RATE_BURST")
	mustBind("embedding_model", "RAG_EMBEDDING_MODEL")
	mustBind("embedding_dimensions", "RAG_EMBEDDING_DIMENSIONS")
	mustBind("completion_model", "RAG_COMPLETION_MODEL")
	mustBind("token_expiry_minutes", "RAG_TOKEN_EXPIRY_MINUTES")
	mustBind("max_upload_size", "RAG_MAX_UPLOAD_SIZE")
	mustBind("batch_size", "RAG_BATCH_SIZE")
	mustBind("otlp_endpoint", "RAG_OTLP_ENDPOINT")

	// NOTE: DATABASE_URL is read directly in parseDatabaseURL, not via viper.
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 bytes or fewer are fully masked; longer secrets keep the
// first and last two characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	a.OpenAIAPIKey = maskSecret(a.OpenAIAPIKey)
	a.JWTSecret = maskSecret(a.JWTSecret)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
